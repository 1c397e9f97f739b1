package classify

import (
	"context"
	"strings"
	"testing"
)

func TestRuleClassifier_EmptyInput(t *testing.T) {
	c := NewRuleClassifier()

	for _, input := range []string{"", "   ", "\t\n"} {
		result := c.Classify(context.Background(), input, "user001")
		if result.Level != 1 {
			t.Errorf("Classify(%q): expected level 1, got %d", input, result.Level)
		}
		if result.Confidence != 0 {
			t.Errorf("Classify(%q): expected confidence 0, got %f", input, result.Confidence)
		}
		if result.Rationale != "insufficient input" {
			t.Errorf("Classify(%q): unexpected rationale %q", input, result.Rationale)
		}
	}
}

func TestRuleClassifier_LevelAssignment(t *testing.T) {
	c := NewRuleClassifier()

	tests := []struct {
		name      string
		input     string
		wantLevel int
	}{
		{"faq question", "how do I set up my profile?", 1},
		{"login crash", "app crashes on login", 2},
		{"save corruption", "my save file is corrupt and progress lost", 3},
		{"account compromise", "my account was hacked and there is suspicious activity", 4},
		{"doxxing emergency", "someone is doxxing me, this is an emergency", 5},
		{"server outage", "the server is down, complete outage for everyone", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := c.Classify(context.Background(), tt.input, "user001")
			if result.Level != tt.wantLevel {
				t.Errorf("Classify(%q): expected level %d, got %d (rationale: %s)",
					tt.input, tt.wantLevel, result.Level, result.Rationale)
			}
		})
	}
}

func TestRuleClassifier_BoundsHold(t *testing.T) {
	c := NewRuleClassifier()

	inputs := []string{
		"",
		"hello there",
		"urgent critical emergency data breach lawsuit server down hacked",
		"how what when where why crash login save corrupt",
		strings.Repeat("problem ", 200),
	}

	for _, input := range inputs {
		result := c.Classify(context.Background(), input, "u")
		if result.Level < 1 || result.Level > 5 {
			t.Errorf("Classify(%q): level %d out of [1,5]", input, result.Level)
		}
		if result.Confidence < 0 || result.Confidence > 1 {
			t.Errorf("Classify(%q): confidence %f out of [0,1]", input, result.Confidence)
		}
	}
}

func TestRuleClassifier_NoIndicatorsDefaults(t *testing.T) {
	c := NewRuleClassifier()

	result := c.Classify(context.Background(), "zzz qqq xxx", "user001")
	if result.Level != 2 {
		t.Errorf("expected default level 2, got %d", result.Level)
	}
	if result.Confidence != 0.3 {
		t.Errorf("expected default confidence 0.3, got %f", result.Confidence)
	}
}

func TestRuleClassifier_Deterministic(t *testing.T) {
	c := NewRuleClassifier()
	input := "my account was hacked and I can't login"

	first := c.Classify(context.Background(), input, "user001")
	for i := 0; i < 5; i++ {
		again := c.Classify(context.Background(), input, "user001")
		if again.Level != first.Level || again.Confidence != first.Confidence {
			t.Fatalf("classification not deterministic: %+v vs %+v", first, again)
		}
	}
}

func TestRuleClassifier_MarkupStripped(t *testing.T) {
	c := NewRuleClassifier()

	plain := c.Classify(context.Background(), "someone hacked my account", "u")
	markup := c.Classify(context.Background(), "<p>someone hacked my account</p><script>var x</script>", "u")
	if plain.Level != markup.Level {
		t.Errorf("markup changed classification: %d vs %d", plain.Level, markup.Level)
	}
}

func TestMarginConfidence(t *testing.T) {
	tests := []struct {
		top, second, want float64
	}{
		{0, 0, 0},
		{5, 0, 1},
		{4, 2, 0.5},
		{3, 3, 0},
	}

	for _, tt := range tests {
		got := marginConfidence(tt.top, tt.second)
		if got != tt.want {
			t.Errorf("marginConfidence(%f, %f) = %f, want %f", tt.top, tt.second, got, tt.want)
		}
	}
}
