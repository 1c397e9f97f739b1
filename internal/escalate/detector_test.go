package escalate

import (
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/triage/internal/model"
)

func result(userID string, level int, ts time.Time) model.ClassificationResult {
	return model.ClassificationResult{
		Level:     level,
		UserID:    userID,
		Timestamp: ts,
	}
}

func TestDetector_RisingTrendTriggersOnThird(t *testing.T) {
	d := NewDetector(5, 24*time.Hour)
	now := time.Now()

	if sig := d.Record(result("user001", 2, now)); sig != nil {
		t.Fatalf("unexpected signal on first record: %+v", sig)
	}
	if sig := d.Record(result("user001", 3, now)); sig != nil {
		t.Fatalf("unexpected signal on second record: %+v", sig)
	}

	sig := d.Record(result("user001", 4, now))
	if sig == nil {
		t.Fatal("expected signal on [2,3,4]")
	}
	if sig.UserID != "user001" {
		t.Errorf("expected user001, got %s", sig.UserID)
	}
	if sig.TriggeringLevel != 4 {
		t.Errorf("expected triggering level 4, got %d", sig.TriggeringLevel)
	}
	if len(sig.Window) != 3 {
		t.Errorf("expected window snapshot of 3, got %d", len(sig.Window))
	}
}

func TestDetector_SingleCriticalTriggersImmediately(t *testing.T) {
	d := NewDetector(5, 24*time.Hour)

	sig := d.Record(result("user001", 5, time.Now()))
	if sig == nil {
		t.Fatal("expected immediate signal for level 5")
	}
	if sig.TriggeringLevel != 5 {
		t.Errorf("expected triggering level 5, got %d", sig.TriggeringLevel)
	}
	if sig.Recommendation != model.RecommendImmediate {
		t.Errorf("unexpected recommendation %q", sig.Recommendation)
	}
}

func TestDetector_DecreasingTrendDoesNotTrigger(t *testing.T) {
	d := NewDetector(5, 24*time.Hour)
	now := time.Now()

	for _, level := range []int{4, 3, 2} {
		if sig := d.Record(result("user001", level, now)); sig != nil {
			t.Fatalf("unexpected signal for decreasing levels: %+v", sig)
		}
	}
}

func TestDetector_LowLevelsDoNotTrigger(t *testing.T) {
	d := NewDetector(5, 24*time.Hour)
	now := time.Now()

	for _, level := range []int{2, 2, 3} {
		if sig := d.Record(result("user001", level, now)); sig != nil {
			t.Fatalf("unexpected signal for [2,2,3]: %+v", sig)
		}
	}
}

func TestDetector_HighSeverityConcentrationTriggers(t *testing.T) {
	d := NewDetector(5, 24*time.Hour)
	now := time.Now()

	// [4,2,4] is not a non-decreasing run, but high levels hold the
	// majority of the window.
	d.Record(result("user001", 4, now))
	d.Record(result("user001", 2, now))

	sig := d.Record(result("user001", 4, now))
	if sig == nil {
		t.Fatal("expected signal when high levels dominate the window")
	}
	if sig.Recommendation != model.RecommendImmediate {
		t.Errorf("unexpected recommendation %q", sig.Recommendation)
	}
}

func TestDetector_Assess(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name   string
		levels []int
		want   string
	}{
		{"no history", nil, model.RecommendMonitor},
		{"calm window", []int{2, 2, 2}, model.RecommendMonitor},
		{"short history stays monitored", []int{4, 4}, model.RecommendMonitor},
		{"some high severity", []int{4, 2, 2}, model.RecommendSenior},
		{"high severity majority", []int{4, 4, 2}, model.RecommendImmediate},
		{"rising trend", []int{2, 3, 4}, model.RecommendImmediate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector(5, 24*time.Hour)
			for _, level := range tt.levels {
				d.Record(result("user001", level, now))
			}
			if got := d.Assess("user001"); got != tt.want {
				t.Errorf("Assess(%v) = %q, want %q", tt.levels, got, tt.want)
			}
		})
	}
}

func TestDetector_WindowCapacity(t *testing.T) {
	d := NewDetector(3, 24*time.Hour)
	now := time.Now()

	for i := 0; i < 10; i++ {
		d.Record(result("user001", 1, now))
	}

	if got := len(d.History("user001")); got != 3 {
		t.Errorf("expected window capped at 3, got %d", got)
	}
}

func TestDetector_HorizonPruning(t *testing.T) {
	d := NewDetector(5, 24*time.Hour)
	now := time.Now()

	// Two old high levels fall outside the horizon; the fresh level 4
	// alone must not complete a trend.
	d.Record(result("user001", 3, now.Add(-30*time.Hour)))
	d.Record(result("user001", 4, now.Add(-25*time.Hour)))

	sig := d.Record(result("user001", 4, now))
	if sig != nil {
		t.Errorf("expired entries should not contribute to the trend: %+v", sig)
	}
	if got := len(d.History("user001")); got != 1 {
		t.Errorf("expected 1 entry after pruning, got %d", got)
	}
}

func TestDetector_UsersIsolated(t *testing.T) {
	d := NewDetector(5, 24*time.Hour)
	now := time.Now()

	d.Record(result("alice", 2, now))
	d.Record(result("alice", 3, now))
	d.Record(result("bob", 4, now))

	// Bob's level 4 must not complete Alice's trend
	if sig := d.Record(result("bob", 4, now)); sig != nil {
		t.Errorf("bob has no 3-entry trend yet: %+v", sig)
	}

	sig := d.Record(result("alice", 4, now))
	if sig == nil {
		t.Error("alice's own [2,3,4] should trigger")
	}
}

func TestDetector_ConcurrentUsers(t *testing.T) {
	d := NewDetector(5, 24*time.Hour)
	now := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			userID := string(rune('a' + n))
			for j := 0; j < 50; j++ {
				d.Record(result(userID, 2, now))
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 8; i++ {
		userID := string(rune('a' + i))
		if got := len(d.History(userID)); got != 5 {
			t.Errorf("user %s: expected full window of 5, got %d", userID, got)
		}
	}
}
