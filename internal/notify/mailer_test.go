package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/triage/internal/model"
)

type fakeDeliverer struct {
	to, subject, body string
	succeed           bool
	delay             time.Duration
	calls             int
}

func (f *fakeDeliverer) Deliver(to, subject, body string) bool {
	f.calls++
	f.to, f.subject, f.body = to, subject, body
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.succeed
}

func testConfig() model.NotificationConfig {
	return model.NotificationConfig{
		Cap:            3,
		Window:         time.Hour,
		DeliverTimeout: time.Second,
		SendsPerSecond: 1000, // effectively unpaced in tests
		SupportEmail:   "support@example.com",
		SenderEmail:    "noreply@example.com",
	}
}

func TestMailer_SendsAlert(t *testing.T) {
	d := &fakeDeliverer{succeed: true}
	m := NewMailer(d, testConfig())

	err := m.SendRepeatAlert(context.Background(), Alert{
		UserID:             "user001",
		UserEmail:          "u@example.com",
		IncidentID:         "BUG-00003",
		OriginalIncidentID: "BUG-00001",
		Level:              2,
		Description:        "app still crashes on login",
	})
	if err != nil {
		t.Fatalf("SendRepeatAlert failed: %v", err)
	}

	if d.to != "support@example.com" {
		t.Errorf("expected support address, got %s", d.to)
	}
	if !strings.Contains(d.subject, "user001") {
		t.Errorf("subject should name the user: %q", d.subject)
	}
	for _, want := range []string{"BUG-00003", "BUG-00001", "app still crashes on login", "u@example.com"} {
		if !strings.Contains(d.body, want) {
			t.Errorf("body missing %q:\n%s", want, d.body)
		}
	}
}

func TestMailer_TransportFailureSurfaced(t *testing.T) {
	d := &fakeDeliverer{succeed: false}
	m := NewMailer(d, testConfig())

	err := m.SendRepeatAlert(context.Background(), Alert{UserID: "u", IncidentID: "BUG-00001"})
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Errorf("expected ErrDeliveryFailed, got %v", err)
	}
}

func TestMailer_TimeoutBoundsSlowTransport(t *testing.T) {
	cfg := testConfig()
	cfg.DeliverTimeout = 50 * time.Millisecond
	d := &fakeDeliverer{succeed: true, delay: 500 * time.Millisecond}
	m := NewMailer(d, cfg)

	start := time.Now()
	err := m.SendRepeatAlert(context.Background(), Alert{UserID: "u", IncidentID: "BUG-00001"})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 300*time.Millisecond {
		t.Errorf("send should return at the timeout, took %v", elapsed)
	}
}

func TestMailer_CancelledContext(t *testing.T) {
	d := &fakeDeliverer{succeed: true}
	m := NewMailer(d, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := m.SendRepeatAlert(ctx, Alert{UserID: "u"}); err == nil {
		t.Error("expected error for cancelled context")
	}
}
