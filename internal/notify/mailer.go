package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ppiankov/triage/internal/model"
)

// Deliverer is the external email transport capability. It reports
// delivery success; transport mechanics live outside the core.
type Deliverer interface {
	Deliver(to, subject, body string) bool
}

// ErrDeliveryFailed is returned when the transport reports failure.
var ErrDeliveryFailed = fmt.Errorf("delivery failed")

// Alert describes a repeated-issue notification for the support team.
type Alert struct {
	UserID             string
	UserEmail          string
	IncidentID         string
	OriginalIncidentID string
	Level              int
	Description        string
}

// Mailer builds and sends support alerts. Outbound sends are paced
// globally and bounded by a timeout; the transport call runs outside any
// lock.
type Mailer struct {
	deliverer Deliverer
	pacer     *rate.Limiter
	timeout   time.Duration
	support   string
	sender    string
}

// NewMailer creates a mailer sending to the support address, pacing
// outbound deliveries at sendsPerSecond.
func NewMailer(deliverer Deliverer, cfg model.NotificationConfig) *Mailer {
	perSecond := cfg.SendsPerSecond
	if perSecond <= 0 {
		perSecond = 1
	}
	timeout := cfg.DeliverTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Mailer{
		deliverer: deliverer,
		pacer:     rate.NewLimiter(rate.Limit(perSecond), 1),
		timeout:   timeout,
		support:   cfg.SupportEmail,
		sender:    cfg.SenderEmail,
	}
}

// SendRepeatAlert notifies the support team that a previously resolved
// issue has resurfaced. It waits for pacing clearance, then invokes the
// delivery capability with a bounded timeout. A timeout or transport
// failure is surfaced to the caller; nothing upstream is rolled back.
func (m *Mailer) SendRepeatAlert(ctx context.Context, alert Alert) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if err := m.pacer.Wait(ctx); err != nil {
		return fmt.Errorf("pacing wait: %w", err)
	}

	subject := fmt.Sprintf("[Triage] Repeated issue from %s (level %d)", alert.UserID, alert.Level)
	body := buildRepeatAlertBody(alert, m.sender)

	done := make(chan bool, 1)
	go func() {
		done <- m.deliverer.Deliver(m.support, subject, body)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("delivery timed out: %w", ctx.Err())
	case ok := <-done:
		if !ok {
			return ErrDeliveryFailed
		}
		return nil
	}
}

// buildRepeatAlertBody renders the alert email. It carries the original
// incident context so support can pick up where the resolution left off.
func buildRepeatAlertBody(alert Alert, sender string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "A user is reporting an issue that was previously marked Resolved.\n\n")
	fmt.Fprintf(&b, "User:              %s", alert.UserID)
	if alert.UserEmail != "" {
		fmt.Fprintf(&b, " <%s>", alert.UserEmail)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "New incident:      %s (level %d - %s)\n",
		alert.IncidentID, alert.Level, model.LevelDescription(alert.Level))
	if alert.OriginalIncidentID != "" {
		fmt.Fprintf(&b, "Original incident: %s\n", alert.OriginalIncidentID)
	}
	fmt.Fprintf(&b, "\nReported issue:\n%s\n", alert.Description)
	fmt.Fprintf(&b, "\nPlease review the original resolution before responding.\n")
	fmt.Fprintf(&b, "-- %s\n", sender)

	return b.String()
}
