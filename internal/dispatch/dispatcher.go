// Package dispatch orchestrates the triage pipeline for one submission:
// classify and duplicate-match concurrently, record escalation state,
// publish events in a fixed order, and gate repeat-issue notifications
// through the rate limiter.
package dispatch

import (
	"context"
	"fmt"
	"os"

	"github.com/ppiankov/triage/internal/bus"
	"github.com/ppiankov/triage/internal/classify"
	"github.com/ppiankov/triage/internal/escalate"
	"github.com/ppiankov/triage/internal/match"
	"github.com/ppiankov/triage/internal/model"
	"github.com/ppiankov/triage/internal/notify"
	"github.com/ppiankov/triage/internal/store"
)

// Dispatcher coordinates the pipeline components. It owns no analysis
// logic of its own: it sequences calls, publishes results, and reacts to
// bug_report_created events with rate-limited support alerts.
type Dispatcher struct {
	classifier classify.Classifier
	matcher    *match.Matcher
	detector   *escalate.Detector
	bus        *bus.EventBus
	limiter    *notify.RateLimiter
	mailer     *notify.Mailer
	store      store.Store
	threshold  float64
	subID      int64
}

// New wires a dispatcher from its collaborators. The mailer may be nil
// when no delivery transport is configured; repeat alerts are then
// dropped after the rate-limit decision.
func New(
	classifier classify.Classifier,
	matcher *match.Matcher,
	detector *escalate.Detector,
	eventBus *bus.EventBus,
	limiter *notify.RateLimiter,
	mailer *notify.Mailer,
	st store.Store,
	duplicateThreshold float64,
) *Dispatcher {
	return &Dispatcher{
		classifier: classifier,
		matcher:    matcher,
		detector:   detector,
		bus:        eventBus,
		limiter:    limiter,
		mailer:     mailer,
		store:      st,
		threshold:  duplicateThreshold,
	}
}

// Start subscribes the dispatcher to bug_report_created so it can
// evaluate notification thresholds once the reporting collaborator has
// persisted the incident.
func (d *Dispatcher) Start() {
	d.subID = d.bus.Subscribe(model.TopicBugReportCreated, d.onBugReportCreated)
}

// Stop unsubscribes the dispatcher.
func (d *Dispatcher) Stop() {
	d.bus.Unsubscribe(d.subID)
}

// Submit runs one report through the pipeline. The classifier and the
// duplicate matcher are independent and run concurrently; their results
// feed the escalation detector, then classification_complete and (when
// an escalation rule fires) escalation_detected are published in that
// order.
// Events already published are never retracted on a later failure.
func (d *Dispatcher) Submit(ctx context.Context, text, userID string, priorIncidents []match.Candidate) (model.ClassificationResult, error) {
	if err := ctx.Err(); err != nil {
		return model.ClassificationResult{}, fmt.Errorf("submit: %w", err)
	}

	type matchOutcome struct {
		match *model.SimilarityMatch
		err   error
	}

	// The scorer is pluggable; a panic there fails this submission only
	matchCh := make(chan matchOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				matchCh <- matchOutcome{err: fmt.Errorf("similarity scoring panic: %v", r)}
			}
		}()
		matchCh <- matchOutcome{match: d.matcher.FindDuplicate(text, priorIncidents, d.threshold)}
	}()

	result := d.classifier.Classify(ctx, text, userID)

	outcome := <-matchCh
	if outcome.err != nil {
		return model.ClassificationResult{}, fmt.Errorf("match duplicates: %w", outcome.err)
	}
	duplicate := outcome.match

	signal := d.detector.Record(result)

	d.bus.Publish(model.TopicClassificationComplete, model.ClassificationPayload{
		Result: result,
		Match:  duplicate,
	})
	if signal != nil {
		d.bus.Publish(model.TopicEscalationDetected, *signal)
	}

	return result, nil
}

// SubmitForUser loads the user's prior incidents from the store and
// submits. Candidates are ordered newest first, so score ties resolve to
// the most recent incident.
func (d *Dispatcher) SubmitForUser(ctx context.Context, text, userID string) (model.ClassificationResult, error) {
	priors, err := d.store.IncidentsForUser(ctx, userID)
	if err != nil {
		return model.ClassificationResult{}, fmt.Errorf("load prior incidents: %w", err)
	}
	return d.Submit(ctx, text, userID, Candidates(priors))
}

// Assess reports the user's current escalation standing from the
// detector window without recording a new result.
func (d *Dispatcher) Assess(userID string) string {
	return d.detector.Assess(userID)
}

// Candidates converts stored incidents into matcher candidates,
// preserving order.
func Candidates(incidents []model.Incident) []match.Candidate {
	out := make([]match.Candidate, 0, len(incidents))
	for _, inc := range incidents {
		out = append(out, match.Candidate{ID: inc.ID, Text: inc.Description})
	}
	return out
}

// onBugReportCreated evaluates notification thresholds for a persisted
// incident. Only a repeat of a resolved issue is notification-eligible;
// the rate limiter decides per user, and a denial suppresses the send
// without error. The delivery itself runs outside all pipeline locks.
func (d *Dispatcher) onBugReportCreated(event model.Event) error {
	payload, ok := event.Payload.(model.BugReportPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", event.Payload)
	}

	if !payload.IsRepeatOfResolved {
		return nil
	}

	if !d.limiter.TryConsume(payload.UserID) {
		fmt.Fprintf(os.Stderr, "Warning: notification for %s suppressed by rate limit (user %s)\n",
			payload.IncidentID, payload.UserID)
		return nil
	}

	if d.mailer == nil {
		return nil
	}

	alert := notify.Alert{
		UserID:             payload.UserID,
		IncidentID:         payload.IncidentID,
		OriginalIncidentID: payload.OriginalIncidentID,
		Level:              payload.Level,
		Description:        payload.Description,
	}
	if err := d.mailer.SendRepeatAlert(context.Background(), alert); err != nil {
		return fmt.Errorf("send repeat alert for %s: %w", payload.IncidentID, err)
	}
	return nil
}
