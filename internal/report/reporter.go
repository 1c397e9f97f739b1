// Package report implements the reporting collaborator: it listens for
// completed classifications, persists incidents, and closes the loop by
// publishing bug_report_created back onto the bus.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/triage/internal/bus"
	"github.com/ppiankov/triage/internal/model"
	"github.com/ppiankov/triage/internal/store"
)

// Reporter subscribes to classification_complete, persists or updates
// the incident, and publishes bug_report_created once persisted. It
// never calls other components directly: everything crosses the bus.
type Reporter struct {
	store store.Store
	bus   *bus.EventBus
	subID int64
	now   func() time.Time
}

// New creates a reporter over the given store and bus.
func New(st store.Store, eventBus *bus.EventBus) *Reporter {
	return &Reporter{
		store: st,
		bus:   eventBus,
		now:   time.Now,
	}
}

// Start subscribes the reporter to classification_complete.
func (r *Reporter) Start() {
	r.subID = r.bus.Subscribe(model.TopicClassificationComplete, r.onClassification)
}

// Stop unsubscribes the reporter.
func (r *Reporter) Stop() {
	r.bus.Unsubscribe(r.subID)
}

// onClassification persists the classified report. A duplicate of a
// still-open incident attaches the new level to the existing record and
// publishes nothing, so bug_report_created fires at most once per
// incident. A duplicate of a resolved incident is a genuine repeat and
// gets a fresh record flagged isRepeatOfResolved.
func (r *Reporter) onClassification(event model.Event) error {
	payload, ok := event.Payload.(model.ClassificationPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", event.Payload)
	}

	ctx := context.Background()
	result := payload.Result

	repeatOfResolved := false
	originalID := ""

	if payload.Match != nil {
		matched, err := r.matchedIncident(ctx, result.UserID, payload.Match.IncidentID)
		if err != nil {
			return err
		}

		switch {
		case matched == nil:
			// Matched incident vanished; fall through to a new record
		case matched.Status == model.StatusResolved || matched.Status == model.StatusClosed:
			repeatOfResolved = true
			originalID = matched.ID
		default:
			// Duplicate of a live incident: attach the level to the
			// existing record instead of opening a new one. Its
			// bug_report_created already fired, so none here.
			if err := r.store.UpdateLevel(ctx, matched.ID, result.Level); err != nil {
				return fmt.Errorf("attach level to %s: %w", matched.ID, err)
			}
			return nil
		}
	}

	inc, err := r.store.CreateIncident(ctx, model.Incident{
		UserID:       result.UserID,
		Category:     GuessCategory(result.SourceText),
		Description:  result.SourceText,
		DateObserved: r.now().UTC().Format("2006-01-02"),
		Level:        result.Level,
	})
	if err != nil {
		return fmt.Errorf("create incident: %w", err)
	}

	r.bus.Publish(model.TopicBugReportCreated, model.BugReportPayload{
		IncidentID:         inc.ID,
		UserID:             result.UserID,
		Level:              result.Level,
		IsRepeatOfResolved: repeatOfResolved,
		OriginalIncidentID: originalID,
		Description:        result.SourceText,
	})

	return nil
}

// matchedIncident looks up the matched incident among the user's records.
func (r *Reporter) matchedIncident(ctx context.Context, userID, incidentID string) (*model.Incident, error) {
	incidents, err := r.store.IncidentsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load incidents for %s: %w", userID, err)
	}
	for i := range incidents {
		if incidents[i].ID == incidentID {
			return &incidents[i], nil
		}
	}
	return nil, nil
}

// GuessCategory assigns an incident category from the report text,
// mirroring the support desk's category guidance: account and access
// words map to Account, infrastructure words to Platform, application
// faults to Software, everything else to Other.
func GuessCategory(text string) string {
	lower := strings.ToLower(text)

	for _, kw := range []string{"login", "log in", "sign in", "password", "account", "permission", "profile"} {
		if strings.Contains(lower, kw) {
			return model.CategoryAccount
		}
	}
	for _, kw := range []string{"server", "outage", "connection", "connectivity", "website slow", "infrastructure", "down"} {
		if strings.Contains(lower, kw) {
			return model.CategoryPlatform
		}
	}
	for _, kw := range []string{"crash", "bug", "error", "save", "freeze", "glitch", "feature", "button", "app"} {
		if strings.Contains(lower, kw) {
			return model.CategorySoftware
		}
	}
	return model.CategoryOther
}
