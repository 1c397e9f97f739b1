package cli

import (
	"fmt"
	"os"

	"github.com/ppiankov/triage/internal/bus"
	"github.com/ppiankov/triage/internal/classify"
	"github.com/ppiankov/triage/internal/dispatch"
	"github.com/ppiankov/triage/internal/escalate"
	"github.com/ppiankov/triage/internal/match"
	"github.com/ppiankov/triage/internal/model"
	"github.com/ppiankov/triage/internal/notify"
	"github.com/ppiankov/triage/internal/report"
	"github.com/ppiankov/triage/internal/store"
)

// app wires the full triage loop for a CLI invocation: store, bus,
// reporter, and dispatcher, with alerts rendered to stderr.
type app struct {
	cfg        *model.Config
	store      *store.SQLiteStore
	bus        *bus.EventBus
	dispatcher *dispatch.Dispatcher
	reporter   *report.Reporter
}

// newApp builds and starts the pipeline from cfg.
func newApp(cfg *model.Config) (*app, error) {
	classifier, err := classify.NewClassifier(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("create classifier: %w", err)
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open incident store: %w", err)
	}

	eventBus := bus.New(cfg.Bus.HistorySize)

	reporter := report.New(st, eventBus)
	reporter.Start()

	dispatcher := dispatch.New(
		classifier,
		match.NewMatcher(),
		escalate.NewDetector(cfg.Escalation.WindowSize, cfg.Escalation.Horizon),
		eventBus,
		notify.NewRateLimiter(cfg.Notification.Cap, cfg.Notification.Window),
		notify.NewMailer(notify.NewConsoleDeliverer(os.Stderr), cfg.Notification),
		st,
		cfg.Duplicate.Threshold,
	)
	dispatcher.Start()

	return &app{
		cfg:        cfg,
		store:      st,
		bus:        eventBus,
		dispatcher: dispatcher,
		reporter:   reporter,
	}, nil
}

// Close stops the pipeline and releases the store.
func (a *app) Close() {
	a.dispatcher.Stop()
	a.reporter.Stop()
	if err := a.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: close store: %v\n", err)
	}
}
