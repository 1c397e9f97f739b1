// Package escalate watches per-user classification history for rising or
// critical severity trends.
package escalate

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ppiankov/triage/internal/model"
)

// userWindow is one user's rolling classification history. Each window
// carries its own lock so concurrent submissions from different users
// never contend; same-user submissions serialize on it.
type userWindow struct {
	mu      sync.Mutex
	results []model.ClassificationResult
}

// Detector maintains rolling per-user windows and flags escalation
// trends. Windows for idle users are evicted after the horizon passes.
type Detector struct {
	windows    *gocache.Cache
	mu         sync.Mutex // guards window creation
	windowSize int
	horizon    time.Duration
	now        func() time.Time
}

// NewDetector creates a detector keeping the last windowSize results per
// user, no older than horizon.
func NewDetector(windowSize int, horizon time.Duration) *Detector {
	if windowSize <= 0 {
		windowSize = 5
	}
	if horizon <= 0 {
		horizon = 24 * time.Hour
	}

	return &Detector{
		windows:    gocache.New(horizon, horizon/2),
		windowSize: windowSize,
		horizon:    horizon,
		now:        time.Now,
	}
}

// Record appends result to the user's window, pruning expired entries
// first, and returns a signal when an escalation rule fires: the last
// three consecutive levels non-decreasing and reaching 4 or above, a
// majority of the window at level 4 or above, or any single level-5
// report.
func (d *Detector) Record(result model.ClassificationResult) *model.EscalationSignal {
	w := d.getWindow(result.UserID)

	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := d.now().Add(-d.horizon)
	w.results = prune(w.results, cutoff)

	w.results = append(w.results, result)
	if len(w.results) > d.windowSize {
		w.results = w.results[len(w.results)-d.windowSize:]
	}

	// Refresh the TTL so active users are never evicted mid-window
	d.windows.Set(result.UserID, w, gocache.DefaultExpiration)

	if !triggered(w.results) {
		return nil
	}

	snapshot := make([]model.ClassificationResult, len(w.results))
	copy(snapshot, w.results)

	return &model.EscalationSignal{
		UserID:          result.UserID,
		TriggeringLevel: result.Level,
		Window:          snapshot,
		Recommendation:  recommendationFor(w.results),
	}
}

// Assess grades the user's current window without recording anything:
// immediate intervention when an escalation rule holds, senior support
// when high-severity reports are concentrated, normal monitoring
// otherwise.
func (d *Detector) Assess(userID string) string {
	w := d.getWindow(userID)

	w.mu.Lock()
	defer w.mu.Unlock()

	return recommendationFor(w.results)
}

// History returns a copy of the user's current window.
func (d *Detector) History(userID string) []model.ClassificationResult {
	w := d.getWindow(userID)

	w.mu.Lock()
	defer w.mu.Unlock()

	snapshot := make([]model.ClassificationResult, len(w.results))
	copy(snapshot, w.results)
	return snapshot
}

// getWindow returns the window for userID, creating it if needed.
func (d *Detector) getWindow(userID string) *userWindow {
	if cached, found := d.windows.Get(userID); found {
		return cached.(*userWindow)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	// Double-check after acquiring the creation lock
	if cached, found := d.windows.Get(userID); found {
		return cached.(*userWindow)
	}

	w := &userWindow{}
	d.windows.Set(userID, w, gocache.DefaultExpiration)
	return w
}

// triggered evaluates the escalation rules over the pruned window. The
// trend and concentration rules need at least three results; a critical
// report stands alone.
func triggered(results []model.ClassificationResult) bool {
	if len(results) == 0 {
		return false
	}

	// Any critical report escalates immediately
	if results[len(results)-1].Level >= model.MaxLevel {
		return true
	}

	if len(results) < 3 {
		return false
	}

	if highSeverityRatio(results) > 0.5 {
		return true
	}

	last3 := results[len(results)-3:]
	nonDecreasing := last3[0].Level <= last3[1].Level && last3[1].Level <= last3[2].Level
	return nonDecreasing && last3[2].Level >= 4
}

// highSeverityRatio is the share of window entries at level 4 or above.
func highSeverityRatio(results []model.ClassificationResult) float64 {
	if len(results) == 0 {
		return 0
	}

	high := 0
	for _, r := range results {
		if r.Level >= 4 {
			high++
		}
	}
	return float64(high) / float64(len(results))
}

// recommendationFor grades a window: a triggered window calls for
// immediate intervention, a high-severity share above 0.3 escalates to
// senior support, everything else keeps normal monitoring.
func recommendationFor(results []model.ClassificationResult) string {
	if triggered(results) {
		return model.RecommendImmediate
	}
	if len(results) >= 3 && highSeverityRatio(results) > 0.3 {
		return model.RecommendSenior
	}
	return model.RecommendMonitor
}

func prune(results []model.ClassificationResult, cutoff time.Time) []model.ClassificationResult {
	kept := results[:0]
	for _, r := range results {
		if r.Timestamp.After(cutoff) {
			kept = append(kept, r)
		}
	}
	return kept
}
