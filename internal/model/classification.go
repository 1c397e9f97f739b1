package model

import "time"

// ClassificationResult is the outcome of classifying one user report.
// Immutable once produced; bus payloads reference it, never mutate it.
type ClassificationResult struct {
	Level      int       `json:"level"`       // Severity level (1-5)
	Confidence float64   `json:"confidence"`  // Normalized confidence (0-1)
	Rationale  string    `json:"rationale"`   // Which rules fired and why
	SourceText string    `json:"source_text"` // The report text that was classified
	UserID     string    `json:"user_id"`     // Reporting user
	Timestamp  time.Time `json:"timestamp"`   // When classification happened
}

// SimilarityMatch identifies a prior incident that likely describes
// the same underlying problem as a new report.
type SimilarityMatch struct {
	IncidentID  string  `json:"incident_id"`  // Matched prior incident
	Score       float64 `json:"score"`        // Similarity score (0-1)
	MatchedText string  `json:"matched_text"` // Description of the matched incident
}

// EscalationSignal indicates a user's recent reports show rising or
// critical severity.
type EscalationSignal struct {
	UserID          string                 `json:"user_id"`
	TriggeringLevel int                    `json:"triggering_level"` // Level of the report that tripped the rule
	Window          []ClassificationResult `json:"window"`           // Snapshot of the user's recent window
	Recommendation  string                 `json:"recommendation"`   // Suggested operator action
}

// Recommendation strings attached to escalation signals.
const (
	RecommendImmediate = "Consider immediate human intervention"
	RecommendSenior    = "Escalate to senior support"
	RecommendMonitor   = "Continue normal monitoring"
)

// MinLevel and MaxLevel bound the severity scale.
const (
	MinLevel = 1
	MaxLevel = 5
)

// LevelDescription returns the human description for a severity level.
func LevelDescription(level int) string {
	switch level {
	case 1:
		return "Simple FAQ questions (how-to, information requests)"
	case 2:
		return "Common technical/account issues (crashes, login problems)"
	case 3:
		return "Unstructured but solvable problems (save corruption, gameplay issues)"
	case 4:
		return "Security/fraud issues (hacking, stolen items)"
	case 5:
		return "Critical emergencies (doxxing, legal issues, server outages)"
	default:
		return "Unknown level"
	}
}
