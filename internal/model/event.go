package model

import "time"

// Topic names a channel on the event bus.
type Topic string

const (
	TopicClassificationComplete Topic = "classification_complete"
	TopicBugReportCreated       Topic = "bug_report_created"
	TopicEscalationDetected     Topic = "escalation_detected"
	TopicMetricsUpdate          Topic = "metrics_update"
)

// Topics lists every topic the bus carries, in a stable order.
func Topics() []Topic {
	return []Topic{
		TopicClassificationComplete,
		TopicBugReportCreated,
		TopicEscalationDetected,
		TopicMetricsUpdate,
	}
}

// Event is one published message. Immutable once published; the bus
// owns the canonical history.
type Event struct {
	Topic     Topic       `json:"topic"`
	Payload   interface{} `json:"payload"`
	Sequence  uint64      `json:"sequence"` // Strictly increasing, globally unique
	Timestamp time.Time   `json:"timestamp"`
}

// ClassificationPayload is the payload of classification_complete.
type ClassificationPayload struct {
	Result ClassificationResult `json:"result"`
	Match  *SimilarityMatch     `json:"match,omitempty"` // Duplicate candidate, if any
}

// BugReportPayload is the payload of bug_report_created, published by
// the reporting collaborator after the incident is persisted.
type BugReportPayload struct {
	IncidentID         string `json:"incident_id"`
	UserID             string `json:"user_id"`
	Level              int    `json:"level"`
	IsRepeatOfResolved bool   `json:"is_repeat_of_resolved"` // Same issue resurfacing after resolution
	OriginalIncidentID string `json:"original_incident_id,omitempty"`
	Description        string `json:"description,omitempty"`
}

// HandlerStats counts outcomes for one subscription.
type HandlerStats struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
}

// Metrics is a point-in-time snapshot of bus activity.
type Metrics struct {
	TotalEvents   uint64                 `json:"total_events"`
	PerTopic      map[Topic]int          `json:"per_topic"`
	PerHandler    map[int64]HandlerStats `json:"per_handler"`
	LastEventTime time.Time              `json:"last_event_time"`
}
