package model

import "time"

// Config holds all tunables for the triage core. Components receive the
// values they need at construction; nothing in the core reads the
// environment directly.
type Config struct {
	Duplicate    DuplicateConfig    `yaml:"duplicate" json:"duplicate"`
	Escalation   EscalationConfig   `yaml:"escalation" json:"escalation"`
	Notification NotificationConfig `yaml:"notification" json:"notification"`
	Bus          BusConfig          `yaml:"bus" json:"bus"`
	Store        StoreConfig        `yaml:"store" json:"store"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" json:"concurrency"`
	LLM          LLMConfig          `yaml:"llm" json:"llm"`
}

// DuplicateConfig tunes the similarity matcher.
type DuplicateConfig struct {
	Threshold float64 `yaml:"threshold" json:"threshold"` // Minimum score to call a duplicate
}

// EscalationConfig tunes the escalation detector.
type EscalationConfig struct {
	WindowSize int           `yaml:"window_size" json:"window_size"` // Max results kept per user
	Horizon    time.Duration `yaml:"horizon" json:"horizon"`         // Max age of a kept result
}

// NotificationConfig tunes the rate limiter and mailer.
type NotificationConfig struct {
	Cap            int           `yaml:"cap" json:"cap"`               // Max notifications per user per window
	Window         time.Duration `yaml:"window" json:"window"`         // Sliding window length
	DeliverTimeout time.Duration `yaml:"deliver_timeout" json:"deliver_timeout"`
	SendsPerSecond float64       `yaml:"sends_per_second" json:"sends_per_second"` // Outbound pacing
	SupportEmail   string        `yaml:"support_email" json:"support_email"`
	SenderEmail    string        `yaml:"sender_email" json:"sender_email"`
}

// BusConfig tunes the event bus.
type BusConfig struct {
	HistorySize int `yaml:"history_size" json:"history_size"` // Retained events per topic
}

// StoreConfig tunes incident persistence.
type StoreConfig struct {
	Path string `yaml:"path" json:"path"` // SQLite database path
}

// ConcurrencyConfig tunes batch processing.
type ConcurrencyConfig struct {
	BatchWorkers int `yaml:"batch_workers" json:"batch_workers"`
}

// LLMConfig configures the optional LLM-assisted severity scorer.
// Disabled when Provider is empty; the rule engine never needs it.
type LLMConfig struct {
	Provider  string `yaml:"provider" json:"provider"` // "openai" or ""
	Model     string `yaml:"model" json:"model"`
	APIKey    string `yaml:"api_key" json:"api_key"`
	BaseURL   string `yaml:"base_url" json:"base_url"`
	Timeout   int    `yaml:"timeout" json:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" json:"max_tokens"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Duplicate: DuplicateConfig{
			Threshold: 0.50,
		},
		Escalation: EscalationConfig{
			WindowSize: 5,
			Horizon:    24 * time.Hour,
		},
		Notification: NotificationConfig{
			Cap:            3,
			Window:         time.Hour,
			DeliverTimeout: 10 * time.Second,
			SendsPerSecond: 1,
			SupportEmail:   "support@example.com",
			SenderEmail:    "noreply@example.com",
		},
		Bus: BusConfig{
			HistorySize: 1000,
		},
		Store: StoreConfig{
			Path: "triage.db",
		},
		Concurrency: ConcurrencyConfig{
			BatchWorkers: 4,
		},
		LLM: LLMConfig{
			Provider:  "",
			Timeout:   30,
			MaxTokens: 256,
		},
	}
}
