package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/triage/internal/model"
)

// LLMClassifier scores severity with an OpenAI-compatible chat model.
// It honors the same contract as the rule engine: it never fails the
// caller. On any provider error it falls back to the wrapped rule
// classifier, so the pipeline stays deterministic when the model is
// unreachable.
type LLMClassifier struct {
	client   *openai.Client
	config   model.LLMConfig
	fallback *RuleClassifier
}

// NewLLMClassifier creates an LLM-backed classifier. Returns an error
// when the provider is misconfigured; a disabled provider (empty name)
// is a configuration error here — callers should construct the rule
// engine directly in that case.
func NewLLMClassifier(cfg model.LLMConfig) (*LLMClassifier, error) {
	if cfg.Provider != "openai" {
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai)", cfg.Provider)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &LLMClassifier{
		client:   openai.NewClientWithConfig(clientConfig),
		config:   cfg,
		fallback: NewRuleClassifier(),
	}, nil
}

// severityReply is the JSON shape the model is instructed to return.
type severityReply struct {
	Level      int     `json:"level"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

const severityPrompt = `Classify the severity of a user issue report on a 1-5 scale:
1 = simple FAQ question, 2 = common technical/account issue,
3 = unstructured but solvable problem, 4 = security/fraud issue,
5 = critical emergency (doxxing, legal, full outage).

Respond with only a JSON object: {"level": n, "confidence": 0.0-1.0, "rationale": "..."}.

Report:
`

// Classify asks the model for a severity judgment. Malformed or
// out-of-range replies and transport errors all fall back to the rule
// engine.
func (c *LLMClassifier) Classify(ctx context.Context, text, userID string) model.ClassificationResult {
	if strings.TrimSpace(text) == "" {
		return c.fallback.Classify(ctx, text, userID)
	}

	timeout := time.Duration(c.config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctxWithTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	chatModel := c.config.Model
	if chatModel == "" {
		chatModel = openai.GPT4oMini
	}
	maxTokens := c.config.MaxTokens
	if maxTokens == 0 {
		maxTokens = 256
	}

	resp, err := c.client.CreateChatCompletion(ctxWithTimeout, openai.ChatCompletionRequest{
		Model: chatModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a support triage assistant that classifies issue severity.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: severityPrompt + text,
			},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.1,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: LLM classification failed, using rule engine: %v\n", err)
		return c.fallback.Classify(ctx, text, userID)
	}
	if len(resp.Choices) == 0 {
		return c.fallback.Classify(ctx, text, userID)
	}

	var reply severityReply
	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: unparseable LLM reply, using rule engine\n")
		return c.fallback.Classify(ctx, text, userID)
	}
	if reply.Level < model.MinLevel || reply.Level > model.MaxLevel {
		return c.fallback.Classify(ctx, text, userID)
	}

	conf := reply.Confidence
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}

	return model.ClassificationResult{
		Level:      reply.Level,
		Confidence: conf,
		Rationale:  "llm: " + reply.Rationale,
		SourceText: text,
		UserID:     userID,
		Timestamp:  time.Now().UTC(),
	}
}

// NewClassifier builds the configured classifier: the LLM scorer when a
// provider is set, otherwise the rule engine.
func NewClassifier(cfg model.LLMConfig) (Classifier, error) {
	if cfg.Provider == "" {
		return NewRuleClassifier(), nil
	}
	return NewLLMClassifier(cfg)
}
