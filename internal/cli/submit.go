package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/triage/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	dbPath        string
	submitTimeout time.Duration
	llmEnabled    bool
	llmProvider   string
	llmModel      string
)

// submitCmd represents the submit command
var submitCmd = &cobra.Command{
	Use:   "submit <userID> <report text...>",
	Short: "Classify one issue report and record the incident",
	Long: `Submit runs one report through the triage pipeline:
- Classify the text into a severity level (1-5) with a rationale
- Match it against the user's prior incidents for duplicates
- Update the user's escalation window and flag rising trends
- Persist the incident and evaluate repeat-issue notifications

Example:
  triage submit user001 "app crashes on login"
  triage submit user001 "someone hacked my account" --llm
  triage submit user001 "server is down" --db ./support.db`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSubmit,
}

func init() {
	rootCmd.AddCommand(submitCmd)

	submitCmd.Flags().StringVar(&dbPath, "db", "", "incident database path (default: triage.db)")
	submitCmd.Flags().DurationVar(&submitTimeout, "timeout", 30*time.Second, "overall submission timeout")

	// LLM flags
	submitCmd.Flags().BoolVar(&llmEnabled, "llm", false, "classify with the LLM scorer instead of the rule engine")
	submitCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai)")
	submitCmd.Flags().StringVar(&llmModel, "llm-model", "gpt-4o-mini", "LLM model name")
}

// buildConfig assembles the effective configuration from defaults,
// config file values, and flags.
func buildConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()

	if path := viper.GetString("store.path"); path != "" {
		cfg.Store.Path = path
	}
	if dbPath != "" {
		cfg.Store.Path = dbPath
	}
	if threshold := viper.GetFloat64("duplicate.threshold"); threshold > 0 {
		cfg.Duplicate.Threshold = threshold
	}

	if llmEnabled {
		cfg.LLM.Provider = llmProvider
		cfg.LLM.Model = llmModel
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		if cfg.LLM.APIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	}

	return cfg, nil
}

func runSubmit(cmd *cobra.Command, args []string) error {
	userID := args[0]
	text := strings.Join(args[1:], " ")

	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()

	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if verbose {
		fmt.Fprintf(os.Stderr, "Database: %s\n", cfg.Store.Path)
		fmt.Fprintf(os.Stderr, "Duplicate threshold: %.2f\n\n", cfg.Duplicate.Threshold)
	}

	result, err := a.dispatcher.SubmitForUser(ctx, text, userID)
	if err != nil {
		return fmt.Errorf("submit failed: %w", err)
	}

	fmt.Printf("Level:      %d - %s\n", result.Level, model.LevelDescription(result.Level))
	fmt.Printf("Confidence: %.2f\n", result.Confidence)
	fmt.Printf("Rationale:  %s\n", result.Rationale)

	// The pipeline's side effects are on the bus; report them from history
	if classified := a.bus.History(model.TopicClassificationComplete, 0); len(classified) > 0 {
		payload := classified[len(classified)-1].Payload.(model.ClassificationPayload)
		if payload.Match != nil {
			fmt.Printf("Duplicate:  %s (similarity %.2f)\n", payload.Match.IncidentID, payload.Match.Score)
		}
	}
	if created := a.bus.History(model.TopicBugReportCreated, 0); len(created) > 0 {
		payload := created[len(created)-1].Payload.(model.BugReportPayload)
		fmt.Printf("Incident:   %s", payload.IncidentID)
		if payload.IsRepeatOfResolved {
			fmt.Printf(" (repeat of resolved %s)", payload.OriginalIncidentID)
		}
		fmt.Println()
	}
	for _, event := range a.bus.History(model.TopicEscalationDetected, 0) {
		signal := event.Payload.(model.EscalationSignal)
		fmt.Printf("Escalation: level %d trend - %s\n", signal.TriggeringLevel, signal.Recommendation)
	}
	fmt.Printf("Standing:   %s\n", a.dispatcher.Assess(userID))

	return nil
}
