package cli

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/ppiankov/triage/internal/model"
	"github.com/ppiankov/triage/internal/worker"
	"github.com/spf13/cobra"
)

var (
	concurrency  int
	batchTimeout time.Duration
	batchDBPath  string
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Process a file of issue reports in parallel",
	Long: `Batch pushes many reports through the triage pipeline concurrently:
- Read reports from the input file (one "userID<TAB>text" per line)
- Classify, duplicate-match, and record escalation per report
- Persist incidents and evaluate notifications as usual

Example:
  triage batch reports.tsv
  triage batch reports.tsv --concurrency 8 --db ./support.db`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().StringVar(&batchDBPath, "db", "", "incident database path (default: triage.db)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	cfg := model.DefaultConfig()
	if batchDBPath != "" {
		cfg.Store.Path = batchDBPath
	}
	cfg.Concurrency.BatchWorkers = concurrency

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Triage Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:  %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:     %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Database:    %s\n", cfg.Store.Path)
	fmt.Fprintf(os.Stderr, "\n")

	processor := worker.NewBatchProcessor(a.dispatcher, cfg.Concurrency.BatchWorkers)

	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	successCount := 0
	failureCount := 0

	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Report.UserID, result.Error)
			continue
		}
		successCount++
		fmt.Fprintf(os.Stderr, "✓ %s: level %d (%.2f) %q\n",
			result.Report.UserID, result.Result.Level, result.Result.Confidence,
			result.Report.Text)
	}

	// Publish and render the post-batch metrics snapshot
	a.bus.PublishMetrics()
	metrics := a.bus.Metrics()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:        %d reports\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:      %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:     %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Bus events:   %d\n", metrics.TotalEvents)
	for _, topic := range model.Topics() {
		if count := metrics.PerTopic[topic]; count > 0 {
			fmt.Fprintf(os.Stderr, "    %-24s %d\n", topic, count)
		}
	}
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}
