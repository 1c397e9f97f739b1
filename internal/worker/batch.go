package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/triage/internal/model"
)

// Submitter runs one report through the triage pipeline.
type Submitter interface {
	SubmitForUser(ctx context.Context, text, userID string) (model.ClassificationResult, error)
}

// Report is one batch intake line: a user id and the report text.
type Report struct {
	UserID string
	Text   string
}

// ReportJob submits one report through the pipeline.
type ReportJob struct {
	Report    Report
	Submitter Submitter
}

// Execute runs the submission.
func (j *ReportJob) Execute(ctx context.Context) Result {
	result, err := j.Submitter.SubmitForUser(ctx, j.Report.Text, j.Report.UserID)
	return &ReportResult{
		Report: j.Report,
		Result: result,
		Error:  err,
	}
}

// ReportResult is the outcome of one batch submission.
type ReportResult struct {
	Report Report
	Result model.ClassificationResult
	Error  error
}

// GetError returns the submission error, if any.
func (r *ReportResult) GetError() error {
	return r.Error
}

// BatchProcessor pushes many reports through the pipeline concurrently.
// Reports for the same user may run on different workers; ordering
// within a batch is not guaranteed.
type BatchProcessor struct {
	submitter   Submitter
	concurrency int
}

// NewBatchProcessor creates a batch processor with the given concurrency.
func NewBatchProcessor(submitter Submitter, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		submitter:   submitter,
		concurrency: concurrency,
	}
}

// ProcessReports submits all reports on the pool and collects results.
func (b *BatchProcessor) ProcessReports(ctx context.Context, reports []Report) []*ReportResult {
	if len(reports) == 0 {
		return []*ReportResult{}
	}

	pool := NewPool(b.concurrency)
	pool.Start()

	for _, report := range reports {
		pool.Submit(&ReportJob{
			Report:    report,
			Submitter: b.submitter,
		})
	}

	results := pool.Wait()

	reportResults := make([]*ReportResult, len(results))
	for i, result := range results {
		reportResults[i] = result.(*ReportResult)
	}

	return reportResults
}

// ProcessFile reads reports from a file and processes them concurrently.
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*ReportResult, error) {
	reports, err := ReadReportsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read reports: %w", err)
	}

	return b.ProcessReports(ctx, reports), nil
}

// ReadReportsFromFile parses a report file: one report per line, the
// user id and text separated by a tab. Empty lines and lines starting
// with # are skipped.
func ReadReportsFromFile(filePath string) ([]Report, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var reports []Report
	lineNo := 0

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		userID, text, found := strings.Cut(line, "\t")
		if !found || strings.TrimSpace(userID) == "" || strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("line %d: expected \"userID<TAB>text\", got %q", lineNo, line)
		}

		reports = append(reports, Report{
			UserID: strings.TrimSpace(userID),
			Text:   strings.TrimSpace(text),
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return reports, nil
}
