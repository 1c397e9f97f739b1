package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ppiankov/triage/internal/model"
)

// fakeSubmitter records submissions and returns a canned level.
type fakeSubmitter struct {
	mu      sync.Mutex
	seen    []Report
	failFor string
}

func (f *fakeSubmitter) SubmitForUser(_ context.Context, text, userID string) (model.ClassificationResult, error) {
	f.mu.Lock()
	f.seen = append(f.seen, Report{UserID: userID, Text: text})
	f.mu.Unlock()

	if userID == f.failFor {
		return model.ClassificationResult{}, fmt.Errorf("submit failed for %s", userID)
	}
	return model.ClassificationResult{Level: 2, UserID: userID, SourceText: text}, nil
}

func writeReportFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reports.tsv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadReportsFromFile(t *testing.T) {
	path := writeReportFile(t, "# intake batch\n"+
		"user001\tapp crashes on login\n"+
		"\n"+
		"user002\tserver is down\n")

	reports, err := ReadReportsFromFile(path)
	if err != nil {
		t.Fatalf("read reports: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
	if reports[0].UserID != "user001" || reports[0].Text != "app crashes on login" {
		t.Errorf("unexpected first report: %+v", reports[0])
	}
	if reports[1].UserID != "user002" {
		t.Errorf("unexpected second report: %+v", reports[1])
	}
}

func TestReadReportsFromFile_MalformedLine(t *testing.T) {
	path := writeReportFile(t, "user001 no tab separator here\n")

	if _, err := ReadReportsFromFile(path); err == nil {
		t.Error("expected error for line without tab separator")
	}
}

func TestReadReportsFromFile_Missing(t *testing.T) {
	if _, err := ReadReportsFromFile("/nonexistent/reports.tsv"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestBatchProcessor_ProcessReports(t *testing.T) {
	submitter := &fakeSubmitter{}
	b := NewBatchProcessor(submitter, 4)

	reports := make([]Report, 20)
	for i := range reports {
		reports[i] = Report{
			UserID: fmt.Sprintf("user%03d", i%5),
			Text:   fmt.Sprintf("issue number %d", i),
		}
	}

	results := b.ProcessReports(context.Background(), reports)

	if len(results) != len(reports) {
		t.Fatalf("expected %d results, got %d", len(reports), len(results))
	}
	for _, res := range results {
		if res.GetError() != nil {
			t.Errorf("unexpected error for %s: %v", res.Report.UserID, res.Error)
		}
		if res.Result.Level != 2 {
			t.Errorf("expected level 2, got %d", res.Result.Level)
		}
	}

	submitter.mu.Lock()
	defer submitter.mu.Unlock()
	if len(submitter.seen) != len(reports) {
		t.Errorf("expected %d submissions, got %d", len(reports), len(submitter.seen))
	}
}

func TestBatchProcessor_SubmissionFailureIsolated(t *testing.T) {
	submitter := &fakeSubmitter{failFor: "user002"}
	b := NewBatchProcessor(submitter, 2)

	results := b.ProcessReports(context.Background(), []Report{
		{UserID: "user001", Text: "works"},
		{UserID: "user002", Text: "fails"},
		{UserID: "user003", Text: "works too"},
	})

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	failures := 0
	for _, res := range results {
		if res.GetError() != nil {
			failures++
			if res.Report.UserID != "user002" {
				t.Errorf("unexpected failure for %s", res.Report.UserID)
			}
		}
	}
	if failures != 1 {
		t.Errorf("expected 1 failure, got %d", failures)
	}
}

func TestBatchProcessor_EmptyBatch(t *testing.T) {
	b := NewBatchProcessor(&fakeSubmitter{}, 2)
	if results := b.ProcessReports(context.Background(), nil); len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	path := writeReportFile(t, "user001\tcannot login\nuser001\tstill cannot login\n")
	submitter := &fakeSubmitter{}
	b := NewBatchProcessor(submitter, 2)

	results, err := b.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("process file: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}
