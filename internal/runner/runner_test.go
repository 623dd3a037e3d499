package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"papersum/internal/dispatch"
	"papersum/internal/notifications"
	"papersum/internal/services"
	"papersum/internal/testsupport"
)

func items(ids ...string) []dispatch.WorkItem {
	out := make([]dispatch.WorkItem, 0, len(ids))
	for _, id := range ids {
		out = append(out, dispatch.WorkItem{ID: id, Locator: id + ".pdf"})
	}
	return out
}

func TestRunRecordsHistoryAndMetrics(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	textfile := filepath.Join(testsupport.BaseDir(cfg), "metrics", "papersum.prom")

	var calls atomic.Int32
	proc := dispatch.ProcessorFunc(func(_ context.Context, item dispatch.WorkItem) (string, error) {
		calls.Add(1)
		if item.ID == "bad" {
			return "", services.NewError(services.KindInvalidRequest, "generate", "bad pdf", nil)
		}
		return item.ID + ".md", nil
	})

	var table bytes.Buffer
	result, err := Run(context.Background(), items("a", "b", "bad"), Options{
		Command:         "summarize",
		Noun:            "summary",
		Processor:       proc,
		Policy:          dispatch.DefaultPolicy(),
		MaxConcurrency:  2,
		Ledger:          store,
		MetricsTextfile: textfile,
		Out:             &table,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 processor calls, got %d", calls.Load())
	}
	if result.Summary.Succeeded != 2 || result.Summary.Failed != 1 {
		t.Fatalf("unexpected summary %+v", result.Summary)
	}

	run, err := store.FindRun(context.Background(), result.RunID)
	if err != nil {
		t.Fatalf("FindRun: %v", err)
	}
	if !run.Finished() || run.Total != 3 || run.Failed != 1 || run.Command != "summarize" {
		t.Fatalf("unexpected run row %+v", run)
	}
	records, err := store.Outcomes(context.Background(), result.RunID)
	if err != nil || len(records) != 3 {
		t.Fatalf("expected 3 outcome rows, got %d (%v)", len(records), err)
	}

	data, err := os.ReadFile(textfile)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(string(data), `papersum_outcomes_total{command="summarize",kind="invalid_request",status="failed"} 1`) {
		t.Fatalf("unexpected metrics:\n%s", data)
	}
	if !strings.Contains(table.String(), "bad pdf") {
		t.Fatalf("expected failure row in table:\n%s", table.String())
	}
}

func TestRunNothingToDo(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	called := false
	result, err := Run(context.Background(), nil, Options{
		Command: "summarize",
		Processor: dispatch.ProcessorFunc(func(context.Context, dispatch.WorkItem) (string, error) {
			called = true
			return "", nil
		}),
		Policy: dispatch.DefaultPolicy(),
		Ledger: store,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if called {
		t.Fatal("processor must not be called for an empty run")
	}
	if result.RunID != "" || result.Summary.Total != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	runs, _ := store.ListRuns(context.Background(), 0)
	if len(runs) != 0 {
		t.Fatalf("expected no history for empty run, got %d", len(runs))
	}
}

func TestRunTimeoutCancelsRemainingItems(t *testing.T) {
	proc := dispatch.ProcessorFunc(func(ctx context.Context, item dispatch.WorkItem) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	result, err := Run(context.Background(), items("a", "b", "c"), Options{
		Command:        "summarize",
		Processor:      proc,
		Policy:         dispatch.DefaultPolicy(),
		MaxConcurrency: 1,
		Timeout:        20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Summary.Total != 3 || result.Summary.Failed != 3 {
		t.Fatalf("expected every item to finish as failed, got %+v", result.Summary)
	}
	for _, failure := range result.Summary.Failures {
		if failure.Kind != services.KindCanceled {
			t.Fatalf("expected canceled kind, got %s", failure.Kind)
		}
	}
}

func TestRunRetriesWithInjectedSleeper(t *testing.T) {
	var attempts atomic.Int32
	proc := dispatch.ProcessorFunc(func(context.Context, dispatch.WorkItem) (string, error) {
		if attempts.Add(1) < 3 {
			return "", errors.New("HTTP 429 RESOURCE_EXHAUSTED")
		}
		return "ok.md", nil
	})
	var sleeps atomic.Int32
	policy, err := dispatch.NewPolicy(time.Minute, 10*time.Second, services.KindRateLimited)
	if err != nil {
		t.Fatal(err)
	}
	classified := dispatch.ProcessorFunc(func(ctx context.Context, item dispatch.WorkItem) (string, error) {
		artifact, err := proc(ctx, item)
		return artifact, services.Classify("test", err)
	})
	sleeper := dispatch.WithSleeper(func(context.Context, time.Duration) error {
		sleeps.Add(1)
		return nil
	})
	result, err := Run(context.Background(), items("a"), Options{
		Command:        "summarize",
		Processor:      classified,
		Policy:         policy,
		RetrierOptions: []dispatch.RetrierOption{sleeper},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Summary.Succeeded != 1 || sleeps.Load() != 2 {
		t.Fatalf("expected success after 2 sleeps, got %+v sleeps=%d", result.Summary, sleeps.Load())
	}
}

type recordingNotifier struct {
	notices []notifications.RunReport
	err     error
}

func (n *recordingNotifier) NotifyRunCompleted(_ context.Context, run notifications.RunReport) error {
	n.notices = append(n.notices, run)
	return n.err
}

func (n *recordingNotifier) TestNotification(context.Context) error { return nil }

func (n *recordingNotifier) Enabled() bool { return true }

func TestRunNotifiesOnCompletion(t *testing.T) {
	proc := dispatch.ProcessorFunc(func(_ context.Context, item dispatch.WorkItem) (string, error) {
		if item.ID == "bad" {
			return "", services.NewError(services.KindAuth, "generate", "bad key", nil)
		}
		return item.ID, nil
	})
	notifier := &recordingNotifier{err: errors.New("ntfy down")}
	result, err := Run(context.Background(), items("a", "bad"), Options{
		Command:   "fetch",
		Processor: proc,
		Policy:    dispatch.DefaultPolicy(),
		Notifier:  notifier,
	})
	if err != nil {
		t.Fatalf("notification failures must not fail the run: %v", err)
	}
	if len(notifier.notices) != 1 {
		t.Fatalf("expected one notice, got %d", len(notifier.notices))
	}
	notice := notifier.notices[0]
	if notice.Command != "fetch" || notice.Succeeded != 1 || notice.Failed != 1 || notice.Elapsed != result.Summary.Elapsed {
		t.Fatalf("unexpected notice %+v", notice)
	}
}
