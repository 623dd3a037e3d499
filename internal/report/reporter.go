// Package report consumes dispatch outcomes: it logs one notice per item,
// forwards every outcome to recorders, and accumulates the run summary.
package report

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"papersum/internal/dispatch"
	"papersum/internal/logging"
	"papersum/internal/services"
)

// Recorder persists or counts outcomes. Errors are logged by the reporter and
// never change the summary.
type Recorder interface {
	Record(ctx context.Context, outcome dispatch.Outcome) error
}

// Summary aggregates a finished run.
type Summary struct {
	Succeeded int
	Failed    int
	Total     int
	Elapsed   time.Duration
	Failures  []dispatch.Outcome
}

// Clean reports whether no item failed.
func (s Summary) Clean() bool { return s.Failed == 0 }

// Options configures a Reporter.
type Options struct {
	Logger    *slog.Logger
	Recorders []Recorder
	// Out receives the rendered summary table. Nil disables the table.
	Out io.Writer
	// Noun names the unit of work in notices ("summary", "download").
	Noun  string
	Clock func() time.Time
}

// Reporter turns an outcome stream into log notices and a Summary.
type Reporter struct {
	logger    *slog.Logger
	recorders []Recorder
	out       io.Writer
	noun      string
	now       func() time.Time
}

// New constructs a reporter.
func New(opts Options) *Reporter {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	noun := opts.Noun
	if noun == "" {
		noun = "item"
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &Reporter{
		logger:    logging.NewComponentLogger(logger, "report"),
		recorders: opts.Recorders,
		out:       opts.Out,
		noun:      noun,
		now:       now,
	}
}

// Consume drains results until the channel is closed and returns the summary.
// Outcomes are passed to recorders unchanged.
func (r *Reporter) Consume(ctx context.Context, results <-chan dispatch.Outcome) Summary {
	start := r.now()
	var summary Summary
	for outcome := range results {
		summary.Total++
		if outcome.Succeeded() {
			summary.Succeeded++
		} else {
			summary.Failed++
			summary.Failures = append(summary.Failures, outcome)
		}
		r.notice(ctx, outcome)
		r.record(ctx, outcome)
	}
	summary.Elapsed = r.now().Sub(start)
	r.finish(summary)
	return summary
}

// NothingToDo logs the empty-run notice and returns a zero summary.
func (r *Reporter) NothingToDo(reason string) Summary {
	attrs := []logging.Attr{logging.String(logging.FieldEventType, "nothing_to_do")}
	if reason != "" {
		attrs = append(attrs, logging.String("reason", reason))
	}
	r.logger.Info("nothing to do", logging.Args(attrs...)...)
	return Summary{}
}

func (r *Reporter) notice(ctx context.Context, outcome dispatch.Outcome) {
	ctx = services.WithItemID(ctx, outcome.Item.ID)
	logger := logging.WithContext(ctx, r.logger)
	if outcome.Succeeded() {
		logger.Info(r.noun+" written",
			logging.String(logging.FieldEventType, "item_succeeded"),
			logging.String("artifact", outcome.Artifact),
			logging.Int(logging.FieldAttempt, outcome.Attempts),
			logging.Duration("elapsed", outcome.Elapsed),
		)
		return
	}
	logging.ErrorWithContext(logger, r.noun+" failed", "item_failed",
		logging.String(logging.FieldKind, string(outcome.Kind)),
		logging.String("message", outcome.Message),
		logging.Int(logging.FieldAttempt, outcome.Attempts),
		logging.Duration("elapsed", outcome.Elapsed),
	)
}

func (r *Reporter) record(ctx context.Context, outcome dispatch.Outcome) {
	for _, recorder := range r.recorders {
		if recorder == nil {
			continue
		}
		if err := recorder.Record(ctx, outcome); err != nil {
			logging.WarnWithContext(r.logger, "recorder failed", "recorder_error",
				logging.String(logging.FieldItemID, outcome.Item.ID),
				logging.Error(err),
				logging.String(logging.FieldImpact, "outcome not persisted; run counts unaffected"),
			)
		}
	}
}

func (r *Reporter) finish(summary Summary) {
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "run_summary"),
		logging.Int("total", summary.Total),
		logging.Int("succeeded", summary.Succeeded),
		logging.Int("failed", summary.Failed),
		logging.Duration("elapsed", summary.Elapsed),
	}
	if summary.Clean() {
		r.logger.Info("run complete", logging.Args(attrs...)...)
	} else {
		logging.WarnWithContext(r.logger, "run complete with failures", "run_summary", attrs[1:]...)
	}
	if r.out != nil && summary.Total > 0 {
		fmt.Fprintln(r.out, RenderSummary(summary))
	}
}

// RenderSummary renders the totals row followed by one row per failure.
func RenderSummary(summary Summary) string {
	out := RenderTable(
		[]string{"Total", "Succeeded", "Failed", "Elapsed"},
		[][]string{{
			strconv.Itoa(summary.Total),
			strconv.Itoa(summary.Succeeded),
			strconv.Itoa(summary.Failed),
			summary.Elapsed.Round(time.Millisecond).String(),
		}},
		[]Alignment{AlignRight, AlignRight, AlignRight, AlignRight},
	)
	if len(summary.Failures) == 0 {
		return out
	}
	rows := make([][]string, 0, len(summary.Failures))
	for _, failure := range summary.Failures {
		rows = append(rows, []string{
			failure.Item.ID,
			string(failure.Kind),
			strconv.Itoa(failure.Attempts),
			failure.Message,
		})
	}
	return out + "\n" + RenderTable(
		[]string{"Item", "Kind", "Attempts", "Message"},
		rows,
		[]Alignment{AlignLeft, AlignLeft, AlignRight, AlignLeft},
	)
}
