// Package runner wires one dispatching command end to end: ledger run row,
// metrics, retrier, dispatcher, reporter, and the optional completion notice.
// Summarize and fetch both go through Run so they share retry, concurrency,
// and accounting semantics.
package runner

import (
	"context"
	"io"
	"log/slog"
	"time"

	"papersum/internal/dispatch"
	"papersum/internal/ledger"
	"papersum/internal/logging"
	"papersum/internal/metrics"
	"papersum/internal/notifications"
	"papersum/internal/report"
	"papersum/internal/services"
)

// Options describes one run.
type Options struct {
	// Command labels the ledger row and metrics ("summarize", "fetch").
	Command        string
	Noun           string
	Processor      dispatch.Processor
	Policy         dispatch.Policy
	MaxConcurrency int
	// Timeout, when positive, bounds the whole run. Items still in flight or
	// not yet started when it fires finish as canceled.
	Timeout time.Duration

	Logger *slog.Logger
	// Ledger is optional; nil skips run history.
	Ledger *ledger.Store
	// MetricsTextfile is optional; empty skips the textfile export.
	MetricsTextfile string
	// Out receives the rendered summary table.
	Out io.Writer
	// Notifier, when set, receives a run-completion notice.
	Notifier notifications.Service
	// RetrierOptions are appended after the logger and metrics observer.
	RetrierOptions []dispatch.RetrierOption
}

// Result is what a finished run hands back to its command.
type Result struct {
	RunID   string
	Summary report.Summary
}

// Run dispatches items and blocks until every item has a reported outcome.
// An empty item list logs a nothing-to-do notice and calls no processor.
func Run(ctx context.Context, items []dispatch.WorkItem, opts Options) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, opts.Command)

	if len(items) == 0 {
		reporter := report.New(report.Options{Logger: logger, Noun: opts.Noun})
		return Result{Summary: reporter.NothingToDo("no pending items")}, nil
	}

	var result Result
	var recorders []report.Recorder
	if opts.Ledger != nil {
		run, err := opts.Ledger.StartRun(ctx, opts.Command)
		if err != nil {
			return Result{}, err
		}
		result.RunID = run.ID
		ctx = services.WithRunID(ctx, run.ID)
		recorders = append(recorders, opts.Ledger.Recorder(run.ID))
	}
	logger = logging.WithContext(ctx, logger)

	runMetrics := metrics.NewRun(opts.Command)
	recorders = append(recorders, runMetrics)

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	retrierOpts := append([]dispatch.RetrierOption{
		dispatch.WithLogger(logger),
		dispatch.WithObserver(runMetrics),
	}, opts.RetrierOptions...)
	retrier := dispatch.NewRetrier(opts.Processor, opts.Policy, retrierOpts...)
	dispatcher := dispatch.New(retrier, dispatch.Options{
		MaxConcurrency: opts.MaxConcurrency,
		Logger:         logger,
	})
	reporter := report.New(report.Options{
		Logger:    logger,
		Recorders: recorders,
		Out:       opts.Out,
		Noun:      opts.Noun,
	})

	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.Int("items", len(items)),
		logging.Int("max_concurrency", dispatcher.MaxConcurrency()),
		logging.Duration("retry_budget", opts.Policy.RetryBudget),
		logging.Duration("backoff", opts.Policy.Backoff),
	)

	// Recording and finalization must survive a canceled run context.
	recordCtx := context.WithoutCancel(ctx)
	result.Summary = reporter.Consume(recordCtx, dispatcher.Run(ctx, items))

	if opts.Ledger != nil {
		s := result.Summary
		if err := opts.Ledger.FinishRun(recordCtx, result.RunID, s.Total, s.Succeeded, s.Failed); err != nil {
			logging.WarnWithContext(logger, "finalize run history failed", "ledger_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "history shows the run as unfinished"),
			)
		}
	}
	runMetrics.Finish(time.Now())
	if err := runMetrics.WriteTextfile(opts.MetricsTextfile); err != nil {
		logging.WarnWithContext(logger, "metrics export failed", "metrics_error",
			logging.Error(err),
			logging.String("path", opts.MetricsTextfile),
			logging.String(logging.FieldImpact, "textfile metrics not updated"),
		)
	}
	if opts.Notifier != nil {
		s := result.Summary
		notice := notifications.RunReport{Command: opts.Command, Succeeded: s.Succeeded, Failed: s.Failed, Elapsed: s.Elapsed}
		if err := opts.Notifier.NotifyRunCompleted(recordCtx, notice); err != nil {
			logging.WarnWithContext(logger, "run notification failed", "notification_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "no completion notice delivered"),
			)
		}
	}
	return result, nil
}
