package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"papersum/internal/config"
	"papersum/internal/dispatch"
	"papersum/internal/ledger"
	"papersum/internal/logging"
	"papersum/internal/notifications"
	"papersum/internal/runlock"
	"papersum/internal/runner"
	"papersum/internal/services/gemini"
	"papersum/internal/source"
	"papersum/internal/summaries"
	"papersum/internal/summarize"
)

type summarizeOptions struct {
	pdf         string
	failOnError bool
}

func newSummarizeCommand(ctx *commandContext) *cobra.Command {
	var opts summarizeOptions

	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Summarize PDFs with Gemini, one Markdown file per PDF",
		Long: `Summarize uploads each PDF in paths.pdf_dir to Gemini and writes the model's
summary to paths.summary_dir/<name>.md. With --pdf all (the default), PDFs that
already have a summary are skipped; naming a single PDF always regenerates it.

Rate-limited calls are retried with a fixed backoff until the per-item retry
budget is spent. A per-item failure never aborts the run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSummarize(cmd, ctx, opts)
		},
	}

	cmd.Flags().StringVar(&opts.pdf, "pdf", source.AllPDFs, `PDF file name to summarize, or "all"`)
	cmd.Flags().BoolVar(&opts.failOnError, "fail-on-error", false, "Exit non-zero when any item fails")
	return cmd
}

func runSummarize(cmd *cobra.Command, ctx *commandContext, opts summarizeOptions) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger(cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}
	prompt, err := summarize.LoadPrompt(cfg.Paths.PromptFile)
	if err != nil {
		return err
	}
	policy, err := dispatch.NewPolicy(cfg.RetryBudget(), cfg.Backoff(), cfg.RetryKinds()...)
	if err != nil {
		return fmt.Errorf("retry policy: %w", err)
	}

	lock, err := runlock.Acquire(cfg.LockPath())
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("release run lock", logging.Error(err))
		}
	}()

	store := summaries.NewStore(cfg.Paths.SummaryDir)
	items, err := source.Select(cfg.Paths.PDFDir, opts.pdf, store.Exists)
	if err != nil {
		return err
	}

	client := gemini.NewClient(geminiConfig(cfg))
	processor, err := summarize.NewProcessor(client, store, prompt, logger)
	if err != nil {
		return err
	}

	history, err := ledger.Open(cfg)
	if err != nil {
		return fmt.Errorf("open run ledger: %w", err)
	}
	defer history.Close()

	runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := runner.Run(runCtx, items, runner.Options{
		Command:         "summarize",
		Noun:            "summary",
		Processor:       processor,
		Policy:          policy,
		MaxConcurrency:  cfg.Dispatch.MaxConcurrency,
		Timeout:         cfg.RunTimeout(),
		Logger:          logger,
		Ledger:          history,
		MetricsTextfile: cfg.Metrics.Textfile,
		Out:             cmd.OutOrStdout(),
		Notifier:        notifications.NewService(cfg),
	})
	if err != nil {
		return err
	}
	return finishRun(runCtx, result, opts.failOnError)
}

// finishRun maps a completed run onto the process exit status: interrupted
// runs report cancellation, failures only matter with --fail-on-error.
func finishRun(runCtx context.Context, result runner.Result, failOnError bool) error {
	if errors.Is(runCtx.Err(), context.Canceled) {
		return context.Canceled
	}
	if failOnError && !result.Summary.Clean() {
		return fmt.Errorf("%d of %d items failed (run %s)", result.Summary.Failed, result.Summary.Total, result.RunID)
	}
	return nil
}

func geminiConfig(cfg *config.Config) gemini.Config {
	return gemini.Config{
		APIKey:          cfg.Gemini.APIKey,
		BaseURL:         cfg.Gemini.BaseURL,
		Model:           cfg.Gemini.Model,
		MaxOutputTokens: cfg.Gemini.MaxOutputTokens,
		Temperature:     cfg.Gemini.Temperature,
		TimeoutSeconds:  cfg.Gemini.TimeoutSeconds,
	}
}
