package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"papersum/internal/dispatch"
	"papersum/internal/fetch"
	"papersum/internal/ledger"
	"papersum/internal/logging"
	"papersum/internal/notifications"
	"papersum/internal/runlock"
	"papersum/internal/runner"
	"papersum/internal/services"
)

type fetchOptions struct {
	workbook    string
	sheet       string
	failOnError bool
}

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var opts fetchOptions

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the PDFs linked from the review workbook",
		Long: `Fetch reads the Title, Year, and Link columns of the review workbook and
downloads every linked PDF into paths.pdf_dir. arXiv abstract links are
rewritten to their PDF endpoint. Rows without a usable link, and files that
already exist, are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, ctx, opts)
		},
	}

	cmd.Flags().StringVar(&opts.workbook, "workbook", "", "Workbook path (defaults to paths.workbook)")
	cmd.Flags().StringVar(&opts.sheet, "sheet", "", "Sheet name (defaults to fetch.sheet, then the active sheet)")
	cmd.Flags().BoolVar(&opts.failOnError, "fail-on-error", false, "Exit non-zero when any download fails")
	return cmd
}

func runFetch(cmd *cobra.Command, ctx *commandContext, opts fetchOptions) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger(cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	workbook := cfg.Paths.Workbook
	if opts.workbook != "" {
		workbook = opts.workbook
	}
	sheet := cfg.Fetch.Sheet
	if opts.sheet != "" {
		sheet = opts.sheet
	}

	entries, err := fetch.ReadWorkbook(workbook, sheet)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.Paths.PDFDir, 0o755); err != nil {
		return fmt.Errorf("%w: create pdf dir %q: %v", services.ErrConfiguration, cfg.Paths.PDFDir, err)
	}
	plan := fetch.NewPlan(entries, cfg.Paths.PDFDir)
	for _, skip := range plan.Skipped {
		logger.Debug("row skipped",
			logging.String(logging.FieldEventType, "row_skipped"),
			logging.String("row", skip.Entry.String()),
			logging.String("reason", string(skip.Reason)),
			logging.String("file", skip.File),
		)
	}

	policy, err := dispatch.NewPolicy(cfg.FetchRetryBudget(), cfg.FetchBackoff(), services.KindRateLimited, services.KindTransient)
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

	history, err := ledger.Open(cfg)
	if err != nil {
		return fmt.Errorf("open run ledger: %w", err)
	}
	defer history.Close()

	downloader := fetch.NewDownloader(cfg.Paths.PDFDir, cfg.FetchTimeout(), fetch.WithLogger(logger))

	runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := runner.Run(runCtx, plan.Downloads, runner.Options{
		Command:         "fetch",
		Noun:            "download",
		Processor:       downloader,
		Policy:          policy,
		MaxConcurrency:  cfg.Fetch.MaxConcurrency,
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

	fmt.Fprintf(cmd.OutOrStdout(), "Downloaded %d PDFs, skipped %d, failed %d.\n",
		result.Summary.Succeeded, len(plan.Skipped), result.Summary.Failed)
	return finishRun(runCtx, result, opts.failOnError)
}
