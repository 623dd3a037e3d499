package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"papersum/internal/dispatch"
	"papersum/internal/ledger"
	"papersum/internal/report"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded runs, or the outcomes of one run",
		Long: `History lists recent summarize and fetch runs from the run ledger. Pass a run
ID, or any unambiguous prefix of one, to list that run's per-item outcomes.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ledger.Open(cfg)
			if err != nil {
				return fmt.Errorf("open run ledger: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				fmt.Fprint(out, renderRunTable(runs))
				return nil
			}

			run, err := store.FindRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			outcomes, err := store.Outcomes(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Run %s (%s) started %s\n", run.ID, run.Command, run.StartedAt.Local().Format(time.DateTime))
			if len(outcomes) == 0 {
				fmt.Fprintln(out, "No outcomes recorded")
				return nil
			}
			fmt.Fprint(out, renderOutcomeTable(outcomes))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	return cmd
}

func renderRunTable(runs []ledger.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		duration := "running"
		if run.Finished() {
			duration = run.Duration().Round(time.Second).String()
		}
		rows = append(rows, []string{
			shortID(run.ID),
			run.Command,
			run.StartedAt.Local().Format(time.DateTime),
			duration,
			strconv.Itoa(run.Total),
			strconv.Itoa(run.Succeeded),
			strconv.Itoa(run.Failed),
		})
	}
	return report.RenderTable(
		[]string{"Run", "Command", "Started", "Duration", "Total", "OK", "Failed"},
		rows,
		[]report.Alignment{report.AlignLeft, report.AlignLeft, report.AlignLeft, report.AlignRight, report.AlignRight, report.AlignRight, report.AlignRight},
	)
}

func renderOutcomeTable(outcomes []ledger.OutcomeRecord) string {
	rows := make([][]string, 0, len(outcomes))
	for _, outcome := range outcomes {
		detail := outcome.Artifact
		kind := "-"
		if outcome.Status == dispatch.StatusFailed {
			detail = outcome.Message
			kind = string(outcome.Kind)
		}
		rows = append(rows, []string{
			outcome.ItemID,
			string(outcome.Status),
			kind,
			strconv.Itoa(outcome.Attempts),
			outcome.Elapsed.Round(time.Millisecond).String(),
			detail,
		})
	}
	return report.RenderTable(
		[]string{"Item", "Status", "Kind", "Attempts", "Elapsed", "Detail"},
		rows,
		[]report.Alignment{report.AlignLeft, report.AlignLeft, report.AlignLeft, report.AlignRight, report.AlignRight, report.AlignLeft},
	)
}

func shortID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
