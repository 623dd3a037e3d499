package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"papersum/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, the prompt file, and Gemini access",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			results := preflight.RunAll(cmd.Context(), cfg, offline)
			fmt.Fprintln(out, "Checks:")
			for _, result := range results {
				fmt.Fprintln(out, renderStatusLine(result.Name, resultStatus(result), result.Detail, colorize))
			}
			if offline {
				fmt.Fprintln(out, renderStatusLine("Gemini API", statusInfo, "skipped (--offline)", colorize))
			}
			if !preflight.AllPassed(results) {
				return errors.New("one or more checks failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the Gemini API check")
	return cmd
}

func resultStatus(result preflight.Result) statusKind {
	switch {
	case result.Passed:
		return statusOK
	case result.Optional:
		return statusWarn
	default:
		return statusError
	}
}
