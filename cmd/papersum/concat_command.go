package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"papersum/internal/summaries"
)

func newConcatCommand(ctx *commandContext) *cobra.Command {
	var output string
	var headings bool

	cmd := &cobra.Command{
		Use:   "concat",
		Short: "Concatenate all summaries into a single file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			target := output
			if target == "" {
				target = cfg.Paths.ConcatOutput
			}
			store := summaries.NewStore(cfg.Paths.SummaryDir)
			count, err := store.Concatenate(target, summaries.ConcatOptions{Headings: headings})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Concatenated %d summaries into %s\n", count, target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path (defaults to paths.concat_output)")
	cmd.Flags().BoolVar(&headings, "headings", false, "Prefix each summary with a heading derived from its file name")
	return cmd
}
