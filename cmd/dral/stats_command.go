package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dral/internal/release"
	"dral/internal/stats"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var inputDir string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize a release and write stats.txt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := overridePath(cmd, "dir_input", inputDir, &cfg.Paths.OutputRoot); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			layout := release.Layout{Root: cfg.Paths.OutputRoot}
			opts := stats.Options{Languages: cfg.Release.LanguageCodes}
			if len(cfg.Export.LanguagePair) == 2 {
				opts.Pair = [2]string{cfg.Export.LanguagePair[0], cfg.Export.LanguagePair[1]}
			}
			summary, err := stats.Compute(layout, opts)
			if err != nil {
				return stopEarly(out, err)
			}
			path, err := summary.WriteFile(layout)
			if err != nil {
				return err
			}
			fmt.Fprint(out, summary.Tables())
			fmt.Fprintf(out, "Statistics written to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputDir, "dir_input", "i", "", "Release directory")
	return cmd
}
