package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"dral/internal/config"
	"dral/internal/ldc"
	"dral/internal/partition"
	"dral/internal/report"
)

// newProbe, when set, replaces the ffprobe inspection of converted files.
var newProbe func(cfg *config.Config) ldc.ProbeFunc

func newExportCommand(ctx *commandContext) *cobra.Command {
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export a release for distribution",
	}
	exportCmd.AddCommand(newExportLDCCommand(ctx))
	return exportCmd
}

func newExportLDCCommand(ctx *commandContext) *cobra.Command {
	var inputDir string
	var outputDir string

	cmd := &cobra.Command{
		Use:   "ldc",
		Short: "Convert a release into the LDC distribution layout (FLAC audio, partition sets)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ctx.session()
			if err != nil {
				return err
			}
			if err := overridePath(cmd, "dir_input", inputDir, &cfg.Paths.OutputRoot); err != nil {
				return err
			}
			if err := overridePath(cmd, "dir_output", outputDir, &cfg.Export.OutputRoot); err != nil {
				return err
			}
			table, err := partition.ForVersion(cfg.Partition.Version)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			opts := ldc.OptionsFromConfig(cfg)
			opts.Audio = newAudioClient(cfg)
			if newProbe != nil {
				opts.Probe = newProbe(cfg)
			}
			opts.Partition = table
			opts.Logger = logger
			opts.Reporter = report.NewConsole(out, logger)

			exporter, err := ldc.NewExporter(opts)
			if err != nil {
				return err
			}
			summary, err := exporter.Run(cmd.Context())
			if err != nil {
				return stopEarly(out, err)
			}

			rows := [][]string{
				{"Short fragments", strconv.Itoa(summary.ShortFragments)},
				{"Long fragments", strconv.Itoa(summary.LongFragments)},
				{"Long fragments outside the pair", strconv.Itoa(summary.DroppedLong)},
				{"Failed conversions", strconv.Itoa(summary.Failed)},
			}
			fmt.Fprintf(out, "LDC export written to %s\n", summary.Root)
			fmt.Fprintln(out, report.Table([]string{"Fragments", "Count"}, rows, []report.Alignment{report.AlignLeft, report.AlignRight}))
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputDir, "dir_input", "i", "", "Release directory")
	cmd.Flags().StringVarP(&outputDir, "dir_output", "o", "", "Distribution output directory")
	return cmd
}
