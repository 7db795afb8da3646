package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"dral/internal/partition"
	"dral/internal/release"
	"dral/internal/report"
)

func newPartitionCommand(ctx *commandContext) *cobra.Command {
	var inputDir string
	var version string

	cmd := &cobra.Command{
		Use:   "partition",
		Short: "Assign release fragments to the training and test sets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ctx.session()
			if err != nil {
				return err
			}
			if err := overridePath(cmd, "dir_input", inputDir, &cfg.Paths.OutputRoot); err != nil {
				return err
			}
			if v := strings.TrimSpace(version); v != "" {
				cfg.Partition.Version = v
			}
			table, err := partition.ForVersion(cfg.Partition.Version)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			layout := release.Layout{Root: cfg.Paths.OutputRoot}
			res, err := partition.Write(layout, table, logger)
			if err != nil {
				return stopEarly(out, err)
			}

			rows := [][]string{
				{"short", strconv.Itoa(res.Short[partition.Training]), strconv.Itoa(res.Short[partition.Test])},
				{"long", strconv.Itoa(res.Long[partition.Training]), strconv.Itoa(res.Long[partition.Test])},
			}
			fmt.Fprintf(out, "Partition %s written to %s\n", table.Version, layout.Root)
			fmt.Fprintln(out, report.Table(
				[]string{"Fragments", partition.Training, partition.Test},
				rows,
				[]report.Alignment{report.AlignLeft, report.AlignRight, report.AlignRight},
			))
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputDir, "dir_input", "i", "", "Release directory")
	cmd.Flags().StringVar(&version, "version", "", fmt.Sprintf("Partition table version (%s)", strings.Join(partition.Versions(), ", ")))
	return cmd
}
