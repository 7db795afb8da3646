package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dral/internal/config"
	"dral/internal/deps"
	"dral/internal/ledger"
	"dral/internal/logging"
	"dral/internal/preflight"
	"dral/internal/release"
	"dral/internal/report"
)

// checkTools reports the external tools a release needs. Tests replace it.
var checkTools = func(ctx context.Context, cfg *config.Config) []deps.Status {
	return preflight.CheckSystemDeps(ctx, cfg)
}

func newReleaseCommand(ctx *commandContext) *cobra.Command {
	var (
		inputDir    string
		outputDir   string
		overwrite   bool
		warnSilence bool
		workers     int
	)

	cmd := &cobra.Command{
		Use:   "release",
		Short: "Build a release from the raw recordings, annotations, and metadata workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ctx.session()
			if err != nil {
				return err
			}
			if err := overridePath(cmd, "dir_input", inputDir, &cfg.Paths.InputRoot); err != nil {
				return err
			}
			if err := overridePath(cmd, "dir_output", outputDir, &cfg.Paths.OutputRoot); err != nil {
				return err
			}
			if cmd.Flags().Changed("overwrite") {
				cfg.Release.Overwrite = overwrite
			}
			if cmd.Flags().Changed("warn-silence") {
				cfg.Release.WarnSilence = warnSilence
			}
			if cmd.Flags().Changed("workers") {
				if workers <= 0 {
					return fmt.Errorf("--workers must be positive (got %d)", workers)
				}
				cfg.Release.Workers = workers
			}

			if missing := deps.Missing(checkTools(cmd.Context(), cfg)); len(missing) > 0 {
				names := make([]string, 0, len(missing))
				for _, m := range missing {
					names = append(names, fmt.Sprintf("%s (%s)", m.Name, m.Detail))
				}
				return fmt.Errorf("missing required tools: %s", strings.Join(names, ", "))
			}

			out := cmd.OutOrStdout()
			opts := release.OptionsFromConfig(cfg)
			opts.Audio = newAudioClient(cfg)
			opts.Logger = logger
			opts.Reporter = report.NewConsole(out, logger)

			store, err := ledger.Open(cfg)
			if err != nil {
				logging.WarnWithContext(logger, "run ledger unavailable; continuing without it", "ledger_open_failed",
					logging.Error(err),
					logging.Impact("job outcomes of this run are not recorded"),
				)
			} else {
				defer store.Close()
				opts.Ledger = store
			}

			builder, err := release.NewBuilder(opts)
			if err != nil {
				return err
			}
			summary, err := builder.Run(cmd.Context())
			if err != nil {
				return stopEarly(out, err)
			}
			printReleaseSummary(cmd, builder.Layout().Root, summary)
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputDir, "dir_input", "i", "", "Raw data directory (recordings/ and metadata.xlsx)")
	cmd.Flags().StringVarP(&outputDir, "dir_output", "o", "", "Release output directory")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace the files of an existing release")
	cmd.Flags().BoolVar(&warnSilence, "warn-silence", false, "Report short fragments that are mostly silence")
	cmd.Flags().IntVar(&workers, "workers", 0, "Number of concurrent audio jobs")

	cmd.AddCommand(newReleaseFailuresCommand(ctx))
	return cmd
}

func printReleaseSummary(cmd *cobra.Command, root string, s release.Summary) {
	rows := [][]string{
		{"Conversations", strconv.Itoa(s.Conversations)},
		{"Participants", strconv.Itoa(s.Participants)},
		{"Producers", strconv.Itoa(s.Producers)},
		{"Short fragments", strconv.Itoa(s.ShortFragments)},
		{"Long fragments", strconv.Itoa(s.LongFragments)},
		{"Concatenated tracks", strconv.Itoa(s.Concatenated)},
		{"Failed jobs", strconv.Itoa(s.FailedJobs)},
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Release %s written to %s in %s\n", s.RunID, root, s.Elapsed.Round(time.Millisecond))
	fmt.Fprintln(out, report.Table([]string{"Table", "Rows"}, rows, []report.Alignment{report.AlignLeft, report.AlignRight}))
	if s.FailedJobs > 0 {
		fmt.Fprintf(out, "Some audio jobs failed; run `dral release failures --run %s` for details\n", s.RunID)
	}
}

func newReleaseFailuresCommand(ctx *commandContext) *cobra.Command {
	var runID string
	var all bool
	var list int

	cmd := &cobra.Command{
		Use:   "failures",
		Short: "List failed audio jobs of the latest (or a given) release run",
		Args:  cobra.NoArgs,
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
			if cmd.Flags().Changed("list") {
				return printRuns(cmd.Context(), out, store, list)
			}
			var run *ledger.Run
			if id := strings.TrimSpace(runID); id != "" {
				run, err = store.GetRun(cmd.Context(), id)
			} else {
				run, err = store.LatestRun(cmd.Context())
			}
			if err != nil {
				return err
			}
			if run == nil {
				fmt.Fprintln(out, "No release runs recorded")
				return nil
			}

			jobs, err := store.Jobs(cmd.Context(), run.ID, !all)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Run %s (%s) started %s\n", run.ID, run.Status, run.StartedAt.Local().Format("2006-01-02 15:04:05"))
			if run.ErrorMessage != "" {
				fmt.Fprintf(out, "Error: %s\n", run.ErrorMessage)
			}
			if len(jobs) == 0 {
				fmt.Fprintln(out, "No failed jobs")
				return nil
			}
			rows := make([][]string, 0, len(jobs))
			for _, job := range jobs {
				rows = append(rows, []string{
					job.Stage,
					job.Target,
					yesNo(job.OK),
					job.ErrorKind,
					job.ErrorMessage,
					job.Elapsed.Round(time.Millisecond).String(),
				})
			}
			fmt.Fprintln(out, report.Table(
				[]string{"Stage", "Target", "OK", "Kind", "Error", "Elapsed"},
				rows,
				[]report.Alignment{report.AlignLeft, report.AlignLeft, report.AlignLeft, report.AlignLeft, report.AlignLeft, report.AlignRight},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Run id (defaults to the latest run)")
	cmd.Flags().BoolVar(&all, "all", false, "List every job, not only failures")
	cmd.Flags().IntVar(&list, "list", 10, "List the most recent runs instead of jobs (0 lists all)")
	cmd.MarkFlagsMutuallyExclusive("list", "run")
	return cmd
}

func printRuns(ctx context.Context, out io.Writer, store *ledger.Store, limit int) error {
	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No release runs recorded")
		return nil
	}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.ID,
			string(run.Status),
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			strconv.Itoa(run.Conversations),
			strconv.Itoa(run.ShortFragments),
			strconv.Itoa(run.LongFragments),
		})
	}
	fmt.Fprintln(out, report.Table(
		[]string{"Run", "Status", "Started", "Conversations", "Short", "Long"},
		rows,
		[]report.Alignment{report.AlignLeft, report.AlignLeft, report.AlignLeft, report.AlignRight, report.AlignRight, report.AlignRight},
	))
	return nil
}
