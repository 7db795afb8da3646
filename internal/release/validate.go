package release

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"dral/internal/logging"
	"dral/internal/media/wavcheck"
	"dral/internal/report"
	"dral/internal/services"
	"dral/internal/workerpool"
)

// validateRecordings decodes every WAV in dir. Any broken file stops the run
// before output is touched.
func (b *Builder) validateRecordings(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return services.Wrap(services.ErrNotFound, "validate", "read recordings", dir, err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".wav") {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)

	tasks := make([]workerpool.Task[wavcheck.Info], 0, len(paths))
	for _, path := range paths {
		path := path // per-iteration copy (pre-Go 1.22 loop semantics)
		tasks = append(tasks, workerpool.Task[wavcheck.Info]{
			Key: filepath.Base(path),
			Run: func(context.Context) (wavcheck.Info, error) {
				return wavcheck.Inspect(path)
			},
		})
	}
	ctx = services.WithStage(ctx, "validate")
	outcomes := workerpool.Run(ctx, workerpool.Options{Workers: b.opts.Workers}, tasks)
	if err := ctx.Err(); err != nil {
		return err
	}

	failed := workerpool.Failed(outcomes)
	logging.WithContext(ctx, b.logger).Info("recordings validated",
		logging.Int("files", len(outcomes)),
		logging.Int("broken", len(failed)),
	)
	if len(failed) == 0 {
		return nil
	}

	rows := make([][]string, 0, len(failed))
	for _, o := range failed {
		rows = append(rows, []string{o.Key, o.Err.Error()})
	}
	b.opts.Reporter.Exclude(ctx, report.Exclusion{
		Stage:     "validate",
		EventType: EventBrokenWAV,
		Subject:   "recordings",
		Reason:    "are not readable WAV files",
		Columns:   []string{"file", "error"},
		Rows:      rows,
	})
	return services.Wrap(services.ErrValidation, "validate", "recordings",
		fmt.Sprintf("%d broken WAV file(s) in %s", len(failed), dir), nil)
}
