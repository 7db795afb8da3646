package partition

import (
	"errors"
	"fmt"
	"log/slog"

	"dral/internal/logging"
	"dral/internal/release"
	"dral/internal/services"
)

// Sets file names.
const (
	ShortSetsCSV = "fragments-short-sets.csv"
	LongSetsCSV  = "fragments-long-sets.csv"
)

// SetsColumns is the header of the sets tables.
var SetsColumns = []string{"id", "set"}

// Counts tallies fragments per set for one table.
type Counts map[string]int

// Result summarizes a partition run.
type Result struct {
	Short Counts
	Long  Counts
}

// Write assigns every fragment of the release at layout and writes the sets
// tables. When the complete tables exist, a set column is added to them too.
// Any fragment out of range fails the whole run before anything is written.
func Write(layout release.Layout, table Table, logger *slog.Logger) (Result, error) {
	logger = logging.NewComponentLogger(logger, "partition")

	var (
		res    Result
		writes []pendingTable
		err    error
	)
	res.Short, writes, err = assignTable(layout, table, release.ShortCSV, release.ShortCompleteCSV, ShortSetsCSV, writes)
	if err != nil {
		return Result{}, err
	}
	res.Long, writes, err = assignTable(layout, table, release.LongCSV, release.LongCompleteCSV, LongSetsCSV, writes)
	if err != nil {
		return Result{}, err
	}

	for _, w := range writes {
		if err := release.WriteCSV(w.path, w.header, w.rows); err != nil {
			return Result{}, fmt.Errorf("write %s: %w", w.path, err)
		}
	}
	logger.Info("partitions written",
		logging.String("version", table.Version),
		logging.Int("short_training", res.Short[Training]),
		logging.Int("short_test", res.Short[Test]),
		logging.Int("long_training", res.Long[Training]),
		logging.Int("long_test", res.Long[Test]),
	)
	return res, nil
}

type pendingTable struct {
	path   string
	header []string
	rows   [][]string
}

func assignTable(layout release.Layout, table Table, source, complete, target string, writes []pendingTable) (Counts, []pendingTable, error) {
	src, err := release.ReadTable(layout.Table(source))
	if err != nil {
		return nil, nil, err
	}
	if err := src.Require("id"); err != nil {
		return nil, nil, err
	}
	counts := Counts{}
	rows := make([][]string, 0, src.Len())
	for i := range src.Rows {
		id := src.Value(i, "id")
		set, err := table.Assign(id)
		if err != nil {
			return nil, nil, err
		}
		counts[set]++
		rows = append(rows, []string{id, set})
	}
	writes = append(writes, pendingTable{layout.Table(target), SetsColumns, rows})

	full, err := release.ReadTable(layout.Table(complete))
	switch {
	case errors.Is(err, services.ErrNotFound):
		return counts, writes, nil
	case err != nil:
		return nil, nil, err
	}
	header, fullRows, err := withSetColumn(full, table)
	if err != nil {
		return nil, nil, err
	}
	return counts, append(writes, pendingTable{full.Path, header, fullRows}), nil
}

// withSetColumn returns t with its set column added or replaced.
func withSetColumn(t *release.Table, table Table) ([]string, [][]string, error) {
	setIdx := -1
	for i, name := range t.Header {
		if name == "set" {
			setIdx = i
		}
	}
	header := append([]string(nil), t.Header...)
	if setIdx < 0 {
		header = append(header, "set")
	}

	rows := make([][]string, 0, t.Len())
	for i, row := range t.Rows {
		set, err := table.Assign(t.Value(i, "id"))
		if err != nil {
			return nil, nil, err
		}
		out := append([]string(nil), row...)
		if setIdx < 0 {
			out = append(out, set)
		} else {
			out[setIdx] = set
		}
		rows = append(rows, out)
	}
	return header, rows, nil
}
