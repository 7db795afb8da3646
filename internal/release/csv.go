package release

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dral/internal/corpus"
	"dral/internal/services"
)

// WriteCSV writes header and rows to path through a temporary file so a
// reader never sees a partial table.
func WriteCSV(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create table directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp table: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write header %s: %w", filepath.Base(path), err)
	}
	if err := w.WriteAll(rows); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write rows %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp table: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename table: %w", err)
	}
	return nil
}

// Table is a CSV table read back from a release.
type Table struct {
	Path   string
	Header []string
	Rows   [][]string
	index  map[string]int
}

// ReadTable loads a release CSV. A missing file wraps services.ErrNotFound.
func ReadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "release", "read table", path, err)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "release", "read table", path, err)
	}
	if len(records) == 0 {
		return nil, services.Wrap(services.ErrValidation, "release", "read table", path+": missing header", nil)
	}
	t := &Table{Path: path, Header: records[0], Rows: records[1:], index: map[string]int{}}
	for i, name := range t.Header {
		t.index[strings.TrimSpace(name)] = i
	}
	return t, nil
}

// Require returns a validation error naming the first absent column.
func (t *Table) Require(columns ...string) error {
	for _, c := range columns {
		if _, ok := t.index[c]; !ok {
			return services.Wrap(services.ErrValidation, "release", "read table", fmt.Sprintf("%s: missing column %q", t.Path, c), nil)
		}
	}
	return nil
}

// Value returns the cell of row at column, or "" when either is absent.
func (t *Table) Value(row int, column string) string {
	i, ok := t.index[column]
	if !ok || row < 0 || row >= len(t.Rows) || i >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][i]
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// FragmentRecord is one row of a public fragment table.
type FragmentRecord struct {
	ID       string
	ConvID   string
	LangCode string
	Role     corpus.Role
	TransID  string
	Start    time.Duration
	End      time.Duration
	Duration time.Duration
	// Participants holds participant_id_unique for short fragments and both
	// unique ids for long fragments.
	Participants []string
}

// ReadFragments loads fragments-short.csv or fragments-long.csv.
func ReadFragments(path string) ([]FragmentRecord, error) {
	t, err := ReadTable(path)
	if err != nil {
		return nil, err
	}
	if err := t.Require("id", "conv_id", "lang_code", "original_or_reenacted", "time_start", "time_end", "duration", "trans_id"); err != nil {
		return nil, err
	}

	out := make([]FragmentRecord, 0, t.Len())
	for i := range t.Rows {
		rec := FragmentRecord{
			ID:       t.Value(i, "id"),
			ConvID:   t.Value(i, "conv_id"),
			LangCode: t.Value(i, "lang_code"),
			Role:     corpus.Role(t.Value(i, "original_or_reenacted")),
			TransID:  t.Value(i, "trans_id"),
		}
		for col, dst := range map[string]*time.Duration{
			"time_start": &rec.Start,
			"time_end":   &rec.End,
			"duration":   &rec.Duration,
		} {
			d, err := corpus.ParseTimedelta(t.Value(i, col))
			if err != nil {
				return nil, services.Wrap(services.ErrValidation, "release", "read table",
					fmt.Sprintf("%s row %d column %s", path, i+2, col), err)
			}
			*dst = d
		}
		for _, col := range []string{"participant_id_unique", "participant_id_left_unique", "participant_id_right_unique"} {
			if v := t.Value(i, col); v != "" {
				rec.Participants = append(rec.Participants, v)
			}
		}
		out = append(out, rec)
	}
	return out, nil
}
