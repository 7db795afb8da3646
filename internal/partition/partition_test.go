package partition_test

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"dral/internal/logging"
	"dral/internal/partition"
	"dral/internal/release"
)

func TestAssign(t *testing.T) {
	table, err := partition.ForVersion("8.0")
	if err != nil {
		t.Fatalf("ForVersion: %v", err)
	}
	cases := []struct {
		id      string
		want    string
		wantErr error
	}{
		{id: "EN_001_3", want: partition.Training},
		{id: "ES_104_#2", want: partition.Training},
		{id: "EN_105_1", want: partition.Test},
		{id: "JA_136_12", want: partition.Test},
		{id: "EN_150_1", wantErr: partition.ErrOutOfRange},
		{id: "EN_000_1", wantErr: partition.ErrOutOfRange},
	}
	for _, tc := range cases {
		tc := tc // per-iteration copy (pre-Go 1.22 loop semantics)
		t.Run(tc.id, func(t *testing.T) {
			got, err := table.Assign(tc.id)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %q %v", tc.wantErr, got, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Assign: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Assign(%q) = %q, want %q", tc.id, got, tc.want)
			}
		})
	}
}

func TestAssignIsDeterministic(t *testing.T) {
	for _, version := range partition.Versions() {
		table, err := partition.ForVersion(version)
		if err != nil {
			t.Fatalf("ForVersion %s: %v", version, err)
		}
		for n := 1; n <= 136; n++ {
			id := fmt.Sprintf("EN_%03d_1", n)
			first, err := table.Assign(id)
			if err != nil {
				t.Fatalf("%s: %v", id, err)
			}
			second, _ := table.Assign(id)
			if first != second {
				t.Fatalf("%s assigned %q then %q", id, first, second)
			}
		}
	}
}

func TestConversationNumberRejectsMalformedIDs(t *testing.T) {
	for _, id := range []string{"EN", "EN_xx_1", ""} {
		if _, err := partition.ConversationNumber(id); err == nil {
			t.Fatalf("expected error for %q", id)
		}
	}
}

func TestForVersionUnknown(t *testing.T) {
	if _, err := partition.ForVersion("6.0"); !errors.Is(err, partition.ErrUnknownVersion) {
		t.Fatalf("expected ErrUnknownVersion, got %v", err)
	}
}

func writeRelease(t *testing.T, root string, shortIDs, longIDs []string, complete bool) release.Layout {
	t.Helper()
	layout := release.Layout{Root: root}
	write := func(name string, header []string, ids []string) {
		rows := make([][]string, 0, len(ids))
		for _, id := range ids {
			row := make([]string, len(header))
			row[0] = id
			rows = append(rows, row)
		}
		if err := release.WriteCSV(layout.Table(name), header, rows); err != nil {
			t.Fatalf("WriteCSV: %v", err)
		}
	}
	write(release.ShortCSV, release.ShortColumns, shortIDs)
	write(release.LongCSV, release.LongColumns, longIDs)
	if complete {
		write(release.ShortCompleteCSV, release.ShortCompleteColumns, shortIDs)
		write(release.LongCompleteCSV, release.LongCompleteColumns, longIDs)
	}
	return layout
}

func TestWriteSets(t *testing.T) {
	layout := writeRelease(t, t.TempDir(),
		[]string{"EN_001_1", "ES_001_1", "EN_120_4", "ES_120_4"},
		[]string{"EN_120_#1", "ES_120_#1"},
		true,
	)
	table, _ := partition.ForVersion("7.0")

	res, err := partition.Write(layout, table, logging.NewNop())
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if res.Short[partition.Training] != 2 || res.Short[partition.Test] != 2 || res.Long[partition.Test] != 2 {
		t.Fatalf("unexpected counts %+v", res)
	}

	sets, err := release.ReadTable(filepath.Join(layout.Root, partition.ShortSetsCSV))
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if sets.Value(2, "id") != "EN_120_4" || sets.Value(2, "set") != partition.Test {
		t.Fatalf("unexpected sets row %v", sets.Rows[2])
	}

	complete, err := release.ReadTable(layout.Table(release.LongCompleteCSV))
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if complete.Header[len(complete.Header)-1] != "set" || complete.Value(0, "set") != partition.Test {
		t.Fatalf("set column not added: %v", complete.Header)
	}

	// A second run replaces the set column instead of adding another.
	if _, err := partition.Write(layout, table, logging.NewNop()); err != nil {
		t.Fatalf("second Write: %v", err)
	}
	again, _ := release.ReadTable(layout.Table(release.LongCompleteCSV))
	if len(again.Header) != len(complete.Header) {
		t.Fatalf("header grew from %d to %d columns", len(complete.Header), len(again.Header))
	}
}

func TestWriteStopsOnOutOfRange(t *testing.T) {
	layout := writeRelease(t, t.TempDir(), []string{"EN_001_1", "EN_150_1"}, nil, false)
	table, _ := partition.ForVersion("8.0")

	if _, err := partition.Write(layout, table, logging.NewNop()); !errors.Is(err, partition.ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	if _, err := release.ReadTable(layout.Table(partition.ShortSetsCSV)); err == nil {
		t.Fatal("sets table must not be written on error")
	}
}
