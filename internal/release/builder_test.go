package release_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"dral/internal/corpus"
	"dral/internal/release"
	"dral/internal/report"
	"dral/internal/services"
	"dral/internal/testsupport"
)

var (
	left  = corpus.TierLeft
	right = corpus.TierRight
	both  = corpus.TierBoth
)

// pairedInput writes EN_001/ES_001 with matching markup and returns the input
// root.
func pairedInput(t *testing.T, base string) string {
	t.Helper()
	records := []corpus.Record{
		testsupport.Span(left, "1", 0, 1000),
		testsupport.Span(left, "2", 1500, 3500),
		testsupport.Span(right, "3", 1000, 1400),
		testsupport.Span(right, "4", 2000, 3000),
		testsupport.Span(both, "#1", 0, 4000),
	}
	input := filepath.Join(base, "raw-data")
	testsupport.WriteInput(t, input, []testsupport.Conversation{
		{ID: "EN_001", Role: corpus.RoleOriginal, Records: records},
		{ID: "ES_001", Role: corpus.RoleReenacted, Records: records},
	})
	return input
}

func newBuilder(t *testing.T, opts release.Options) *release.Builder {
	t.Helper()
	if opts.Audio == nil {
		opts.Audio = &testsupport.FakeAudio{T: t}
	}
	if opts.Workers == 0 {
		opts.Workers = 2
	}
	b, err := release.NewBuilder(opts)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	return b
}

func readTable(t *testing.T, path string) *release.Table {
	t.Helper()
	table, err := release.ReadTable(path)
	if err != nil {
		t.Fatalf("ReadTable %s: %v", path, err)
	}
	return table
}

func column(table *release.Table, name string) []string {
	out := make([]string, 0, table.Len())
	for i := range table.Rows {
		out = append(out, table.Value(i, name))
	}
	return out
}

func TestRunBuildsRelease(t *testing.T) {
	base := t.TempDir()
	input := pairedInput(t, base)
	output := filepath.Join(base, "release")
	collector := &report.Collector{}

	b := newBuilder(t, release.Options{
		InputRoot:         input,
		OutputRoot:        output,
		ConcatenateTracks: true,
		ConcatMinDuration: 500 * time.Millisecond,
		ConcatSampleRate:  16000,
		Reporter:          collector,
	})
	summary, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.RunID == "" {
		t.Fatal("expected run id")
	}
	if summary.Conversations != 2 || summary.ShortFragments != 8 || summary.LongFragments != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	conv := readTable(t, filepath.Join(output, release.ConversationCSV))
	if got := column(conv, "trans_id"); len(got) != 2 || got[0] != "ES_001" || got[1] != "EN_001" {
		t.Fatalf("unexpected trans ids %v", got)
	}
	if len(conv.Header) != len(release.ConversationColumns) {
		t.Fatalf("unexpected conversation header %v", conv.Header)
	}

	participants := readTable(t, filepath.Join(output, release.ParticipantCSV))
	for _, id := range column(participants, "id_unique") {
		if id == "UNUSED" {
			t.Fatal("unreferenced participant written")
		}
	}
	producers := readTable(t, filepath.Join(output, release.ProducerCSV))
	if got := column(producers, "id"); len(got) != 1 || got[0] != "J" {
		t.Fatalf("unexpected producers %v", got)
	}

	short, err := release.ReadFragments(filepath.Join(output, release.ShortCSV))
	if err != nil {
		t.Fatalf("ReadFragments: %v", err)
	}
	byID := map[string]release.FragmentRecord{}
	for _, f := range short {
		byID[f.ID] = f
		if f.Duration != f.End-f.Start || f.Duration < 0 {
			t.Fatalf("%s duration %v does not match [%v, %v)", f.ID, f.Duration, f.Start, f.End)
		}
	}
	for _, f := range short {
		if back, ok := byID[f.TransID]; !ok || back.TransID != f.ID {
			t.Fatalf("%s translation %s does not point back", f.ID, f.TransID)
		}
	}
	if f := byID["EN_001_2"]; f.Duration != 2*time.Second || len(f.Participants) != 1 || f.Participants[0] != "L-EN_001" {
		t.Fatalf("unexpected EN_001_2 %+v", f)
	}

	complete := readTable(t, filepath.Join(output, release.ShortCompleteCSV))
	for i := range complete.Rows {
		if got := complete.Value(i, "audio_path"); got != "fragments-short/"+complete.Value(i, "id")+".wav" {
			t.Fatalf("unexpected audio path %q", got)
		}
		if got := complete.Value(i, "conv_audio_path"); got != "recordings/"+complete.Value(i, "conv_id")+".wav" {
			t.Fatalf("unexpected conversation audio path %q", got)
		}
	}

	for _, tbl := range []*release.Table{complete, readTable(t, filepath.Join(output, release.LongCompleteCSV))} {
		if err := tbl.Require("markup_value", "tier_name"); err != nil {
			t.Fatalf("complete table columns: %v", err)
		}
	}
	for i := range complete.Rows {
		if complete.Value(i, "id") != "EN_001_2" {
			continue
		}
		if complete.Value(i, "markup_value") != "2" || complete.Value(i, "tier_name") != string(left) {
			t.Fatalf("unexpected markup columns for EN_001_2: %v", complete.Rows[i])
		}
	}

	long := readTable(t, filepath.Join(output, release.LongCSV))
	if got := column(long, "id"); len(got) != 2 || got[0] != "EN_001_#1" {
		t.Fatalf("unexpected long ids %v", got)
	}

	// Right-track fragments 3 (400ms) are too short; each right track is left
	// with one fragment and skipped.
	concat := readTable(t, filepath.Join(output, release.ShortConcatenatedCSV))
	if got := column(concat, "id"); len(got) != 4 {
		t.Fatalf("expected 4 concatenated fragments, got %v", got)
	}
	if concat.Value(1, "id") != "EN_001_2" || concat.Value(1, "time_start_rel") != "0 days 00:00:01" || concat.Value(1, "time_end_rel") != "0 days 00:00:03" {
		t.Fatalf("unexpected concatenation row %v", concat.Rows[1])
	}
	if concat.Value(0, "concat_audio_path") != "fragments-short-concatenated/EN_001l.wav" {
		t.Fatalf("unexpected concat path %q", concat.Value(0, "concat_audio_path"))
	}
	if len(collector.ByEvent("concat_track_skipped")) != 1 {
		t.Fatalf("expected skipped tracks to be reported")
	}

	for _, path := range []string{
		filepath.Join(output, "recordings", "EN_001.wav"),
		filepath.Join(output, "fragments-short", "ES_001_4.wav"),
		filepath.Join(output, "fragments-long", "EN_001_#1.wav"),
		filepath.Join(output, "fragments-short-concatenated", "ES_001l.wav"),
	} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s: %v", path, err)
		}
	}
}

func TestRunIsIdempotent(t *testing.T) {
	base := t.TempDir()
	input := pairedInput(t, base)
	output := filepath.Join(base, "release")

	opts := release.Options{InputRoot: input, OutputRoot: output, Overwrite: true}
	if _, err := newBuilder(t, opts).Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	first, err := os.ReadFile(filepath.Join(output, release.ShortCompleteCSV))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if _, err := newBuilder(t, opts).Run(context.Background()); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	second, err := os.ReadFile(filepath.Join(output, release.ShortCompleteCSV))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("tables differ between identical runs")
	}
	if _, err := os.Stat(filepath.Join(output, release.ShortConcatenatedCSV)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("concatenated table should not exist without concatenation, got %v", err)
	}
}

func TestRunGuards(t *testing.T) {
	base := t.TempDir()
	input := pairedInput(t, base)

	t.Run("missing input", func(t *testing.T) {
		b := newBuilder(t, release.Options{InputRoot: filepath.Join(base, "nope"), OutputRoot: filepath.Join(base, "out-a")})
		_, err := b.Run(context.Background())
		if !errors.Is(err, release.ErrInputMissing) || !release.IsGuard(err) {
			t.Fatalf("expected ErrInputMissing, got %v", err)
		}
	})

	t.Run("missing workbook", func(t *testing.T) {
		partial := filepath.Join(base, "partial")
		if err := os.MkdirAll(filepath.Join(partial, "recordings"), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		b := newBuilder(t, release.Options{InputRoot: partial, OutputRoot: filepath.Join(base, "out-b")})
		if _, err := b.Run(context.Background()); !errors.Is(err, release.ErrInputMissing) {
			t.Fatalf("expected ErrInputMissing, got %v", err)
		}
	})

	t.Run("existing output", func(t *testing.T) {
		output := filepath.Join(base, "out-c")
		testsupport.WriteFile(t, filepath.Join(output, "keep.txt"), 4)
		b := newBuilder(t, release.Options{InputRoot: input, OutputRoot: output})
		if _, err := b.Run(context.Background()); !errors.Is(err, release.ErrOutputExists) {
			t.Fatalf("expected ErrOutputExists, got %v", err)
		}
		if _, err := os.Stat(filepath.Join(output, release.ConversationCSV)); !errors.Is(err, os.ErrNotExist) {
			t.Fatal("guarded run must not write tables")
		}
	})

	t.Run("overwrite keeps foreign files", func(t *testing.T) {
		output := filepath.Join(base, "out-d")
		testsupport.WriteFile(t, filepath.Join(output, "keep.txt"), 4)
		testsupport.WriteFile(t, filepath.Join(output, "fragments-short", "stale.wav"), 4)
		b := newBuilder(t, release.Options{InputRoot: input, OutputRoot: output, Overwrite: true})
		if _, err := b.Run(context.Background()); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if _, err := os.Stat(filepath.Join(output, "keep.txt")); err != nil {
			t.Fatalf("foreign file removed: %v", err)
		}
		if _, err := os.Stat(filepath.Join(output, "fragments-short", "stale.wav")); !errors.Is(err, os.ErrNotExist) {
			t.Fatal("stale fragment audio should be cleared")
		}
	})
}

func TestNewBuilderRejectsSameRoots(t *testing.T) {
	dir := t.TempDir()
	_, err := release.NewBuilder(release.Options{InputRoot: dir, OutputRoot: dir})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRunStopsOnBrokenRecording(t *testing.T) {
	base := t.TempDir()
	input := pairedInput(t, base)
	testsupport.WriteFile(t, filepath.Join(input, "recordings", "EN_002.wav"), 32)
	output := filepath.Join(base, "release")
	collector := &report.Collector{}

	b := newBuilder(t, release.Options{InputRoot: input, OutputRoot: output, Reporter: collector})
	_, err := b.Run(context.Background())
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	got := collector.ByEvent(release.EventBrokenWAV)
	if len(got) != 1 || len(got[0].Rows) != 1 || got[0].Rows[0][0] != "EN_002.wav" {
		t.Fatalf("unexpected broken-file report %+v", got)
	}
	if _, err := os.Stat(filepath.Join(output, release.ConversationCSV)); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("run must stop before writing tables")
	}
}

func TestRunRespectsLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	input := pairedInput(t, base)

	if err := os.MkdirAll(filepath.Dir(cfg.LockPath()), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	held := flock.New(cfg.LockPath())
	if ok, err := held.TryLock(); err != nil || !ok {
		t.Fatalf("TryLock: %v %v", ok, err)
	}
	t.Cleanup(func() { _ = held.Unlock() })

	b := newBuilder(t, release.Options{InputRoot: input, OutputRoot: cfg.Paths.OutputRoot, LockPath: cfg.LockPath()})
	if _, err := b.Run(context.Background()); !errors.Is(err, release.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestRunRecordsLedger(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	base := testsupport.BaseDir(cfg)
	input := pairedInput(t, base)

	fragment := filepath.Join(cfg.Paths.OutputRoot, "fragments-short", "EN_001_1.wav")
	audio := &testsupport.FakeAudio{T: t, Fail: map[string]bool{fragment: true}}

	opts := release.OptionsFromConfig(cfg)
	opts.InputRoot = input
	opts.Audio = audio
	opts.Ledger = store
	opts.ConcatenateTracks = false
	summary, err := newBuilder(t, opts).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// EN_001_1 failed; it and ES_001_1 are excluded.
	if summary.ShortFragments != 6 || summary.FailedJobs != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	ctx := context.Background()
	run, err := store.LatestRun(ctx)
	if err != nil || run == nil {
		t.Fatalf("LatestRun: %v %v", run, err)
	}
	if run.ID != summary.RunID || run.ShortFragments != 6 || !run.Finished() {
		t.Fatalf("unexpected ledger run %#v", run)
	}
	failed, err := store.Jobs(ctx, run.ID, true)
	if err != nil {
		t.Fatalf("Jobs: %v", err)
	}
	if len(failed) != 1 || failed[0].Target != "EN_001_1" || failed[0].OutputPath != "fragments-short/EN_001_1.wav" {
		t.Fatalf("unexpected failed jobs %#v", failed)
	}
	all, err := store.Jobs(ctx, run.ID, false)
	if err != nil {
		t.Fatalf("Jobs: %v", err)
	}
	// 2 copies, 8 short trims, 2 long trims.
	if len(all) != 12 {
		t.Fatalf("expected 12 jobs, got %d", len(all))
	}
}
