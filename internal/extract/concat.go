package extract

import (
	"context"
	"sort"
	"time"

	"dral/internal/corpus"
	"dral/internal/report"
	"dral/internal/workerpool"
)

type track struct {
	key    corpus.TrackKey
	frags  []corpus.ShortFragment
	output string
}

// concatenate joins each track's short fragments into one file and returns
// the fragments that were placed, with Concat set. Fragments shorter than
// ConcatMinDuration are left out along with their translations, and tracks
// left with at most one fragment are skipped.
func (d *Driver) concatenate(ctx context.Context, frags []corpus.ShortFragment) ([]corpus.ShortFragment, []Job) {
	byID := make(map[string]corpus.ShortFragment, len(frags))
	for _, f := range frags {
		byID[f.ID] = f
	}

	tooShort := map[string]struct{}{}
	var shortRows [][]string
	for _, f := range frags {
		if f.Duration < d.opts.ConcatMinDuration {
			tooShort[f.ID] = struct{}{}
			shortRows = append(shortRows, []string{f.ID, corpus.FormatTimedelta(f.Duration)})
		}
	}
	d.opts.Reporter.Exclude(ctx, report.Exclusion{
		Stage:     StageConcat,
		EventType: EventConcatTooShort,
		Subject:   "short fragments",
		Reason:    "are too short for concatenation (translations are left out too)",
		Columns:   []string{"id", "duration"},
		Rows:      shortRows,
	})
	for id := range tooShort {
		if f, ok := byID[id]; ok && f.TransID != "" {
			tooShort[f.TransID] = struct{}{}
		}
	}

	tracks := groupTracks(frags, tooShort, d.opts.ConcatDir)
	var (
		kept     []*track
		skipRows [][]string
	)
	for _, t := range tracks {
		if len(t.frags) <= 1 {
			skipRows = append(skipRows, []string{t.key.ConvID, string(t.key.Track)})
			continue
		}
		kept = append(kept, t)
	}
	d.opts.Reporter.Exclude(ctx, report.Exclusion{
		Stage:     StageConcat,
		EventType: EventConcatTrackSkip,
		Subject:   "tracks",
		Reason:    "have no more than one fragment",
		Columns:   []string{"conv_id", "track"},
		Rows:      skipRows,
	})

	tasks := make([]workerpool.Task[string], 0, len(kept))
	for _, t := range kept {
		t := t // per-iteration copy (pre-Go 1.22 loop semantics)
		inputs := make([]string, 0, len(t.frags))
		for _, f := range t.frags {
			inputs = append(inputs, f.AudioPath)
		}
		tasks = append(tasks, workerpool.Task[string]{
			Key: t.key.String(),
			Run: func(ctx context.Context) (string, error) {
				if err := ensureParent(StageConcat, t.key.String(), t.output); err != nil {
					return t.output, err
				}
				if err := d.opts.Audio.Concat(ctx, inputs, t.output, d.opts.ConcatSampleRate); err != nil {
					return t.output, err
				}
				return t.output, nil
			},
		})
	}
	jobs := d.runStage(ctx, StageConcat, tasks)

	var failed []Job
	placed := map[string]corpus.ShortFragment{}
	for i, job := range jobs {
		if job.Err != nil {
			failed = append(failed, job)
			continue
		}
		for _, f := range placeTrack(kept[i]) {
			placed[f.ID] = f
		}
	}
	if len(failed) > 0 {
		d.reportFailures(ctx, failed)
	}

	// A placed fragment is only kept when its translation was placed too.
	var (
		out         []corpus.ShortFragment
		droppedRows [][]string
	)
	for _, f := range frags {
		p, ok := placed[f.ID]
		if !ok {
			continue
		}
		if f.TransID != "" {
			if _, ok := placed[f.TransID]; !ok {
				droppedRows = append(droppedRows, []string{f.ID, f.TransID})
				continue
			}
		}
		out = append(out, p)
	}
	d.opts.Reporter.Exclude(ctx, report.Exclusion{
		Stage:     StageConcat,
		EventType: EventConcatDropped,
		Subject:   "short fragments",
		Reason:    "have a translation without concatenated audio",
		Columns:   []string{"id", "trans_id"},
		Rows:      droppedRows,
	})
	return out, failed
}

// groupTracks collects fragments by conversation track, ordered by track
// name, with each track's fragments sorted by start time.
func groupTracks(frags []corpus.ShortFragment, skip map[string]struct{}, dir string) []*track {
	index := map[corpus.TrackKey]*track{}
	var order []*track
	for _, f := range frags {
		if _, ok := skip[f.ID]; ok {
			continue
		}
		key := corpus.TrackKey{ConvID: f.ConvID, Track: f.Track}
		t, ok := index[key]
		if !ok {
			t = &track{key: key, output: concatPath(dir, key)}
			index[key] = t
			order = append(order, t)
		}
		t.frags = append(t.frags, f)
	}
	for _, t := range order {
		sortByStart(t.frags)
	}
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].key.String() < order[j].key.String()
	})
	return order
}

// placeTrack assigns each fragment its offsets inside the concatenated file.
// Offsets are the running sum of fragment durations.
func placeTrack(t *track) []corpus.ShortFragment {
	out := make([]corpus.ShortFragment, 0, len(t.frags))
	var end time.Duration
	for _, f := range t.frags {
		end += f.Duration
		f.Concat = &corpus.ConcatPlacement{
			AudioPath: t.output,
			StartRel:  end - f.Duration,
			EndRel:    end,
		}
		out = append(out, f)
	}
	return out
}
