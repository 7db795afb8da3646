// Package markup validates conversation markup records and splits them into
// short and long fragment tables with symmetric translation pairing.
package markup

import (
	"context"
	"log/slog"
	"path/filepath"
	"strconv"

	"dral/internal/corpus"
	"dral/internal/elan"
	"dral/internal/logging"
	"dral/internal/report"
	"dral/internal/services"
)

const stage = "markup"

// Event types reported for excluded markup records.
const (
	EventUnreadable      = "markup_unreadable"
	EventUnexpectedValue = "markup_unexpected_value"
	EventUnexpectedTier  = "markup_unexpected_tier"
	EventDuplicateValue  = "markup_duplicate_value"
	EventUnaligned       = "markup_unaligned"
	EventNoTranslation   = "markup_no_translation"
	EventKindMismatch    = "markup_translation_kind_mismatch"
)

// ReadFunc loads the records of one markup file.
type ReadFunc func(path string) ([]corpus.Record, error)

// Options configures a Splitter.
type Options struct {
	// ShortDir and LongDir receive extracted fragment audio.
	ShortDir string
	LongDir  string
	Read     ReadFunc
	Reporter report.Reporter
	Logger   *slog.Logger
}

// Splitter turns conversation markup into fragment tables.
type Splitter struct {
	opts   Options
	logger *slog.Logger
}

// Result holds the fragment tables in markup order.
type Result struct {
	Short []corpus.ShortFragment
	Long  []corpus.LongFragment
}

// NewSplitter returns a Splitter reading markup with elan.ReadFile unless
// opts.Read is set.
func NewSplitter(opts Options) *Splitter {
	if opts.Read == nil {
		opts.Read = elan.ReadFile
	}
	if opts.Reporter == nil {
		opts.Reporter = report.Discard{}
	}
	return &Splitter{opts: opts, logger: logging.NewComponentLogger(opts.Logger, stage)}
}

type candidate struct {
	rec  corpus.Record
	conv *corpus.Conversation
	frag corpus.Fragment
}

// Split reads every conversation's markup, discards malformed, duplicate and
// unpaired records, and returns the short and long fragment tables.
func (s *Splitter) Split(ctx context.Context, convs []corpus.Conversation) (Result, error) {
	ctx = services.WithStage(ctx, stage)

	var rows []candidate
	var unreadable [][]string
	for i := range convs {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		conv := &convs[i]
		records, err := s.opts.Read(conv.MarkupPath)
		if err != nil {
			unreadable = append(unreadable, []string{conv.ID, err.Error()})
			continue
		}
		for _, rec := range records {
			rows = append(rows, candidate{rec: rec, conv: conv})
		}
	}
	s.exclude(ctx, EventUnreadable, "have markup that could not be read", []string{"conv_id", "error"}, unreadable)
	total := len(rows)

	var badValue [][]string
	rows = filter(rows, func(c candidate) bool {
		if corpus.ValidValue(c.rec.Value) {
			return true
		}
		badValue = append(badValue, []string{c.conv.ID, strconv.Quote(c.rec.Value)})
		return false
	})
	s.exclude(ctx, EventUnexpectedValue, "have an unexpected value", []string{"conv_id", "value"}, badValue)

	var badTier [][]string
	rows = filter(rows, func(c candidate) bool {
		if corpus.Tier(c.rec.Tier).Known() {
			return true
		}
		badTier = append(badTier, []string{c.conv.ID, c.rec.Tier, c.rec.Value})
		return false
	})
	s.exclude(ctx, EventUnexpectedTier, "are in an unexpected tier", []string{"conv_id", "tier", "value"}, badTier)

	type key struct{ conv, value string }
	counts := make(map[key]int, len(rows))
	for _, c := range rows {
		counts[key{c.conv.ID, c.rec.Value}]++
	}
	var dupes [][]string
	rows = filter(rows, func(c candidate) bool {
		if counts[key{c.conv.ID, c.rec.Value}] == 1 {
			return true
		}
		dupes = append(dupes, []string{c.conv.ID, c.rec.Tier, c.rec.Value})
		return false
	})
	s.exclude(ctx, EventDuplicateValue, "have duplicate values", []string{"conv_id", "tier", "value"}, dupes)

	var unaligned [][]string
	rows = filter(rows, func(c candidate) bool {
		if c.rec.Aligned && c.rec.End >= c.rec.Start {
			return true
		}
		unaligned = append(unaligned, []string{
			c.conv.ID, c.rec.Tier, c.rec.Value,
			corpus.FormatTimedelta(c.rec.Start), corpus.FormatTimedelta(c.rec.End),
		})
		return false
	})
	s.exclude(ctx, EventUnaligned, "have missing or reversed times", []string{"conv_id", "tier", "value", "time_start", "time_end"}, unaligned)

	for i := range rows {
		rows[i].frag = newFragment(rows[i].rec, rows[i].conv)
	}

	rows = s.pair(ctx, rows)

	var result Result
	for _, c := range rows {
		tier := corpus.Tier(c.rec.Tier)
		if tier.Short() {
			result.Short = append(result.Short, s.short(c.frag, tier))
			continue
		}
		frag := c.frag
		frag.AudioPath = filepath.Join(s.opts.LongDir, frag.ID+".wav")
		result.Long = append(result.Long, corpus.LongFragment{Fragment: frag})
	}

	s.logger.Info("markup validated",
		logging.Int("records", total),
		logging.Int("short_fragments", len(result.Short)),
		logging.Int("long_fragments", len(result.Long)),
	)
	return result, nil
}

// pair keeps fragments whose translation exists, points back, and is of the
// same kind. It repeats until no further fragment loses its partner.
func (s *Splitter) pair(ctx context.Context, rows []candidate) []candidate {
	for {
		index := make(map[string]*corpus.Fragment, len(rows))
		for i := range rows {
			index[rows[i].frag.ID] = &rows[i].frag
		}

		var missing, mismatched [][]string
		kept := make([]candidate, 0, len(rows))
		for _, c := range rows {
			trans, ok := index[c.frag.TransID]
			if !ok || trans.TransID != c.frag.ID {
				missing = append(missing, []string{c.frag.ID, c.frag.TransID})
				continue
			}
			if trans.Tier.Short() != c.frag.Tier.Short() {
				mismatched = append(mismatched, []string{c.frag.ID, string(c.frag.Tier), trans.ID, string(trans.Tier)})
				continue
			}
			kept = append(kept, c)
		}
		s.exclude(ctx, EventNoTranslation, "have no translation that points back to them", []string{"id", "trans_id"}, missing)
		s.exclude(ctx, EventKindMismatch, "are paired with a different fragment kind", []string{"id", "tier", "trans_id", "trans_tier"}, mismatched)
		if len(kept) == len(rows) {
			return kept
		}
		rows = kept
	}
}

func (s *Splitter) short(frag corpus.Fragment, tier corpus.Tier) corpus.ShortFragment {
	track, _ := tier.Track()
	remix, _ := tier.Remix()
	out := corpus.ShortFragment{Fragment: frag, Track: track, Remix: remix}
	switch track {
	case corpus.TrackLeft:
		out.ParticipantID = frag.ParticipantIDLeft
		out.ParticipantIDUnique = frag.ParticipantIDLeftUnique
	case corpus.TrackRight:
		out.ParticipantID = frag.ParticipantIDRight
		out.ParticipantIDUnique = frag.ParticipantIDRightUnique
	}
	out.AudioPath = filepath.Join(s.opts.ShortDir, frag.ID+".wav")
	return out
}

func newFragment(rec corpus.Record, conv *corpus.Conversation) corpus.Fragment {
	return corpus.Fragment{
		ID:                       conv.ID + "_" + rec.Value,
		Value:                    rec.Value,
		Tier:                     corpus.Tier(rec.Tier),
		ConvID:                   conv.ID,
		TransConvID:              conv.TransID,
		TransID:                  conv.TransID + "_" + rec.Value,
		LangCode:                 conv.LangCode,
		TransLangCode:            conv.TransLangCode,
		Role:                     conv.Role,
		ConvAudioPath:            conv.AudioPath,
		ParticipantIDLeft:        conv.ParticipantIDLeft,
		ParticipantIDRight:       conv.ParticipantIDRight,
		ParticipantIDLeftUnique:  conv.ParticipantIDLeftUnique,
		ParticipantIDRightUnique: conv.ParticipantIDRightUnique,
		Start:                    rec.Start,
		End:                      rec.End,
		Duration:                 rec.End - rec.Start,
	}
}

func (s *Splitter) exclude(ctx context.Context, event, reason string, columns []string, rows [][]string) {
	s.opts.Reporter.Exclude(ctx, report.Exclusion{
		Stage:     stage,
		EventType: event,
		Subject:   "markups",
		Reason:    reason,
		Columns:   columns,
		Rows:      rows,
	})
}

func filter(rows []candidate, keep func(candidate) bool) []candidate {
	out := rows[:0]
	for _, r := range rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
