// Package stats summarizes a finished release: conversation and participant
// counts and fragment counts and durations, overall and for the EN-ES pair.
package stats

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"dral/internal/corpus"
	"dral/internal/release"
	"dral/internal/report"
)

// FileName is the statistics file written into the release directory.
const FileName = "stats.txt"

// Durations summarizes fragment durations.
type Durations struct {
	Total time.Duration
	Mean  time.Duration
	Min   time.Duration
	Max   time.Duration
}

// FragmentStats covers one fragment table, optionally filtered to a pair.
type FragmentStats struct {
	Title      string
	Count      int
	ByLanguage map[string]int
	Original   int
	Reenacted  int
	Durations  Durations
}

// ConversationStats counts conversations per role and language.
type ConversationStats struct {
	Original            int
	Reenacted           int
	OriginalByLanguage  map[string]int
	ReenactedByLanguage map[string]int
}

// Release holds every statistic of one release.
type Release struct {
	Languages          []string
	Conversations      ConversationStats
	UniqueParticipants int
	Fragments          []FragmentStats
}

// Options controls Compute.
type Options struct {
	Languages []string
	// Pair is the language pair of the filtered fragment sections.
	Pair [2]string
}

// Compute reads the release tables under layout.
func Compute(layout release.Layout, opts Options) (*Release, error) {
	if len(opts.Languages) == 0 {
		opts.Languages = corpus.DefaultLanguageCodes
	}
	if opts.Pair[0] == "" || opts.Pair[1] == "" {
		opts.Pair = [2]string{"EN", "ES"}
	}

	conv, err := release.ReadTable(layout.Table(release.ConversationCSV))
	if err != nil {
		return nil, err
	}
	if err := conv.Require("id", "original_or_reenacted"); err != nil {
		return nil, err
	}
	participants, err := release.ReadTable(layout.Table(release.ParticipantCSV))
	if err != nil {
		return nil, err
	}
	if err := participants.Require("id_unique"); err != nil {
		return nil, err
	}
	short, err := release.ReadFragments(layout.Table(release.ShortCSV))
	if err != nil {
		return nil, err
	}
	long, err := release.ReadFragments(layout.Table(release.LongCSV))
	if err != nil {
		return nil, err
	}

	out := &Release{Languages: opts.Languages}
	out.Conversations = countConversations(conv)
	unique := map[string]struct{}{}
	for i := range participants.Rows {
		if id := participants.Value(i, "id_unique"); id != "" {
			unique[id] = struct{}{}
		}
	}
	out.UniqueParticipants = len(unique)

	pair := opts.Pair[0] + "-" + opts.Pair[1]
	out.Fragments = []FragmentStats{
		summarize(`short fragments ("phrases")`, short),
		summarize(`short fragments ("phrases") `+pair+` only`, inPair(short, opts.Pair)),
		summarize(`long fragments ("re-enactments")`, long),
		summarize(`long fragments ("re-enactments") `+pair+` only`, inPair(long, opts.Pair)),
	}
	return out, nil
}

func countConversations(t *release.Table) ConversationStats {
	s := ConversationStats{OriginalByLanguage: map[string]int{}, ReenactedByLanguage: map[string]int{}}
	for i := range t.Rows {
		lang, _, _ := strings.Cut(t.Value(i, "id"), "_")
		switch corpus.Role(t.Value(i, "original_or_reenacted")) {
		case corpus.RoleOriginal:
			s.Original++
			s.OriginalByLanguage[lang]++
		case corpus.RoleReenacted:
			s.Reenacted++
			s.ReenactedByLanguage[lang]++
		}
	}
	return s
}

func inPair(frags []release.FragmentRecord, pair [2]string) []release.FragmentRecord {
	var out []release.FragmentRecord
	for _, f := range frags {
		trans, _, _ := strings.Cut(f.TransID, "_")
		if (f.LangCode == pair[0] && trans == pair[1]) || (f.LangCode == pair[1] && trans == pair[0]) {
			out = append(out, f)
		}
	}
	return out
}

func summarize(title string, frags []release.FragmentRecord) FragmentStats {
	s := FragmentStats{Title: title, Count: len(frags), ByLanguage: map[string]int{}}
	seconds := make([]float64, 0, len(frags))
	for _, f := range frags {
		s.ByLanguage[f.LangCode]++
		switch f.Role {
		case corpus.RoleOriginal:
			s.Original++
		case corpus.RoleReenacted:
			s.Reenacted++
		}
		seconds = append(seconds, f.Duration.Seconds())
	}
	if len(seconds) > 0 {
		s.Durations = Durations{
			Total: fromSeconds(floats.Sum(seconds)),
			Mean:  fromSeconds(stat.Mean(seconds, nil)),
			Min:   fromSeconds(floats.Min(seconds)),
			Max:   fromSeconds(floats.Max(seconds)),
		}
	}
	return s
}

// fromSeconds rounds to the microsecond precision of the release tables.
func fromSeconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second)).Round(time.Microsecond)
}

// WriteText renders r in the stats.txt format.
func (r *Release) WriteText(w io.Writer) error {
	var b strings.Builder
	header := func(title string) {
		fmt.Fprintf(&b, "%s %s %s\n", strings.Repeat("*", 10), title, strings.Repeat("*", 10))
	}

	header("conversations")
	fmt.Fprintf(&b, "count (original) = %d\n", r.Conversations.Original)
	for _, lang := range r.Languages {
		fmt.Fprintf(&b, "\t%s count = %d\n", lang, r.Conversations.OriginalByLanguage[lang])
	}
	fmt.Fprintf(&b, "count (re-enacted) = %d\n", r.Conversations.Reenacted)
	for _, lang := range r.Languages {
		fmt.Fprintf(&b, "\t%s count = %d\n", lang, r.Conversations.ReenactedByLanguage[lang])
	}

	header("participants")
	fmt.Fprintf(&b, "count (unique) = %d\n", r.UniqueParticipants)

	for _, f := range r.Fragments {
		header(f.Title)
		fmt.Fprintf(&b, "count (original or re-enacted) = %d\n", f.Count)
		for _, lang := range r.Languages {
			fmt.Fprintf(&b, "\t%s count = %d\n", lang, f.ByLanguage[lang])
		}
		fmt.Fprintf(&b, "count (original) = %d\n", f.Original)
		fmt.Fprintf(&b, "count (re-enacted) = %d\n", f.Reenacted)
		b.WriteString("duration\n")
		fmt.Fprintf(&b, "\ttotal = %s\n", corpus.FormatTimedelta(f.Durations.Total))
		fmt.Fprintf(&b, "\tmean = %s\n", corpus.FormatTimedelta(f.Durations.Mean))
		fmt.Fprintf(&b, "\tminimum = %s\n", corpus.FormatTimedelta(f.Durations.Min))
		fmt.Fprintf(&b, "\tmaximum = %s\n", corpus.FormatTimedelta(f.Durations.Max))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteFile writes stats.txt into the release directory and returns its path.
func (r *Release) WriteFile(layout release.Layout) (string, error) {
	path := filepath.Join(layout.Root, FileName)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if err := r.WriteText(f); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

// Tables renders the fragment statistics as console tables.
func (r *Release) Tables() string {
	var b strings.Builder

	convRows := [][]string{
		{"original", strconv.Itoa(r.Conversations.Original)},
		{"re-enacted", strconv.Itoa(r.Conversations.Reenacted)},
		{"unique participants", strconv.Itoa(r.UniqueParticipants)},
	}
	b.WriteString(report.Table([]string{"Conversations", "Count"}, convRows, []report.Alignment{report.AlignLeft, report.AlignRight}))
	b.WriteString("\n")

	headers := []string{"Fragments", "Count"}
	headers = append(headers, r.Languages...)
	headers = append(headers, "OG", "RE", "Total", "Mean", "Min", "Max")
	aligns := []report.Alignment{report.AlignLeft}
	for i := 1; i < len(headers); i++ {
		aligns = append(aligns, report.AlignRight)
	}
	rows := make([][]string, 0, len(r.Fragments))
	for _, f := range r.Fragments {
		row := []string{f.Title, strconv.Itoa(f.Count)}
		for _, lang := range r.Languages {
			row = append(row, strconv.Itoa(f.ByLanguage[lang]))
		}
		row = append(row,
			strconv.Itoa(f.Original),
			strconv.Itoa(f.Reenacted),
			f.Durations.Total.String(),
			f.Durations.Mean.String(),
			f.Durations.Min.String(),
			f.Durations.Max.String(),
		)
		rows = append(rows, row)
	}
	b.WriteString(report.Table(headers, rows, aligns))
	b.WriteString("\n")
	return b.String()
}
