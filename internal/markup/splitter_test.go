package markup_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"dral/internal/corpus"
	"dral/internal/markup"
	"dral/internal/report"
	"dral/internal/testsupport"
)

func pair(num int, en, es []corpus.Record) ([]corpus.Conversation, map[string][]corpus.Record) {
	enID := "EN_" + pad(num)
	esID := "ES_" + pad(num)
	convs := []corpus.Conversation{
		{
			ConversationRow: corpus.ConversationRow{
				ID: enID, Role: corpus.RoleOriginal,
				ParticipantIDLeft: "1", ParticipantIDRight: "2",
				ParticipantIDLeftUnique: "P1", ParticipantIDRightUnique: "P2",
			},
			LangCode: "EN", Number: num, TransID: esID, TransLangCode: "ES",
			AudioPath: "/in/" + enID + ".wav", MarkupPath: "/in/" + enID + ".eaf",
		},
		{
			ConversationRow: corpus.ConversationRow{
				ID: esID, Role: corpus.RoleReenacted,
				ParticipantIDLeft: "1", ParticipantIDRight: "2",
				ParticipantIDLeftUnique: "P1", ParticipantIDRightUnique: "P2",
			},
			LangCode: "ES", Number: num, TransID: enID, TransLangCode: "EN",
			AudioPath: "/in/" + esID + ".wav", MarkupPath: "/in/" + esID + ".eaf",
		},
	}
	files := map[string][]corpus.Record{
		"/in/" + enID + ".eaf": en,
		"/in/" + esID + ".eaf": es,
	}
	return convs, files
}

func pad(n int) string {
	return fmt.Sprintf("%03d", n)
}

func split(t *testing.T, convs []corpus.Conversation, files map[string][]corpus.Record) (markup.Result, *report.Collector) {
	t.Helper()
	collector := &report.Collector{}
	s := markup.NewSplitter(markup.Options{
		ShortDir: "/out/fragments-short",
		LongDir:  "/out/fragments-long",
		Reporter: collector,
		Read: func(path string) ([]corpus.Record, error) {
			recs, ok := files[path]
			if !ok {
				return nil, errors.New("no such markup")
			}
			return recs, nil
		},
	})
	res, err := s.Split(context.Background(), convs)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	return res, collector
}

func shortIDs(res markup.Result) map[string]corpus.ShortFragment {
	m := map[string]corpus.ShortFragment{}
	for _, f := range res.Short {
		m[f.ID] = f
	}
	return m
}

func TestSplitBuildsShortAndLongTables(t *testing.T) {
	recs := []corpus.Record{
		testsupport.Span(corpus.TierLeft, "1", 1000, 2500),
		testsupport.Span(corpus.TierRight, "2", 3000, 4000),
		testsupport.Span(corpus.TierBoth, "#1", 1000, 4000),
	}
	convs, files := pair(1, recs, recs)
	res, collector := split(t, convs, files)

	if len(res.Short) != 4 || len(res.Long) != 2 {
		t.Fatalf("expected 4 short and 2 long fragments, got %d/%d", len(res.Short), len(res.Long))
	}
	m := shortIDs(res)
	left := m["EN_001_1"]
	if left.TransID != "ES_001_1" || left.Track != corpus.TrackLeft || left.Remix.Channel != 1 {
		t.Fatalf("unexpected left fragment: %+v", left)
	}
	if left.ParticipantID != "1" || left.ParticipantIDUnique != "P1" {
		t.Fatalf("left fragment participant = %q/%q", left.ParticipantID, left.ParticipantIDUnique)
	}
	if left.Duration != 1500*time.Millisecond {
		t.Fatalf("left fragment duration = %v", left.Duration)
	}
	if left.AudioPath != filepath.Join("/out/fragments-short", "EN_001_1.wav") {
		t.Fatalf("left fragment audio path = %q", left.AudioPath)
	}
	if left.ConvAudioPath != "/in/EN_001.wav" {
		t.Fatalf("left fragment source = %q", left.ConvAudioPath)
	}

	right := m["ES_001_2"]
	if right.Track != corpus.TrackRight || right.Remix.Channel != 2 || right.ParticipantIDUnique != "P2" {
		t.Fatalf("unexpected right fragment: %+v", right)
	}

	long := res.Long[0]
	if long.ID != "EN_001_#1" || long.TransID != "ES_001_#1" {
		t.Fatalf("unexpected long fragment: %+v", long)
	}
	if long.AudioPath != filepath.Join("/out/fragments-long", "EN_001_#1.wav") {
		t.Fatalf("long fragment audio path = %q", long.AudioPath)
	}
	if got := collector.Exclusions(); len(got) != 0 {
		t.Fatalf("expected no exclusions, got %+v", got)
	}
}

func TestSplitDropsAllCopiesOfDuplicateValues(t *testing.T) {
	en := []corpus.Record{
		testsupport.Span(corpus.TierLeft, "3", 0, 1000),
		testsupport.Span(corpus.TierLeft, "3", 2000, 3000),
		testsupport.Span(corpus.TierRight, "4", 3000, 4000),
		testsupport.Span(corpus.TierBoth, "4", 3000, 4000),
	}
	es := []corpus.Record{
		testsupport.Span(corpus.TierLeft, "3", 0, 1000),
		testsupport.Span(corpus.TierRight, "4", 3000, 4000),
	}
	convs, files := pair(2, en, es)
	res, collector := split(t, convs, files)

	m := shortIDs(res)
	for _, id := range []string{"EN_002_3", "ES_002_3", "EN_002_4", "ES_002_4"} {
		if _, ok := m[id]; ok {
			t.Fatalf("expected %s to be excluded", id)
		}
	}
	dupes := collector.ByEvent(markup.EventDuplicateValue)
	if len(dupes) != 1 || len(dupes[0].Rows) != 4 {
		t.Fatalf("expected 4 duplicate rows reported, got %+v", dupes)
	}
	missing := collector.ByEvent(markup.EventNoTranslation)
	if len(missing) != 1 || len(missing[0].Rows) != 2 {
		t.Fatalf("expected both ES translations reported missing, got %+v", missing)
	}
}

func TestSplitDropsFragmentWithoutTranslation(t *testing.T) {
	en := []corpus.Record{
		testsupport.Span(corpus.TierLeft, "5", 0, 1000),
		testsupport.Span(corpus.TierLeft, "6", 1000, 2000),
	}
	es := []corpus.Record{
		testsupport.Span(corpus.TierLeft, "6", 1000, 2000),
	}
	convs, files := pair(3, en, es)
	res, collector := split(t, convs, files)

	m := shortIDs(res)
	if _, ok := m["EN_003_5"]; ok {
		t.Fatal("expected EN_003_5 to be excluded")
	}
	if _, ok := m["EN_003_6"]; !ok {
		t.Fatal("expected EN_003_6 to be retained")
	}
	missing := collector.ByEvent(markup.EventNoTranslation)
	if len(missing) != 1 || missing[0].Rows[0][0] != "EN_003_5" || missing[0].Rows[0][1] != "ES_003_5" {
		t.Fatalf("unexpected missing-translation report: %+v", missing)
	}
}

func TestSplitRejectsMalformedRecords(t *testing.T) {
	en := []corpus.Record{
		testsupport.Span(corpus.TierLeft, "1 ", 0, 1000),
		testsupport.Span("Notes", "2", 0, 1000),
		testsupport.Span(corpus.TierLeft, "3", 2000, 1000),
		{Tier: string(corpus.TierLeft), Value: "4"},
		testsupport.Span(corpus.TierLeft, "7", 0, 500),
	}
	es := []corpus.Record{
		testsupport.Span(corpus.TierLeft, "1", 0, 1000),
		testsupport.Span(corpus.TierLeft, "2", 0, 1000),
		testsupport.Span(corpus.TierLeft, "3", 0, 1000),
		testsupport.Span(corpus.TierLeft, "4", 0, 1000),
		testsupport.Span(corpus.TierBoth, "7", 0, 500),
	}
	convs, files := pair(4, en, es)
	res, collector := split(t, convs, files)

	if len(res.Short) != 0 || len(res.Long) != 0 {
		t.Fatalf("expected every fragment excluded, got %+v / %+v", res.Short, res.Long)
	}
	checks := map[string]int{
		markup.EventUnexpectedValue: 1,
		markup.EventUnexpectedTier:  1,
		markup.EventUnaligned:       2,
		markup.EventKindMismatch:    2,
	}
	for event, rows := range checks {
		got := collector.ByEvent(event)
		if len(got) != 1 || len(got[0].Rows) != rows {
			t.Fatalf("%s: expected %d rows, got %+v", event, rows, got)
		}
	}
}

func TestSplitReportsUnreadableMarkup(t *testing.T) {
	convs, files := pair(5, []corpus.Record{testsupport.Span(corpus.TierLeft, "1", 0, 1000)}, nil)
	delete(files, "/in/ES_005.eaf")
	res, collector := split(t, convs, files)

	if len(res.Short) != 0 {
		t.Fatalf("expected no fragments, got %+v", res.Short)
	}
	if got := collector.ByEvent(markup.EventUnreadable); len(got) != 1 {
		t.Fatalf("expected unreadable report, got %+v", got)
	}
}

func TestSplitPairingIsSymmetric(t *testing.T) {
	en := []corpus.Record{
		testsupport.Span(corpus.TierLeft, "1", 0, 1000),
		testsupport.Span(corpus.TierRight, "2", 1000, 2000),
		testsupport.Span(corpus.TierLeft, "3", 2000, 3000),
		testsupport.Span(corpus.TierLeft, "3", 3000, 4000),
		testsupport.Span(corpus.TierBoth, "#1", 0, 4000),
		testsupport.Span(corpus.TierBoth, "#2", 0, 4000),
	}
	es := []corpus.Record{
		testsupport.Span(corpus.TierRight, "1", 0, 900),
		testsupport.Span(corpus.TierRight, "2", 900, 2000),
		testsupport.Span(corpus.TierLeft, "3", 2000, 3000),
		testsupport.Span(corpus.TierBoth, "#1", 0, 4000),
	}
	convs, files := pair(6, en, es)
	res, _ := split(t, convs, files)

	ids := map[string]string{}
	seen := map[string]int{}
	for _, f := range res.Short {
		ids[f.ID] = f.TransID
		seen[f.ConvID+"|"+f.Value]++
	}
	for _, f := range res.Long {
		ids[f.ID] = f.TransID
		seen[f.ConvID+"|"+f.Value]++
	}
	for id, trans := range ids {
		if ids[trans] != id {
			t.Fatalf("%s -> %s does not point back", id, trans)
		}
	}
	for k, n := range seen {
		if n != 1 {
			t.Fatalf("(conv_id, value) %s appears %d times", k, n)
		}
	}
	if len(ids) != 6 {
		t.Fatalf("expected 6 fragments, got %v", ids)
	}
	for _, f := range res.Short {
		if f.Duration != f.End-f.Start || f.Duration < 0 {
			t.Fatalf("%s duration %v inconsistent with %v-%v", f.ID, f.Duration, f.Start, f.End)
		}
	}
}
