// Package conversation validates the workbook's conversation rows and pairs
// each conversation with its translation counterpart.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"dral/internal/corpus"
	"dral/internal/logging"
	"dral/internal/report"
	"dral/internal/services"
)

const stage = "conversation"

// Event types reported for excluded conversations.
const (
	EventUnexpectedID    = "conversation_unexpected_id"
	EventUnexpectedRole  = "conversation_unexpected_role"
	EventMissingAudio    = "conversation_missing_audio"
	EventMissingMarkup   = "conversation_missing_markup"
	EventNoTranslation   = "conversation_no_translation"
	EventTranslationGone = "conversation_translation_excluded"
)

// Options configures a Builder.
type Options struct {
	// RecordingsDir holds the input {id}.wav and {id}.eaf files.
	RecordingsDir string
	// OutputRecordingsDir receives the copied conversation audio.
	OutputRecordingsDir string
	LanguageCodes       []string
	Reporter            report.Reporter
	Logger              *slog.Logger
}

// Builder turns raw conversation rows into validated conversations.
type Builder struct {
	opts    Options
	pattern corpus.IDPattern
	logger  *slog.Logger
}

// NewBuilder validates opts and returns a Builder.
func NewBuilder(opts Options) (*Builder, error) {
	if opts.RecordingsDir == "" {
		return nil, services.Wrap(services.ErrConfiguration, stage, "init", "recordings directory is required", nil)
	}
	codes := opts.LanguageCodes
	if len(codes) == 0 {
		codes = corpus.DefaultLanguageCodes
	}
	pattern, err := corpus.NewIDPattern(codes)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stage, "init", "", err)
	}
	if opts.Reporter == nil {
		opts.Reporter = report.Discard{}
	}
	return &Builder{
		opts:    opts,
		pattern: pattern,
		logger:  logging.NewComponentLogger(opts.Logger, stage),
	}, nil
}

// Build applies the validation steps in order. A row is excluded by the first
// step it fails and every exclusion is reported; Build only errors when the
// context is cancelled or a file check fails for a reason other than absence.
func (b *Builder) Build(ctx context.Context, rows []corpus.ConversationRow) ([]corpus.Conversation, error) {
	ctx = services.WithStage(ctx, stage)

	convs := make([]corpus.Conversation, 0, len(rows))
	var badID [][]string
	for _, row := range rows {
		lang, number, ok := b.pattern.Parse(row.ID)
		if !ok {
			badID = append(badID, []string{fmt.Sprint(row.SheetRow), row.ID})
			continue
		}
		convs = append(convs, corpus.Conversation{ConversationRow: row, LangCode: lang, Number: number})
	}
	b.exclude(ctx, EventUnexpectedID, "have an unexpected ID", []string{"row", "id"}, badID)

	var badRole [][]string
	convs = filter(convs, func(c corpus.Conversation) bool {
		if c.Role.Valid() {
			return true
		}
		badRole = append(badRole, []string{c.ID, string(c.Role)})
		return false
	})
	b.exclude(ctx, EventUnexpectedRole, "have an unexpected original or re-enacted code", []string{"id", "original_or_reenacted"}, badRole)

	var fileErr error
	var noAudio [][]string
	convs = filter(convs, func(c corpus.Conversation) bool {
		path := filepath.Join(b.opts.RecordingsDir, c.ID+".wav")
		ok, err := fileExists(path)
		if err != nil && fileErr == nil {
			fileErr = err
		}
		if !ok {
			noAudio = append(noAudio, []string{c.ID, path})
		}
		return ok
	})
	if fileErr != nil {
		return nil, fileErr
	}
	b.exclude(ctx, EventMissingAudio, "have no audio", []string{"id", "audio_path"}, noAudio)

	var noMarkup [][]string
	convs = filter(convs, func(c corpus.Conversation) bool {
		path := filepath.Join(b.opts.RecordingsDir, c.ID+".eaf")
		ok, err := fileExists(path)
		if err != nil && fileErr == nil {
			fileErr = err
		}
		if !ok {
			noMarkup = append(noMarkup, []string{c.ID, path})
		}
		return ok
	})
	if fileErr != nil {
		return nil, fileErr
	}
	b.exclude(ctx, EventMissingMarkup, "have no markup", []string{"id", "markup_path"}, noMarkup)

	for i := range convs {
		c := &convs[i]
		c.AudioPath = filepath.Join(b.opts.RecordingsDir, c.ID+".wav")
		c.MarkupPath = filepath.Join(b.opts.RecordingsDir, c.ID+".eaf")
		if b.opts.OutputRecordingsDir != "" {
			c.CopyAudioPath = filepath.Join(b.opts.OutputRecordingsDir, c.ID+".wav")
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i := range convs {
		if trans, ok := FindTranslation(convs, convs[i]); ok {
			convs[i].TransID = trans.ID
			convs[i].TransLangCode = trans.LangCode
		}
	}
	var noTrans [][]string
	convs = filter(convs, func(c corpus.Conversation) bool {
		if c.TransID != "" {
			return true
		}
		noTrans = append(noTrans, []string{c.ID, fmt.Sprintf("%03d", c.Number)})
		return false
	})
	b.exclude(ctx, EventNoTranslation, "do not have a unique translation", []string{"id", "conv_num"}, noTrans)

	// A retained row may still point at a row dropped above when that row had
	// several candidate translations.
	for {
		retained := make(map[string]struct{}, len(convs))
		for _, c := range convs {
			retained[c.ID] = struct{}{}
		}
		var orphaned [][]string
		convs = filter(convs, func(c corpus.Conversation) bool {
			if _, ok := retained[c.TransID]; ok {
				return true
			}
			orphaned = append(orphaned, []string{c.ID, c.TransID})
			return false
		})
		if len(orphaned) == 0 {
			break
		}
		b.exclude(ctx, EventTranslationGone, "have a translation that was ignored", []string{"id", "trans_id"}, orphaned)
	}

	b.logger.Info("conversations validated",
		logging.Int("input_rows", len(rows)),
		logging.Int("retained", len(convs)),
	)
	return convs, nil
}

// FindTranslation returns the unique conversation in convs with the same
// number as c, a different language code, and a different role code.
func FindTranslation(convs []corpus.Conversation, c corpus.Conversation) (corpus.Conversation, bool) {
	var match corpus.Conversation
	n := 0
	for _, other := range convs {
		if other.Number == c.Number && other.LangCode != c.LangCode && other.Role != c.Role {
			match = other
			n++
		}
	}
	if n != 1 {
		return corpus.Conversation{}, false
	}
	return match, true
}

func (b *Builder) exclude(ctx context.Context, event, reason string, columns []string, rows [][]string) {
	b.opts.Reporter.Exclude(ctx, report.Exclusion{
		Stage:     stage,
		EventType: event,
		Subject:   "conversations",
		Reason:    reason,
		Columns:   columns,
		Rows:      rows,
	})
}

func filter(convs []corpus.Conversation, keep func(corpus.Conversation) bool) []corpus.Conversation {
	out := convs[:0]
	for _, c := range convs {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

func fileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, services.Wrap(services.ErrValidation, stage, "stat", path, err)
	}
	return !info.IsDir(), nil
}
