package ldc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dral/internal/config"
	"dral/internal/fileutil"
	"dral/internal/logging"
	"dral/internal/media/ffprobe"
	"dral/internal/partition"
	"dral/internal/release"
	"dral/internal/report"
	"dral/internal/services"
	"dral/internal/services/ffmpeg"
	"dral/internal/workerpool"
)

const stage = "export"

// ErrUnexpectedLanguage is returned when a short fragment is not part of a
// pair in the distribution languages.
var ErrUnexpectedLanguage = errors.New("unexpected language code")

// Event types reported by the export.
const (
	EventLongPairDropped = "export_long_pair_dropped"
	EventConvertFailed   = "export_convert_failed"
)

// Distribution layout below the corpus directory.
const (
	SpeechDir   = "data/speech"
	MetadataDir = "data/speech/metadata"
	DocsDir     = "docs"
)

// ProbeFunc inspects a converted file.
type ProbeFunc func(ctx context.Context, path string) (ffprobe.Result, error)

// Options configures an Exporter.
type Options struct {
	ReleaseRoot   string
	OutputRoot    string
	CorpusDirName string
	// Languages is the distribution language pair, e.g. EN and ES.
	Languages  [2]string
	SampleRate int
	BitDepth   int
	Workers    int
	Partition  partition.Table

	Audio    ffmpeg.Client
	Probe    ProbeFunc
	Reporter report.Reporter
	Logger   *slog.Logger
}

// OptionsFromConfig maps configuration onto Options. The partition table must
// be resolved by the caller.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := Options{
		ReleaseRoot:   cfg.Paths.OutputRoot,
		OutputRoot:    cfg.Export.OutputRoot,
		CorpusDirName: cfg.Export.CorpusDirName,
		SampleRate:    cfg.Export.SampleRate,
		BitDepth:      cfg.Export.BitDepth,
		Workers:       cfg.Release.Workers,
		Audio:         ffmpeg.NewCLI(ffmpeg.WithBinary(cfg.FFmpegBinary())),
	}
	if len(cfg.Export.LanguagePair) == 2 {
		opts.Languages = [2]string{cfg.Export.LanguagePair[0], cfg.Export.LanguagePair[1]}
	}
	probeBinary := cfg.FFprobeBinary()
	opts.Probe = func(ctx context.Context, path string) (ffprobe.Result, error) {
		return ffprobe.Inspect(ctx, probeBinary, path)
	}
	return opts
}

// Summary describes a finished export.
type Summary struct {
	Root           string
	ShortFragments int
	LongFragments  int
	DroppedLong    int
	Failed         int
}

// Exporter writes one distribution tree.
type Exporter struct {
	opts   Options
	source release.Layout
	root   string
	logger *slog.Logger
}

// NewExporter validates opts and returns an Exporter.
func NewExporter(opts Options) (*Exporter, error) {
	if strings.TrimSpace(opts.ReleaseRoot) == "" || strings.TrimSpace(opts.OutputRoot) == "" {
		return nil, services.Wrap(services.ErrConfiguration, stage, "init", "release and output roots are required", nil)
	}
	if opts.Partition.Version == "" {
		return nil, services.Wrap(services.ErrConfiguration, stage, "init", "partition table is required", nil)
	}
	if opts.Languages[0] == "" || opts.Languages[1] == "" {
		opts.Languages = [2]string{"EN", "ES"}
	}
	if opts.CorpusDirName == "" {
		opts.CorpusDirName = "Dialogs Re-enacted Across Languages"
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = 16000
	}
	if opts.BitDepth <= 0 {
		opts.BitDepth = 16
	}
	if opts.Audio == nil {
		opts.Audio = ffmpeg.NewCLI()
	}
	if opts.Probe == nil {
		opts.Probe = func(ctx context.Context, path string) (ffprobe.Result, error) {
			return ffprobe.Inspect(ctx, "ffprobe", path)
		}
	}
	if opts.Reporter == nil {
		opts.Reporter = report.Discard{}
	}
	return &Exporter{
		opts:   opts,
		source: release.Layout{Root: opts.ReleaseRoot},
		root:   filepath.Join(opts.OutputRoot, opts.CorpusDirName),
		logger: logging.NewComponentLogger(opts.Logger, stage),
	}, nil
}

// Root returns the corpus directory the export writes.
func (e *Exporter) Root() string {
	return e.root
}

// fragmentTable is a fragment table being rewritten for distribution.
type fragmentTable struct {
	marker   string
	audio    string
	header   []string
	rows     [][]string
	oldIDs   []string
	idCol    int
	transCol int
}

// Run performs the export. It returns release.ErrInputMissing or
// release.ErrOutputExists when the guards stop it.
func (e *Exporter) Run(ctx context.Context) (Summary, error) {
	ctx = services.WithStage(ctx, stage)
	logger := logging.WithContext(ctx, e.logger)

	if err := e.checkInput(); err != nil {
		return Summary{}, err
	}
	empty, err := fileutil.DirIsEmpty(e.root)
	if err != nil {
		return Summary{}, fmt.Errorf("check output: %w", err)
	}
	if !empty {
		return Summary{}, fmt.Errorf("%w: %s is not empty", release.ErrOutputExists, e.root)
	}

	short, err := e.load(release.ShortCSV, MarkerShort, e.source.ShortDir())
	if err != nil {
		return Summary{}, err
	}
	long, err := e.load(release.LongCSV, MarkerLong, e.source.LongDir())
	if err != nil {
		return Summary{}, err
	}

	if err := e.checkShortLanguages(short); err != nil {
		return Summary{}, err
	}
	dropped := e.keepLanguagePairs(ctx, long)

	for _, t := range []*fragmentTable{short, long} {
		if err := e.addSets(t); err != nil {
			return Summary{}, err
		}
		if err := rewriteIDs(t); err != nil {
			return Summary{}, err
		}
	}

	if err := fileutil.EnsureDirs(
		filepath.Join(e.root, MetadataDir),
		filepath.Join(e.root, SpeechDir, release.ShortFragmentsDir),
		filepath.Join(e.root, SpeechDir, release.LongFragmentsDir),
		filepath.Join(e.root, DocsDir),
	); err != nil {
		return Summary{}, err
	}

	failed := e.convert(ctx, short)
	failed += e.convert(ctx, long)
	if err := ctx.Err(); err != nil {
		return Summary{}, err
	}

	if err := e.writeMetadata(short, long); err != nil {
		return Summary{}, err
	}

	summary := Summary{
		Root:           e.root,
		ShortFragments: len(short.rows),
		LongFragments:  len(long.rows),
		DroppedLong:    dropped,
		Failed:         failed,
	}
	logger.Info("export finished",
		logging.String("root", e.root),
		logging.Int("short_fragments", summary.ShortFragments),
		logging.Int("long_fragments", summary.LongFragments),
		logging.Int("dropped_long", summary.DroppedLong),
		logging.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (e *Exporter) checkInput() error {
	for _, name := range []string{
		release.ShortCSV, release.LongCSV, release.ConversationCSV, release.ParticipantCSV, release.ProducerCSV,
	} {
		if !fileutil.Exists(e.source.Table(name)) {
			return fmt.Errorf("%w: %s does not exist", release.ErrInputMissing, e.source.Table(name))
		}
	}
	return nil
}

func (e *Exporter) load(name, marker, audioDir string) (*fragmentTable, error) {
	t, err := release.ReadTable(e.source.Table(name))
	if err != nil {
		return nil, err
	}
	if err := t.Require("id", "lang_code", "trans_id"); err != nil {
		return nil, err
	}
	out := &fragmentTable{
		marker: marker,
		audio:  audioDir,
		header: append([]string(nil), t.Header...),
	}
	for i, col := range out.header {
		switch col {
		case "id":
			out.idCol = i
		case "trans_id":
			out.transCol = i
		}
	}
	for _, row := range t.Rows {
		out.rows = append(out.rows, append([]string(nil), row...))
	}
	return out, nil
}

func (e *Exporter) inPair(lang, transID string) bool {
	a, b := e.opts.Languages[0], e.opts.Languages[1]
	trans := languageOf(transID)
	return (lang == a && trans == b) || (lang == b && trans == a)
}

func (e *Exporter) checkShortLanguages(t *fragmentTable) error {
	langCol := columnIndex(t.header, "lang_code")
	for _, row := range t.rows {
		if !e.inPair(row[langCol], row[t.transCol]) {
			return fmt.Errorf("%w: short fragment %s (%s, translation %s) is not in the %s-%s pair",
				ErrUnexpectedLanguage, row[t.idCol], row[langCol], row[t.transCol], e.opts.Languages[0], e.opts.Languages[1])
		}
	}
	return nil
}

// keepLanguagePairs drops long fragments outside the language pair and
// returns how many were dropped.
func (e *Exporter) keepLanguagePairs(ctx context.Context, t *fragmentTable) int {
	langCol := columnIndex(t.header, "lang_code")
	kept := t.rows[:0]
	var dropped [][]string
	for _, row := range t.rows {
		if e.inPair(row[langCol], row[t.transCol]) {
			kept = append(kept, row)
			continue
		}
		dropped = append(dropped, []string{row[t.idCol], row[langCol], row[t.transCol]})
	}
	t.rows = kept
	e.opts.Reporter.Exclude(ctx, report.Exclusion{
		Stage:     stage,
		EventType: EventLongPairDropped,
		Subject:   "long fragments",
		Reason:    fmt.Sprintf("are not part of a %s-%s pair", e.opts.Languages[0], e.opts.Languages[1]),
		Columns:   []string{"id", "lang_code", "trans_id"},
		Rows:      dropped,
	})
	return len(dropped)
}

func (e *Exporter) addSets(t *fragmentTable) error {
	setCol := columnIndex(t.header, "set")
	if setCol < 0 {
		t.header = append(t.header, "set")
	}
	for i, row := range t.rows {
		set, err := e.opts.Partition.Assign(row[t.idCol])
		if err != nil {
			return err
		}
		if setCol < 0 {
			t.rows[i] = append(row, set)
		} else {
			row[setCol] = set
		}
	}
	return nil
}

func rewriteIDs(t *fragmentTable) error {
	t.oldIDs = make([]string, len(t.rows))
	for i, row := range t.rows {
		t.oldIDs[i] = row[t.idCol]
		id, err := RewriteID(row[t.idCol], t.marker)
		if err != nil {
			return err
		}
		trans, err := RewriteID(row[t.transCol], t.marker)
		if err != nil {
			return err
		}
		row[t.idCol], row[t.transCol] = id, trans
	}
	return nil
}

// convert writes FLAC audio for every row and drops rows (and their
// translations) whose conversion or verification failed. It returns the
// number of failed rows.
func (e *Exporter) convert(ctx context.Context, t *fragmentTable) int {
	outDir := filepath.Join(e.root, SpeechDir, filepath.Base(t.audio))
	tasks := make([]workerpool.Task[string], 0, len(t.rows))
	for i, row := range t.rows {
		req := ffmpeg.ConvertRequest{
			Input:      filepath.Join(t.audio, t.oldIDs[i]+".wav"),
			Output:     filepath.Join(outDir, row[t.idCol]+".flac"),
			SampleRate: e.opts.SampleRate,
			BitDepth:   e.opts.BitDepth,
		}
		tasks = append(tasks, workerpool.Task[string]{
			Key: row[t.idCol],
			Run: func(ctx context.Context) (string, error) {
				if err := e.opts.Audio.Convert(ctx, req); err != nil {
					return req.Output, err
				}
				return req.Output, e.verify(ctx, req.Output)
			},
		})
	}
	outcomes := workerpool.Run(ctx, workerpool.Options{Workers: e.opts.Workers}, tasks)

	failed := map[string]struct{}{}
	var rows [][]string
	for _, o := range workerpool.Failed(outcomes) {
		failed[o.Key] = struct{}{}
		rows = append(rows, []string{o.Key, o.Err.Error()})
	}
	if len(failed) == 0 {
		return 0
	}
	e.opts.Reporter.Exclude(ctx, report.Exclusion{
		Stage:     stage,
		EventType: EventConvertFailed,
		Subject:   "fragments",
		Reason:    "failed audio conversion (translations are left out too)",
		Columns:   []string{"id", "error"},
		Rows:      rows,
	})

	kept := t.rows[:0]
	for _, row := range t.rows {
		_, self := failed[row[t.idCol]]
		_, trans := failed[row[t.transCol]]
		if self || trans {
			_ = os.Remove(filepath.Join(outDir, row[t.idCol]+".flac"))
			continue
		}
		kept = append(kept, row)
	}
	dropped := len(t.rows) - len(kept)
	t.rows = kept
	return dropped
}

func (e *Exporter) verify(ctx context.Context, path string) error {
	res, err := e.opts.Probe(ctx, path)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, stage, "ffprobe", path, err)
	}
	spec := ffprobe.AudioSpec{Codec: "flac", SampleRate: e.opts.SampleRate, BitDepth: e.opts.BitDepth}
	if err := res.Check(spec); err != nil {
		return services.Wrap(services.ErrValidation, stage, "verify", path, err)
	}
	return nil
}

func (e *Exporter) writeMetadata(short, long *fragmentTable) error {
	meta := filepath.Join(e.root, MetadataDir)
	if err := release.WriteCSV(filepath.Join(meta, release.ShortCSV), short.header, short.rows); err != nil {
		return err
	}
	if err := release.WriteCSV(filepath.Join(meta, release.LongCSV), long.header, long.rows); err != nil {
		return err
	}
	for _, name := range []string{release.ConversationCSV, release.ParticipantCSV, release.ProducerCSV} {
		t, err := release.ReadTable(e.source.Table(name))
		if err != nil {
			return err
		}
		if err := release.WriteCSV(filepath.Join(meta, name), t.Header, t.Rows); err != nil {
			return err
		}
	}
	return nil
}

func columnIndex(header []string, name string) int {
	for i, col := range header {
		if col == name {
			return i
		}
	}
	return -1
}
