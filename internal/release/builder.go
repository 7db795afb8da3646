package release

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"dral/internal/config"
	"dral/internal/conversation"
	"dral/internal/corpus"
	"dral/internal/extract"
	"dral/internal/fileutil"
	"dral/internal/ledger"
	"dral/internal/logging"
	"dral/internal/markup"
	"dral/internal/report"
	"dral/internal/services"
	"dral/internal/services/ffmpeg"
	"dral/internal/workbook"
)

const stage = "release"

// Guard errors stop a run before it writes anything. Callers print them and
// exit successfully.
var (
	ErrInputMissing = errors.New("release input missing")
	ErrOutputExists = errors.New("release output already exists")
)

// IsGuard reports whether err is one of the guard errors.
func IsGuard(err error) bool {
	return errors.Is(err, ErrInputMissing) || errors.Is(err, ErrOutputExists)
}

// ErrLocked is returned when another release run holds the run lock.
var ErrLocked = errors.New("another release run is in progress")

// Event types reported by the builder itself.
const (
	EventIncompleteRow = "workbook_incomplete_row"
	EventBrokenWAV     = "recording_broken_wav"
)

// Ledger records runs and their job outcomes.
type Ledger interface {
	StartRun(ctx context.Context, id, inputRoot, outputRoot string) error
	RecordJob(ctx context.Context, job ledger.Job) error
	FinishRun(ctx context.Context, id string, totals ledger.Totals, runErr error) error
}

// Options configures a Builder.
type Options struct {
	InputRoot  string
	OutputRoot string
	// Overwrite allows building into an output root that already has content.
	// Files the release owns are replaced; anything else is left alone.
	Overwrite     bool
	Workers       int
	LanguageCodes []string

	WarnSilence  bool
	SilenceShare float64

	ConcatenateTracks bool
	ConcatMinDuration time.Duration
	ConcatSampleRate  int

	// LockPath serializes runs. Empty disables locking.
	LockPath string

	Audio    ffmpeg.Client
	Ledger   Ledger
	Reporter report.Reporter
	Logger   *slog.Logger
}

// OptionsFromConfig maps configuration onto Options. Collaborators (Audio,
// Ledger, Reporter, Logger) are left for the caller.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		InputRoot:         cfg.Paths.InputRoot,
		OutputRoot:        cfg.Paths.OutputRoot,
		Overwrite:         cfg.Release.Overwrite,
		Workers:           cfg.Release.Workers,
		LanguageCodes:     cfg.Release.LanguageCodes,
		WarnSilence:       cfg.Release.WarnSilence,
		SilenceShare:      cfg.Release.SilenceThreshold,
		ConcatenateTracks: cfg.Release.ConcatenateTracks,
		ConcatMinDuration: time.Duration(cfg.Release.ConcatMinDurationMS) * time.Millisecond,
		ConcatSampleRate:  cfg.Release.ConcatSampleRate,
		LockPath:          cfg.LockPath(),
		Audio:             ffmpeg.NewCLI(ffmpeg.WithBinary(cfg.FFmpegBinary())),
	}
}

// Summary describes a finished run.
type Summary struct {
	RunID          string
	Conversations  int
	Participants   int
	Producers      int
	ShortFragments int
	LongFragments  int
	Concatenated   int
	FailedJobs     int
	Elapsed        time.Duration
}

// Builder builds one release directory from one input tree.
type Builder struct {
	opts   Options
	input  string
	layout Layout
	logger *slog.Logger
}

// NewBuilder validates opts and returns a Builder.
func NewBuilder(opts Options) (*Builder, error) {
	if strings.TrimSpace(opts.InputRoot) == "" {
		return nil, services.Wrap(services.ErrConfiguration, stage, "init", "input root is required", nil)
	}
	if strings.TrimSpace(opts.OutputRoot) == "" {
		return nil, services.Wrap(services.ErrConfiguration, stage, "init", "output root is required", nil)
	}
	input, err := filepath.Abs(opts.InputRoot)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stage, "init", "input root", err)
	}
	output, err := filepath.Abs(opts.OutputRoot)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stage, "init", "output root", err)
	}
	if input == output {
		return nil, services.Wrap(services.ErrConfiguration, stage, "init", "input and output roots must differ", nil)
	}
	if opts.Audio == nil {
		opts.Audio = ffmpeg.NewCLI()
	}
	if opts.Reporter == nil {
		opts.Reporter = report.Discard{}
	}
	return &Builder{
		opts:   opts,
		input:  input,
		layout: Layout{Root: output},
		logger: logging.NewComponentLogger(opts.Logger, stage),
	}, nil
}

// Layout returns the output layout of the builder.
func (b *Builder) Layout() Layout {
	return b.layout
}

// Run executes the whole pipeline. Guard failures return ErrInputMissing or
// ErrOutputExists before anything is written.
func (b *Builder) Run(ctx context.Context) (Summary, error) {
	started := time.Now()

	if err := b.checkInput(); err != nil {
		return Summary{}, err
	}
	if err := b.checkOutput(); err != nil {
		return Summary{}, err
	}

	unlock, err := b.lock()
	if err != nil {
		return Summary{}, err
	}
	defer unlock()

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, b.logger)
	logger.Info("release started",
		logging.String("input_root", b.input),
		logging.String("output_root", b.layout.Root),
	)

	b.startLedger(ctx, runID)
	summary, runErr := b.run(ctx, runID)
	summary.RunID = runID
	summary.Elapsed = time.Since(started)
	b.finishLedger(ctx, runID, summary, runErr)

	if runErr != nil {
		logging.ErrorWithContext(logger, "release failed", "release_failed",
			logging.Error(runErr),
			logging.Impact("release directory is incomplete"),
		)
		return summary, runErr
	}
	logger.Info("release finished",
		logging.Int("conversations", summary.Conversations),
		logging.Int("short_fragments", summary.ShortFragments),
		logging.Int("long_fragments", summary.LongFragments),
		logging.Int("failed_jobs", summary.FailedJobs),
		logging.Duration("elapsed", summary.Elapsed),
	)
	return summary, nil
}

func (b *Builder) run(ctx context.Context, runID string) (Summary, error) {
	var summary Summary
	inRecordings := filepath.Join(b.input, InputRecordingsDir)

	if err := b.validateRecordings(ctx, inRecordings); err != nil {
		return summary, err
	}

	wb, err := workbook.Read(filepath.Join(b.input, InputWorkbook))
	if err != nil {
		return summary, err
	}
	b.reportIncomplete(ctx, wb.Incomplete)

	if err := b.prepareOutput(); err != nil {
		return summary, err
	}

	convBuilder, err := conversation.NewBuilder(conversation.Options{
		RecordingsDir:       inRecordings,
		OutputRecordingsDir: b.layout.Recordings(),
		LanguageCodes:       b.opts.LanguageCodes,
		Reporter:            b.opts.Reporter,
		Logger:              b.opts.Logger,
	})
	if err != nil {
		return summary, err
	}
	convs, err := convBuilder.Build(ctx, wb.Conversations)
	if err != nil {
		return summary, err
	}

	split, err := markup.NewSplitter(markup.Options{
		ShortDir: b.layout.ShortDir(),
		LongDir:  b.layout.LongDir(),
		Reporter: b.opts.Reporter,
		Logger:   b.opts.Logger,
	}).Split(ctx, convs)
	if err != nil {
		return summary, err
	}

	driverOpts := extract.Options{
		Workers:      b.opts.Workers,
		Audio:        b.opts.Audio,
		WarnSilence:  b.opts.WarnSilence,
		SilenceShare: b.opts.SilenceShare,
		Reporter:     b.opts.Reporter,
		Sink:         ledgerSink{ledger: b.opts.Ledger, runID: runID, root: b.layout.Root},
		Logger:       b.opts.Logger,
	}
	if b.opts.ConcatenateTracks {
		driverOpts.ConcatDir = b.layout.ConcatDir()
		driverOpts.ConcatMinDuration = b.opts.ConcatMinDuration
		driverOpts.ConcatSampleRate = b.opts.ConcatSampleRate
	}
	extracted, err := extract.NewDriver(driverOpts).Run(ctx, extract.Input{
		Conversations: convs,
		Short:         split.Short,
		Long:          split.Long,
	})
	if err != nil {
		return summary, err
	}

	content := Content{
		Conversations: extracted.Conversations,
		Participants:  corpus.FeaturedParticipants(wb.Participants, extracted.Conversations),
		Producers:     corpus.FeaturedProducers(wb.Producers, extracted.Conversations),
		Short:         extracted.Short,
		Long:          extracted.Long,
	}
	if b.opts.ConcatenateTracks {
		content.Concatenated = extracted.Concatenated
		if content.Concatenated == nil {
			content.Concatenated = []corpus.ShortFragment{}
		}
	}
	if err := WriteContent(b.layout, content); err != nil {
		return summary, fmt.Errorf("write tables: %w", err)
	}

	summary.Conversations = len(content.Conversations)
	summary.Participants = len(content.Participants)
	summary.Producers = len(content.Producers)
	summary.ShortFragments = len(content.Short)
	summary.LongFragments = len(content.Long)
	summary.Concatenated = len(content.Concatenated)
	summary.FailedJobs = len(extracted.Failed)
	return summary, nil
}

func (b *Builder) checkInput() error {
	required := []string{
		b.input,
		filepath.Join(b.input, InputRecordingsDir),
	}
	for _, dir := range required {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("%w: directory %s does not exist", ErrInputMissing, dir)
		}
	}
	workbookPath := filepath.Join(b.input, InputWorkbook)
	if !fileutil.Exists(workbookPath) {
		return fmt.Errorf("%w: %s does not exist", ErrInputMissing, workbookPath)
	}
	return nil
}

func (b *Builder) checkOutput() error {
	empty, err := fileutil.DirIsEmpty(b.layout.Root)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, stage, "check output", b.layout.Root, err)
	}
	if !empty && !b.opts.Overwrite {
		return fmt.Errorf("%w: %s is not empty (use --overwrite to replace it)", ErrOutputExists, b.layout.Root)
	}
	return nil
}

func (b *Builder) lock() (func(), error) {
	if b.opts.LockPath == "" {
		return func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(b.opts.LockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(b.opts.LockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			b.logger.Warn("failed to release run lock", logging.Error(err))
		}
	}, nil
}

// prepareOutput removes what a previous run wrote and recreates the audio
// directories.
func (b *Builder) prepareOutput() error {
	for _, dir := range b.layout.AudioDirs() {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("clear %s: %w", dir, err)
		}
	}
	for _, name := range []string{
		ConversationCSV, ParticipantCSV, ProducerCSV,
		ShortCSV, ShortCompleteCSV, LongCSV, LongCompleteCSV, ShortConcatenatedCSV,
	} {
		if err := os.Remove(b.layout.Table(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("clear %s: %w", name, err)
		}
	}
	dirs := []string{b.layout.Recordings(), b.layout.ShortDir(), b.layout.LongDir()}
	if b.opts.ConcatenateTracks {
		dirs = append(dirs, b.layout.ConcatDir())
	}
	return fileutil.EnsureDirs(dirs...)
}

func (b *Builder) reportIncomplete(ctx context.Context, rows []workbook.IncompleteRow) {
	cells := make([][]string, 0, len(rows))
	for _, r := range rows {
		cells = append(cells, []string{r.Sheet, strconv.Itoa(r.SheetRow), strings.Join(r.Missing, ", ")})
	}
	b.opts.Reporter.Exclude(services.WithStage(ctx, "workbook"), report.Exclusion{
		Stage:     "workbook",
		EventType: EventIncompleteRow,
		Subject:   "workbook rows",
		Reason:    "have empty required cells",
		Columns:   []string{"sheet", "row", "missing"},
		Rows:      cells,
	})
}

func (b *Builder) startLedger(ctx context.Context, runID string) {
	if b.opts.Ledger == nil {
		return
	}
	if err := b.opts.Ledger.StartRun(ctx, runID, b.input, b.layout.Root); err != nil {
		logging.WarnWithContext(b.logger, "ledger unavailable", "ledger_start_failed",
			logging.Error(err),
			logging.Impact("run is not recorded in the ledger"),
		)
	}
}

func (b *Builder) finishLedger(ctx context.Context, runID string, summary Summary, runErr error) {
	if b.opts.Ledger == nil {
		return
	}
	totals := ledger.Totals{
		Conversations:  summary.Conversations,
		ShortFragments: summary.ShortFragments,
		LongFragments:  summary.LongFragments,
	}
	if err := b.opts.Ledger.FinishRun(context.WithoutCancel(ctx), runID, totals, runErr); err != nil {
		b.logger.Warn("ledger finish failed", logging.Error(err))
	}
}

// ledgerSink forwards extraction jobs to the ledger.
type ledgerSink struct {
	ledger Ledger
	runID  string
	root   string
}

func (s ledgerSink) RecordJob(ctx context.Context, job extract.Job) error {
	if s.ledger == nil {
		return nil
	}
	rec := ledger.Job{
		RunID:      s.runID,
		Stage:      job.Stage,
		Target:     job.Target,
		OutputPath: fileutil.RelativeTo(s.root, job.Output),
		OK:         job.Err == nil,
		Elapsed:    job.Elapsed,
	}
	if job.Err != nil {
		rec.ErrorKind = services.Kind(job.Err)
		rec.ErrorMessage = job.Err.Error()
	}
	return s.ledger.RecordJob(ctx, rec)
}
