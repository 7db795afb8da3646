package extract

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"dral/internal/corpus"
	"dral/internal/fileutil"
	"dral/internal/logging"
	"dral/internal/media/wavcheck"
	"dral/internal/report"
	"dral/internal/services"
	"dral/internal/services/ffmpeg"
	"dral/internal/workerpool"
)

// Stage names used for job records and log context.
const (
	StageCopy    = "copy"
	StageShort   = "trim_short"
	StageLong    = "trim_long"
	StageSilence = "silence"
	StageConcat  = "concat"
)

// Event types reported by the driver.
const (
	EventJobFailed       = "extract_job_failed"
	EventMostlySilent    = "fragment_mostly_silent"
	EventConcatTooShort  = "concat_fragment_too_short"
	EventConcatTrackSkip = "concat_track_skipped"
	EventConcatDropped   = "concat_fragment_dropped"
)

// Job is the recorded outcome of one audio operation.
type Job struct {
	Stage   string
	Target  string
	Output  string
	Err     error
	Elapsed time.Duration
}

// JobSink receives every finished job.
type JobSink interface {
	RecordJob(ctx context.Context, job Job) error
}

// Options configures a Driver.
type Options struct {
	Workers int
	Audio   ffmpeg.Client
	// ConcatDir receives one {conv_id}{track}.wav per concatenated track. An
	// empty ConcatDir disables concatenation.
	ConcatDir         string
	ConcatMinDuration time.Duration
	ConcatSampleRate  int
	WarnSilence       bool
	SilenceShare      float64
	Reporter          report.Reporter
	Sink              JobSink
	Logger            *slog.Logger
}

// Input is the validated release content to extract.
type Input struct {
	Conversations []corpus.Conversation
	Short         []corpus.ShortFragment
	Long          []corpus.LongFragment
}

// Result is the release content whose audio materialized.
type Result struct {
	Conversations []corpus.Conversation
	Short         []corpus.ShortFragment
	Long          []corpus.LongFragment
	// Concatenated is the subset of Short placed in a concatenated track,
	// each with Concat set.
	Concatenated []corpus.ShortFragment
	Failed       []Job
}

// Driver runs extraction stages on a bounded worker pool.
type Driver struct {
	opts   Options
	logger *slog.Logger
}

// NewDriver returns a Driver. opts.Audio defaults to the ffmpeg CLI.
func NewDriver(opts Options) *Driver {
	if opts.Audio == nil {
		opts.Audio = ffmpeg.NewCLI()
	}
	if opts.Reporter == nil {
		opts.Reporter = report.Discard{}
	}
	if opts.SilenceShare <= 0 {
		opts.SilenceShare = 0.95
	}
	return &Driver{opts: opts, logger: logging.NewComponentLogger(opts.Logger, "extract")}
}

// Run executes every stage in order, waiting for all jobs of a stage before
// starting the next.
func (d *Driver) Run(ctx context.Context, in Input) (Result, error) {
	var res Result

	copyJobs := d.copyConversations(ctx, in.Conversations)
	shortJobs := d.trimShort(ctx, in.Short)
	longJobs := d.trimLong(ctx, in.Long)
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	failedConvs := map[string]struct{}{}
	for _, j := range copyJobs {
		if j.Err != nil {
			failedConvs[j.Target] = struct{}{}
		}
	}
	failedFrags := map[string]struct{}{}
	for _, j := range append(append([]Job(nil), shortJobs...), longJobs...) {
		if j.Err != nil {
			failedFrags[j.Target] = struct{}{}
		}
	}
	for _, j := range append(append(append([]Job(nil), copyJobs...), shortJobs...), longJobs...) {
		if j.Err != nil {
			res.Failed = append(res.Failed, j)
		}
	}
	d.reportFailures(ctx, res.Failed)

	res.Conversations, res.Short, res.Long = dropFailed(in, failedConvs, failedFrags)

	if d.opts.WarnSilence {
		d.warnSilence(ctx, res.Short)
	}

	if d.opts.ConcatDir != "" {
		concatenated, failed := d.concatenate(ctx, res.Short)
		res.Concatenated = concatenated
		res.Failed = append(res.Failed, failed...)
	}

	d.logger.Info("extraction finished",
		logging.Int("conversations", len(res.Conversations)),
		logging.Int("short_fragments", len(res.Short)),
		logging.Int("long_fragments", len(res.Long)),
		logging.Int("concatenated_fragments", len(res.Concatenated)),
		logging.Int("failed_jobs", len(res.Failed)),
	)
	return res, ctx.Err()
}

func (d *Driver) copyConversations(ctx context.Context, convs []corpus.Conversation) []Job {
	tasks := make([]workerpool.Task[string], 0, len(convs))
	for _, c := range convs {
		c := c // per-iteration copy (pre-Go 1.22 loop semantics)
		tasks = append(tasks, workerpool.Task[string]{
			Key: c.ID,
			Run: func(context.Context) (string, error) {
				if err := ensureParent(StageCopy, c.ID, c.CopyAudioPath); err != nil {
					return c.CopyAudioPath, err
				}
				if err := fileutil.CopyFileVerified(c.AudioPath, c.CopyAudioPath); err != nil {
					return c.CopyAudioPath, services.Wrap(services.ErrValidation, StageCopy, c.ID, "conversation audio is unreadable", err)
				}
				return c.CopyAudioPath, nil
			},
		})
	}
	return d.runStage(ctx, StageCopy, tasks)
}

func (d *Driver) trimShort(ctx context.Context, frags []corpus.ShortFragment) []Job {
	tasks := make([]workerpool.Task[string], 0, len(frags))
	for _, f := range frags {
		req := ffmpeg.TrimRequest{
			Input:   f.ConvAudioPath,
			Output:  f.AudioPath,
			Start:   f.Start,
			End:     f.End,
			Channel: f.Remix.Channel,
		}
		tasks = append(tasks, d.trimTask(f.ID, req))
	}
	return d.runStage(ctx, StageShort, tasks)
}

func (d *Driver) trimLong(ctx context.Context, frags []corpus.LongFragment) []Job {
	tasks := make([]workerpool.Task[string], 0, len(frags))
	for _, f := range frags {
		req := ffmpeg.TrimRequest{
			Input:  f.ConvAudioPath,
			Output: f.AudioPath,
			Start:  f.Start,
			End:    f.End,
		}
		tasks = append(tasks, d.trimTask(f.ID, req))
	}
	return d.runStage(ctx, StageLong, tasks)
}

func (d *Driver) trimTask(id string, req ffmpeg.TrimRequest) workerpool.Task[string] {
	return workerpool.Task[string]{
		Key: id,
		Run: func(ctx context.Context) (string, error) {
			if err := ensureParent("trim", id, req.Output); err != nil {
				return req.Output, err
			}
			if err := d.opts.Audio.Trim(ctx, req); err != nil {
				return req.Output, err
			}
			if !fileutil.Exists(req.Output) {
				return req.Output, services.Wrap(services.ErrExternalTool, "trim", id, "output was not written", nil)
			}
			return req.Output, nil
		},
	}
}

func (d *Driver) runStage(ctx context.Context, stage string, tasks []workerpool.Task[string]) []Job {
	if len(tasks) == 0 {
		return nil
	}
	stageCtx := services.WithStage(ctx, stage)
	logger := logging.WithContext(stageCtx, d.logger)
	logger.Info("stage started", logging.Int("jobs", len(tasks)))

	step := progressStep(len(tasks))
	outcomes := workerpool.Run(stageCtx, workerpool.Options{
		Workers: d.opts.Workers,
		OnDone: func(done, total int) {
			if done%step == 0 || done == total {
				logger.Debug("stage progress", logging.Int("done", done), logging.Int("jobs", total))
			}
		},
	}, tasks)

	jobs := make([]Job, 0, len(outcomes))
	failed := 0
	for _, o := range outcomes {
		job := Job{Stage: stage, Target: o.Key, Output: o.Value, Err: o.Err, Elapsed: o.Elapsed}
		jobs = append(jobs, job)
		jobLogger := logging.WithContext(services.WithTarget(stageCtx, job.Target), d.logger)
		if job.Err != nil {
			failed++
			jobLogger.Debug("job failed", logging.String("kind", services.Kind(job.Err)), logging.Error(job.Err))
		}
		if d.opts.Sink != nil {
			if err := d.opts.Sink.RecordJob(stageCtx, job); err != nil {
				jobLogger.Warn("job record failed", logging.Error(err))
			}
		}
	}
	logger.Info("stage finished", logging.Int("jobs", len(jobs)), logging.Int("failed", failed))
	return jobs
}

// ensureParent creates the directory an audio output is written to.
func ensureParent(stage, id, path string) error {
	if err := fileutil.EnsureDirs(filepath.Dir(path)); err != nil {
		return services.Wrap(services.ErrConfiguration, stage, id, "create output directory", err)
	}
	return nil
}

// progressStep logs roughly every tenth of a stage.
func progressStep(total int) int {
	if total < 10 {
		return 1
	}
	return total / 10
}

func (d *Driver) reportFailures(ctx context.Context, failed []Job) {
	rows := make([][]string, 0, len(failed))
	for _, j := range failed {
		rows = append(rows, []string{j.Stage, j.Target, services.Kind(j.Err), j.Err.Error()})
	}
	d.opts.Reporter.Exclude(ctx, report.Exclusion{
		Stage:     "extract",
		EventType: EventJobFailed,
		Subject:   "rows",
		Reason:    "failed audio extraction",
		Columns:   []string{"stage", "id", "kind", "error"},
		Rows:      rows,
	})
}

func (d *Driver) warnSilence(ctx context.Context, frags []corpus.ShortFragment) {
	tasks := make([]workerpool.Task[bool], 0, len(frags))
	for _, f := range frags {
		path := f.AudioPath
		tasks = append(tasks, workerpool.Task[bool]{
			Key: f.ID,
			Run: func(context.Context) (bool, error) {
				return wavcheck.MostlySilent(path, d.opts.SilenceShare)
			},
		})
	}
	outcomes := workerpool.Run(services.WithStage(ctx, StageSilence), workerpool.Options{Workers: d.opts.Workers}, tasks)
	var rows [][]string
	for _, o := range outcomes {
		if o.Err != nil {
			d.logger.Debug("silence check failed", logging.Target(o.Key), logging.Error(o.Err))
			continue
		}
		if o.Value {
			rows = append(rows, []string{o.Key})
		}
	}
	// Silent fragments stay in the release; this is a warning only.
	if len(rows) > 0 {
		ctx = services.WithStage(ctx, StageSilence)
		logging.WarnWithContext(logging.WithContext(ctx, d.logger), "fragments may be mostly silent", EventMostlySilent,
			logging.Int("fragments", len(rows)),
			logging.Impact("fragments kept; review audio"),
		)
		d.opts.Reporter.Exclude(ctx, report.Exclusion{
			Stage:     StageSilence,
			EventType: EventMostlySilent,
			Subject:   "fragments",
			Reason:    "may be mostly silent (kept in the release)",
			Columns:   []string{"id"},
			Rows:      rows,
		})
	}
}

// dropFailed removes conversations whose copy failed together with their
// translation conversations and every fragment of either, then removes
// fragments whose trim failed together with their translations.
func dropFailed(in Input, failedConvs, failedFrags map[string]struct{}) ([]corpus.Conversation, []corpus.ShortFragment, []corpus.LongFragment) {
	for _, c := range in.Conversations {
		if _, ok := failedConvs[c.ID]; ok {
			failedConvs[c.TransID] = struct{}{}
		}
	}
	for _, f := range in.Short {
		if _, ok := failedFrags[f.ID]; ok {
			failedFrags[f.TransID] = struct{}{}
		}
	}
	for _, f := range in.Long {
		if _, ok := failedFrags[f.ID]; ok {
			failedFrags[f.TransID] = struct{}{}
		}
	}

	dropped := func(f corpus.Fragment) bool {
		if _, ok := failedConvs[f.ConvID]; ok {
			return true
		}
		_, ok := failedFrags[f.ID]
		return ok
	}

	convs := make([]corpus.Conversation, 0, len(in.Conversations))
	for _, c := range in.Conversations {
		if _, ok := failedConvs[c.ID]; !ok {
			convs = append(convs, c)
		}
	}
	short := make([]corpus.ShortFragment, 0, len(in.Short))
	for _, f := range in.Short {
		if !dropped(f.Fragment) {
			short = append(short, f)
		}
	}
	long := make([]corpus.LongFragment, 0, len(in.Long))
	for _, f := range in.Long {
		if !dropped(f.Fragment) {
			long = append(long, f)
		}
	}
	return convs, short, long
}

// sortByStart orders fragments by start time, keeping markup order for ties.
func sortByStart(frags []corpus.ShortFragment) {
	sort.SliceStable(frags, func(i, j int) bool {
		return frags[i].Start < frags[j].Start
	})
}

func concatPath(dir string, key corpus.TrackKey) string {
	return filepath.Join(dir, key.String()+".wav")
}
