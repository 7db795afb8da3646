package ledger

import "time"

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Run is one release build.
type Run struct {
	ID             string
	InputRoot      string
	OutputRoot     string
	StartedAt      time.Time
	FinishedAt     time.Time
	Status         Status
	ErrorMessage   string
	Conversations  int
	ShortFragments int
	LongFragments  int
}

// Finished reports whether the run has an end time.
func (r Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// Job is one recorded audio operation of a run.
type Job struct {
	ID           int64
	RunID        string
	Stage        string
	Target       string
	OutputPath   string
	OK           bool
	ErrorKind    string
	ErrorMessage string
	Elapsed      time.Duration
	RecordedAt   time.Time
}

// Totals are the table sizes recorded when a run finishes.
type Totals struct {
	Conversations  int
	ShortFragments int
	LongFragments  int
}
