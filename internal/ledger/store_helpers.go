package ledger

import (
	"database/sql"
	"time"
)

const runColumns = "id, input_root, output_root, started_at, finished_at, status, error_message, conversations, short_fragments, long_fragments"

const jobColumns = "id, run_id, stage, target, output_path, ok, error_kind, error_message, elapsed_ms, recorded_at"

type scanner interface{ Scan(dest ...any) error }

func scanRun(row scanner) (*Run, error) {
	var (
		run         Run
		startedRaw  string
		finishedRaw sql.NullString
		status      string
		message     sql.NullString
	)
	if err := row.Scan(
		&run.ID,
		&run.InputRoot,
		&run.OutputRoot,
		&startedRaw,
		&finishedRaw,
		&status,
		&message,
		&run.Conversations,
		&run.ShortFragments,
		&run.LongFragments,
	); err != nil {
		return nil, err
	}
	run.Status = Status(status)
	run.ErrorMessage = message.String
	run.StartedAt = parseTime(startedRaw)
	if finishedRaw.Valid {
		run.FinishedAt = parseTime(finishedRaw.String)
	}
	return &run, nil
}

func scanJob(row scanner) (*Job, error) {
	var (
		job         Job
		output      sql.NullString
		ok          int
		kind        sql.NullString
		message     sql.NullString
		elapsedMS   int64
		recordedRaw string
	)
	if err := row.Scan(
		&job.ID,
		&job.RunID,
		&job.Stage,
		&job.Target,
		&output,
		&ok,
		&kind,
		&message,
		&elapsedMS,
		&recordedRaw,
	); err != nil {
		return nil, err
	}
	job.OutputPath = output.String
	job.OK = ok != 0
	job.ErrorKind = kind.String
	job.ErrorMessage = message.String
	job.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	job.RecordedAt = parseTime(recordedRaw)
	return &job, nil
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
