// Package workerpool runs independent row-level jobs on a bounded number of
// goroutines and captures each job's result as a typed Outcome.
package workerpool

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// Task is one unit of work. Key identifies the row it belongs to.
type Task[T any] struct {
	Key string
	Run func(ctx context.Context) (T, error)
}

// Outcome is the captured result of a Task.
type Outcome[T any] struct {
	Key     string
	Value   T
	Err     error
	Elapsed time.Duration
}

// OK reports whether the task succeeded.
func (o Outcome[T]) OK() bool {
	return o.Err == nil
}

// Options tunes a pool run.
type Options struct {
	// Workers bounds concurrency. Values below 1 use runtime.NumCPU.
	Workers int
	// OnDone, when set, is called after each task finishes with the number of
	// finished tasks so far. Calls are serialized.
	OnDone func(done, total int)
}

// Run executes every task and waits for all of them. Outcomes are returned in
// task order regardless of completion order. Tasks not yet started when ctx
// is cancelled are not run and carry ctx.Err().
func Run[T any](ctx context.Context, opts Options, tasks []Task[T]) []Outcome[T] {
	workers := opts.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	outcomes := make([]Outcome[T], len(tasks))
	if len(tasks) == 0 {
		return outcomes
	}

	var (
		mu   sync.Mutex
		done int
		wg   sync.WaitGroup
	)
	sem := make(chan struct{}, workers)

	for i := range tasks {
		task := tasks[i]
		outcomes[i].Key = task.Key
		if err := ctx.Err(); err != nil {
			outcomes[i].Err = err
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			start := time.Now()
			value, err := task.Run(ctx)
			outcomes[i].Value = value
			outcomes[i].Err = err
			outcomes[i].Elapsed = time.Since(start)

			if opts.OnDone != nil {
				mu.Lock()
				done++
				opts.OnDone(done, len(tasks))
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	return outcomes
}

// Failed returns the outcomes that carry an error.
func Failed[T any](outcomes []Outcome[T]) []Outcome[T] {
	var out []Outcome[T]
	for _, o := range outcomes {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}
