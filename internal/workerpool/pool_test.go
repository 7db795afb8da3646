package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunPreservesTaskOrderAndCapturesErrors(t *testing.T) {
	boom := errors.New("boom")
	var tasks []Task[int]
	for i := 0; i < 10; i++ {
		i := i
		tasks = append(tasks, Task[int]{
			Key: fmt.Sprintf("job-%d", i),
			Run: func(context.Context) (int, error) {
				time.Sleep(time.Duration(10-i) * time.Millisecond)
				if i == 3 {
					return 0, boom
				}
				return i * i, nil
			},
		})
	}

	outcomes := Run(context.Background(), Options{Workers: 4}, tasks)
	if len(outcomes) != len(tasks) {
		t.Fatalf("expected %d outcomes, got %d", len(tasks), len(outcomes))
	}
	for i, o := range outcomes {
		if o.Key != fmt.Sprintf("job-%d", i) {
			t.Fatalf("outcome %d key = %q", i, o.Key)
		}
		if i == 3 {
			if !errors.Is(o.Err, boom) || o.OK() {
				t.Fatalf("expected failure for job-3, got %+v", o)
			}
			continue
		}
		if !o.OK() || o.Value != i*i {
			t.Fatalf("outcome %d = %+v", i, o)
		}
	}
	if failed := Failed(outcomes); len(failed) != 1 || failed[0].Key != "job-3" {
		t.Fatalf("unexpected failed outcomes: %+v", failed)
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	var active, peak int32
	var tasks []Task[struct{}]
	for i := 0; i < 20; i++ {
		tasks = append(tasks, Task[struct{}]{Run: func(context.Context) (struct{}, error) {
			n := atomic.AddInt32(&active, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&active, -1)
			return struct{}{}, nil
		}})
	}

	var calls int32
	Run(context.Background(), Options{Workers: 3, OnDone: func(done, total int) {
		atomic.AddInt32(&calls, 1)
		if total != 20 || done < 1 || done > 20 {
			t.Errorf("unexpected progress %d/%d", done, total)
		}
	}}, tasks)

	if peak > 3 {
		t.Fatalf("expected at most 3 concurrent tasks, saw %d", peak)
	}
	if calls != 20 {
		t.Fatalf("expected 20 progress calls, got %d", calls)
	}
}

func TestRunSkipsTasksAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	outcomes := Run(ctx, Options{Workers: 1}, []Task[int]{{Key: "a", Run: func(context.Context) (int, error) {
		ran = true
		return 1, nil
	}}})
	if ran {
		t.Fatal("expected task not to run after cancellation")
	}
	if !errors.Is(outcomes[0].Err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", outcomes[0].Err)
	}
}

func TestRunEmpty(t *testing.T) {
	if got := Run[int](context.Background(), Options{}, nil); len(got) != 0 {
		t.Fatalf("expected no outcomes, got %v", got)
	}
}
