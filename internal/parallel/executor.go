// Package parallel runs a function over many items on a bounded worker pool.
package parallel

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/rs/zerolog/log"
)

// DefaultWorkers is the pool size used when none is configured.
const DefaultWorkers = 10

// TaskResult is the outcome of running the task function on one item.
type TaskResult[T, R any] struct {
	Item    T
	Success bool
	Result  R
	Err     error
}

// Error returns the captured error message, or "" on success.
func (r TaskResult[T, R]) Error() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Func processes one item.
type Func[T, R any] func(ctx context.Context, item T) (R, error)

// Options carries the optional completion callbacks. Both fire once per
// item in completion order, one at a time.
type Options[T, R any] struct {
	OnResult   func(res TaskResult[T, R])
	OnProgress func(completed, total int, item T, res TaskResult[T, R])
}

// Executor holds the pool size.
type Executor struct {
	workers int
}

// New creates an Executor with the given number of workers (minimum 1).
func New(workers int) *Executor {
	if workers < 1 {
		workers = 1
	}
	return &Executor{workers: workers}
}

// Workers returns the pool size.
func (e *Executor) Workers() int { return e.workers }

type completion[T, R any] struct {
	index int
	res   TaskResult[T, R]
}

// Execute runs fn over items and returns one TaskResult per item, in the
// order of items. A failing or panicking item never affects the others.
// Once ctx is done, items that have not started are reported as failed
// with ctx.Err().
func Execute[T, R any](ctx context.Context, e *Executor, fn Func[T, R], items []T, opts Options[T, R]) []TaskResult[T, R] {
	if len(items) == 0 {
		return nil
	}
	total := len(items)
	workers := e.workers
	if workers > total {
		workers = total
	}

	jobs := make(chan int)
	done := make(chan completion[T, R], workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				done <- completion[T, R]{index: i, res: runOne(ctx, fn, items[i])}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range items {
			jobs <- i
		}
	}()

	go func() {
		wg.Wait()
		close(done)
	}()

	results := make([]TaskResult[T, R], total)
	completed := 0
	for c := range done {
		results[c.index] = c.res
		completed++
		if opts.OnResult != nil {
			opts.OnResult(c.res)
		}
		if opts.OnProgress != nil {
			opts.OnProgress(completed, total, c.res.Item, c.res)
		}
	}
	return results
}

// Map runs fn over items and returns the results in input order. Failed
// items hold the zero value of R.
func Map[T, R any](ctx context.Context, e *Executor, fn Func[T, R], items []T) []R {
	results := Execute(ctx, e, fn, items, Options[T, R]{})
	out := make([]R, len(results))
	for i, r := range results {
		if r.Success {
			out[i] = r.Result
		}
	}
	return out
}

func runOne[T, R any](ctx context.Context, fn Func[T, R], item T) (res TaskResult[T, R]) {
	res.Item = item
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	defer func() {
		if p := recover(); p != nil {
			log.Debug().Interface("item", item).Str("stack", string(debug.Stack())).Msg("task panicked")
			var zero R
			res.Success = false
			res.Result = zero
			res.Err = fmt.Errorf("panic: %v", p)
		}
	}()

	out, err := fn(ctx, item)
	if err != nil {
		log.Debug().Err(err).Interface("item", item).Msg("task failed")
		res.Err = err
		return res
	}
	res.Success = true
	res.Result = out
	return res
}
