package explore

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/kolkov/chesscheck/internal/chesscheck/interceptor"
	"github.com/kolkov/chesscheck/internal/chesscheck/program"
)

// ParallelRunner fans independent top-level trials across goroutines.
// Each trial builds its own Context (and therefore its own
// Interceptor), so the strategies within a single trial remain the
// strictly single-threaded cooperative execution spec.md §5 requires
// of a checked program. This is meant for scanning distinct PCT seeds
// or distinct CHESS preemption-bound shards, not for parallelizing a
// single trial's own interleaving search.
//
// program's Intercept*/StartThread functions dispatch through a single
// package-level binding (program.Bind), matching original_source/
// interface.cc's static Interceptor*, since the original only ever
// drives one trial at a time. Run holds program.Lock for each trial's
// entire lifetime (Context construction through the strategy finishing)
// so two trials never dispatch through that binding at once; trials
// therefore still execute one at a time regardless of maxConcurrency,
// until program's binding is reworked to be passed explicitly instead
// of shared package state. maxConcurrency still bounds how many trials
// are admitted past the semaphore at once, ahead of that serialization.
type ParallelRunner struct {
	maxConcurrency int64
}

// NewParallelRunner bounds how many trials are admitted past the
// semaphore at once. A maxConcurrency <= 0 is treated as 1.
func NewParallelRunner(maxConcurrency int) *ParallelRunner {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &ParallelRunner{maxConcurrency: int64(maxConcurrency)}
}

// Result is one trial's outcome.
type Result struct {
	Index     int
	Violation interceptor.Violation
	History   string
}

// Run executes each trial thunk, which must build its own Context and
// drive some strategy to completion before returning it. Up to
// maxConcurrency goroutines are admitted past the semaphore at once,
// but program.Lock then serializes their actual execution (see the
// type doc above); Run blocks until all trials have finished (or ctx
// is cancelled) and returns one Result per trial, in input order.
func (r *ParallelRunner) Run(ctx context.Context, trials []func() *Context) []Result {
	sem := semaphore.NewWeighted(r.maxConcurrency)
	g, gctx := errgroup.WithContext(ctx)
	results := make([]Result, len(trials))

	for i, trial := range trials {
		i, trial := i, trial
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			program.Lock()
			defer program.Unlock()

			c := trial()
			results[i] = Result{Index: i, Violation: c.Interceptor.Violation(), History: c.History.Dump()}
			return nil
		})
	}

	_ = g.Wait()
	return results
}
