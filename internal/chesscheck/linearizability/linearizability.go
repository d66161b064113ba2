// Package linearizability implements a generic linearizability checker
// usable from any scenario: given a sequential model of a data
// structure and a concurrent history of calls against the real
// implementation, it searches for a total order of those calls,
// consistent with each call's real-time happens-before span, under
// which the model reproduces every observed result.
//
// Ported from original_source/linearizability.h and linearizability.cc.
package linearizability

import (
	"fmt"

	"github.com/kolkov/chesscheck/internal/chesscheck/clockvector"
	"github.com/kolkov/chesscheck/program"
)

// Ordering is one recorded call: which thread's i-th step it was, the
// logical thread id that actually executed it, the clock vectors
// observed immediately before and after, and (once a candidate
// linearization is being tried) whether it has been placed yet.
type Ordering struct {
	Thread       int
	ActualThread int
	Function     int
	Result       int
	StartCV      *clockvector.ClockVector
	EndCV        *clockvector.ClockVector
	Executed     bool
}

type step struct {
	fn   func() int
	name string
}

// Linearizability drives a sequence of operations per logical thread
// against a real implementation, then checks the recorded history
// against a sequential model.
type Linearizability struct {
	threads [][]step

	setupModel, cleanupModel func()
	setupImpl, cleanupImpl   func()

	order         []Ordering
	linearization []int
}

// New returns a Linearizability checker for numThreads logical
// threads, each of which will call AddStep to describe its own
// sequence of operations.
func New(numThreads int) *Linearizability {
	return &Linearizability{threads: make([][]step, numThreads)}
}

// RegisterModel registers the sequential reference model's setup and
// cleanup, invoked once per candidate linearization tried during
// Finish's search.
func (l *Linearizability) RegisterModel(setup, cleanup func()) {
	l.setupModel, l.cleanupModel = setup, cleanup
}

// RegisterImplementation registers the real implementation's setup and
// cleanup, invoked once per trial.
func (l *Linearizability) RegisterImplementation(setup, cleanup func()) {
	l.setupImpl, l.cleanupImpl = setup, cleanup
}

// AddStep appends one operation to thread's sequence: function is
// called during both the real run (via ThreadBody) and, once per
// linearization candidate, against the model (via the same function
// reference -- a scenario registers one function whose behavior
// depends on which implementation is currently installed, exactly as
// the original's AddStep does).
func (l *Linearizability) AddStep(thread int, function func() int, name string) {
	l.threads[thread] = append(l.threads[thread], step{function, name})
}

// Setup runs the implementation's setup and clears the recorded
// history, ready for a new trial.
func (l *Linearizability) Setup() {
	if l.setupImpl != nil {
		l.setupImpl()
	}
	l.order = l.order[:0]
}

// Finish runs the implementation's cleanup, then searches for a
// linearization consistent with the trial just recorded; if none
// exists, it calls program.Found.
func (l *Linearizability) Finish() {
	if l.cleanupImpl != nil {
		l.cleanupImpl()
	}
	l.linearization = l.linearization[:0]

	if !l.search() {
		program.Found()
	}
}

// ThreadBody runs every step registered for thread in order, recording
// each call's result and the clock vectors observed immediately before
// and after it.
func (l *Linearizability) ThreadBody(thread int) {
	for i, st := range l.threads[thread] {
		start := len(l.order)
		l.order = append(l.order, Ordering{
			Thread:       thread,
			ActualThread: program.ThreadId(),
			Function:     i,
			StartCV:      program.GetClockVector(thread).Clone(),
		})

		program.Annotate(fmt.Sprintf("Starting %s", st.name))
		ret := st.fn()
		program.Annotate(fmt.Sprintf("-> %d", ret))

		l.order[start].EndCV = program.GetClockVector(thread).Clone()
		l.order[start].Result = ret
	}
}

// verify replays the current candidate linearization (l.linearization)
// against the sequential model and reports whether every call returns
// the result actually observed.
func (l *Linearizability) verify() bool {
	if l.setupModel != nil {
		l.setupModel()
	}

	success := true
	for _, idx := range l.linearization {
		o := l.order[idx]
		if l.threads[o.Thread][o.Function].fn() != o.Result {
			success = false
			break
		}
	}

	if l.cleanupModel != nil {
		l.cleanupModel()
	}
	return success
}

// search recursively extends l.linearization with one more not-yet-
// placed call at a time, pruning a candidate as soon as verify rejects
// it, and respecting two ordering constraints: a thread's own calls
// must be placed in the order it made them, and a call whose span
// happened strictly after another thread's call (by clock vector) may
// not be placed before it.
func (l *Linearizability) search() bool {
	if !l.verify() {
		return false
	}

	done := true
	for i := range l.order {
		if !l.order[i].Executed {
			done = false
			break
		}
	}
	if done {
		return true
	}

	for i := range l.order {
		if l.order[i].Executed {
			continue
		}

		can := true
		for j := range l.order {
			if i == j || l.order[j].Executed {
				continue
			}

			if l.order[i].Thread == l.order[j].Thread {
				if j < i {
					can = false
					break
				}
				continue
			}

			iAfterJ := l.order[i].EndCV.Get(l.order[j].ActualThread) >= l.order[j].StartCV.Get(l.order[j].ActualThread)
			jAfterI := l.order[j].EndCV.Get(l.order[i].ActualThread) >= l.order[i].StartCV.Get(l.order[i].ActualThread)

			if iAfterJ && !jAfterI {
				can = false
				break
			}
		}

		if !can {
			continue
		}

		l.linearization = append(l.linearization, i)
		l.order[i].Executed = true
		success := l.search()
		l.order[i].Executed = false
		l.linearization = l.linearization[:len(l.linearization)-1]
		if success {
			return true
		}
	}

	return false
}
