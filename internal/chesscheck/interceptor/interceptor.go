// Package interceptor bridges the program under test and the
// scheduler: it is the component the instrumented program calls into
// on every shared-memory access, and the component an exploration
// strategy drives one transition at a time.
//
// Ported from original_source/interceptor.h and interceptor.cc. The
// C++ original is single-threaded-by-coroutine, so its fields need no
// locking; this port keeps that property by construction, since
// internal/chesscheck/scheduler guarantees only one goroutine is ever
// unblocked at a time.
package interceptor

import (
	"github.com/kolkov/chesscheck/internal/chesscheck/history"
	"github.com/kolkov/chesscheck/internal/chesscheck/log"
	"github.com/kolkov/chesscheck/internal/chesscheck/scheduler"
	"github.com/kolkov/chesscheck/internal/chesscheck/stats"
	"github.com/kolkov/chesscheck/internal/chesscheck/threadset"
	"github.com/kolkov/chesscheck/internal/chesscheck/transition"
)

var (
	totalRuns        = stats.RegisterInt64(stats.Default, "runs", 0, false)
	totalTransitions = stats.RegisterInt64(stats.Default, "transitions", 0, false)
	totalFound       = stats.RegisterInt64(stats.Default, "found", 0, false)
	totalDistinct    = stats.RegisterInt64(stats.Default, "distinct", 0, false)
	firstFound       = stats.RegisterInt64(stats.Default, "first_found", -1, true)
)

var logger = log.For("interceptor")

// Violation describes why a run ended abnormally.
type Violation int

const (
	// NoViolation means the run ended (or is still in progress) cleanly.
	NoViolation Violation = iota
	// ViolationFoundBug means the program under test called Found().
	ViolationFoundBug
	// ViolationDeadlock means every live thread became unrunnable with
	// none finished: a REDESIGN FLAG from spec.md §9 over the original's
	// assert(0); exit(0) -- a library embedded in a test binary cannot
	// abort the host process and still report the trace that produced
	// the deadlock, so it is surfaced as a Violation instead.
	ViolationDeadlock
)

// Interceptor is the single point of contact between the scheduler,
// the running program, and the history being built for the current
// run.
type Interceptor struct {
	setupRun  func()
	finishRun func()

	scheduler *scheduler.Scheduler

	aliveThreads    threadset.Set
	runnable        threadset.Set
	nextTransitions threadset.Map[transition.Transition]

	violation Violation

	history *history.History

	numCreatedThreads int

	seenHashes map[history.Hash]struct{}
}

// New returns an Interceptor that calls setupRun before each run begins
// and finishRun once every thread has finished.
func New(setupRun, finishRun func()) *Interceptor {
	if setupRun == nil {
		setupRun = func() {}
	}
	if finishRun == nil {
		finishRun = func() {}
	}
	return &Interceptor{
		setupRun:   setupRun,
		finishRun:  finishRun,
		scheduler:  scheduler.New(),
		seenHashes: make(map[history.Hash]struct{}),
	}
}

// SetSetupRun replaces the function invoked at the start of every run.
// Exists so a caller can construct the Interceptor first and then
// build a setupRun closure that captures it (scenarios register their
// threads via ic.StartThread from inside setupRun, the same role
// original_source/interface.cc's scenario functions play when invoked
// as setup_run_).
func (ic *Interceptor) SetSetupRun(setupRun func()) {
	if setupRun == nil {
		setupRun = func() {}
	}
	ic.setupRun = setupRun
}

// CurrentThread returns the thread currently holding the scheduling
// token.
func (ic *Interceptor) CurrentThread() int {
	return ic.scheduler.CurrentThread()
}

// Runnable returns the set of threads whose pending transition is
// currently runnable.
func (ic *Interceptor) Runnable() threadset.Set {
	return ic.runnable
}

// NextTransitions returns the pending transition for each thread that
// has reached one and is waiting to be advanced.
func (ic *Interceptor) NextTransitions() threadset.Map[transition.Transition] {
	return ic.nextTransitions
}

// History returns the history being built for the current run.
func (ic *Interceptor) History() *history.History {
	return ic.history
}

// Violation reports why the current run ended, if it ended abnormally.
func (ic *Interceptor) Violation() Violation {
	return ic.violation
}

// Finished reports whether every thread started this run has
// completed.
func (ic *Interceptor) Finished() bool {
	return ic.aliveThreads.Empty()
}

// StartThread registers task as a new logical thread and returns its
// id, matching original_source/interceptor.cc's StartThread. The
// thread does not run until the scheduler first switches to it.
func (ic *Interceptor) StartThread(task func()) int {
	thread := ic.numCreatedThreads
	ic.numCreatedThreads++

	ic.scheduler.AddThread(thread, func() {
		task()
		ic.aliveThreads = ic.aliveThreads.Erase(thread)
		ic.exitToNext(thread)
	})
	ic.aliveThreads = ic.aliveThreads.Insert(thread)

	return thread
}

// ReachedTransition is called by a running thread's own goroutine to
// announce the transition it is about to perform, and blocks until the
// exploration strategy advances it.
func (ic *Interceptor) ReachedTransition(tr transition.Transition) {
	thread := ic.scheduler.CurrentThread()
	ic.nextTransitions.Set(thread, tr)
	ic.switchToNext()
}

// FoundBug records that the program under test reported a property
// violation, matching Program API's C7 Found().
func (ic *Interceptor) FoundBug() {
	ic.violation = ViolationFoundBug
}

// StartNewRun resets the interceptor and the given history for a fresh
// run: every thread left runnable from a previous, abandoned run is
// drained first, then setupRun is invoked and the first thread is
// dispatched.
func (ic *Interceptor) StartNewRun(h *history.History) {
	for {
		t, ok := ic.runnable.First()
		if !ok {
			break
		}
		ic.AdvanceThread(t)
	}

	ic.numCreatedThreads = 0
	ic.violation = NoViolation
	ic.aliveThreads = threadset.Set{}
	ic.nextTransitions = threadset.Map[transition.Transition]{}

	ic.history = h
	if ic.history != nil {
		ic.history.Reset()
	}

	totalRuns.Inc()

	ic.setupRun()
	ic.switchToNext()
	ic.computeRunnable()
}

// AdvanceThread runs thread past its currently pending transition.
//
// DANGER, preserved from original_source/interceptor.cc: AddTransition
// must be called immediately before the transition actually executes,
// since its conflict analysis depends on the pre-execution memory
// value it reads while the call is made. Do not reorder this relative
// to scheduler.SwitchTo below.
func (ic *Interceptor) AdvanceThread(thread int) {
	tr, ok := ic.nextTransitions.Get(thread)
	if !ok {
		panic("interceptor: AdvanceThread called for a thread with no pending transition")
	}

	if ic.history != nil {
		ic.history.AddTransition(thread, tr, tr.Read())
	}

	// The thread will call ReachedTransition again before switching
	// back here, so the old entry must be gone before we hand it the
	// token, or a stale transition could be observed.
	ic.nextTransitions.Erase(thread)

	totalTransitions.Inc()

	ic.scheduler.SwitchTo(thread)
	ic.computeRunnable()
}

func (ic *Interceptor) computeRunnable() {
	ic.runnable = threadset.Set{}
	ic.nextTransitions.Keys().Each(func(thread int) {
		tr, _ := ic.nextTransitions.Get(thread)
		if tr.DetermineRunnable(tr.Read()) {
			ic.runnable = ic.runnable.Insert(thread)
		}
	})

	if ic.aliveThreads.Empty() {
		ic.finishRunInternal()
	} else if ic.runnable.Empty() {
		ic.violation = ViolationDeadlock
		logger.Warn().Msg("every live thread is unrunnable: deadlock")
	}
}

func (ic *Interceptor) finishRunInternal() {
	ic.finishRun()

	if ic.violation == ViolationFoundBug {
		if totalFound.Value() == 0 {
			logger.Info().Str("trace", ic.history.Dump()).Msg("first violation found")
			firstFound.Set(totalRuns.Value())
		}
		totalFound.Inc()
	}

	if ic.history != nil {
		h := ic.history.CombineCurrentHashes()
		if _, seen := ic.seenHashes[h]; !seen {
			ic.seenHashes[h] = struct{}{}
			totalDistinct.Inc()
		}
	}
}

func (ic *Interceptor) switchToNext() {
	nextUnknown := ic.aliveThreads.Minus(ic.nextTransitions.Keys())

	if t, ok := nextUnknown.First(); ok {
		ic.scheduler.SwitchTo(t)
	} else {
		ic.scheduler.SwitchTo(scheduler.OriginalThread)
	}
}

// exitToNext is switchToNext's counterpart for a thread goroutine that
// has just finished its task for good: it must hand off the token
// without blocking for it to come back, since nothing will ever switch
// back to a finished thread (the Go analogue of the original's final,
// never-returning jump_fcontext out of a dying coroutine).
func (ic *Interceptor) exitToNext(finishing int) {
	nextUnknown := ic.aliveThreads.Minus(ic.nextTransitions.Keys())

	if t, ok := nextUnknown.First(); ok {
		ic.scheduler.Exit(finishing, t)
	} else {
		ic.scheduler.Exit(finishing, scheduler.OriginalThread)
	}
}
