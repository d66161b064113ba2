// Package program is the public API instrumented target programs and
// hand-written scenarios call into: starting logical threads, guiding
// the next transition's required result, and reporting a violation.
// It also hosts the Intercept ABI the instrumentation pass targets.
//
// Ported from original_source/interface.cc and program_interface.h.
// The C++ original keeps a single process-wide Interceptor* set once by
// SetupInterfaceAndInterceptor; this port keeps the same single-active-
// binding shape via Bind, since chesscheck, like the original, only
// ever drives one trial at a time regardless of which exploration
// strategy is running it (internal/chesscheck/explore.NewContext calls
// Bind as part of constructing a Context). A caller driving more than
// one trial at once must hold Lock for each trial's entire lifetime;
// see explore.ParallelRunner.
package program

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/kolkov/chesscheck/internal/chesscheck/clockvector"
	"github.com/kolkov/chesscheck/internal/chesscheck/interceptor"
	"github.com/kolkov/chesscheck/internal/chesscheck/log"
	"github.com/kolkov/chesscheck/internal/chesscheck/threadset"
	"github.com/kolkov/chesscheck/internal/chesscheck/transition"
)

var logger = log.For("program")

// current is the interceptor every package-level function below
// dispatches to, mirroring interface.cc's static Interceptor* variable.
var current *interceptor.Interceptor

// pendingInfo carries the out-of-band RequireResult/Annotate state for
// a thread's next transition, matching interface.cc's
// next_transition_info ThreadMap<NextTransitionInfo>.
var pendingInfo threadset.Map[pendingTransitionInfo]

// bindMu guards current and pendingInfo against more than one trial
// dispatching through them at once. Bind itself does not acquire it,
// since within a single trial Bind runs once up front and every
// Intercept*/StartThread call that follows happens on threads the
// scheduler itself serializes one at a time (spec.md §5); the hazard
// is strictly across trials. A caller that might run more than one
// trial at the same time, such as explore.ParallelRunner, must hold
// Lock for a whole trial's lifetime -- Bind through the strategy's Run
// returning -- not just around the Bind call.
var bindMu sync.Mutex

// Lock acquires the package-wide binding lock. See bindMu.
func Lock() { bindMu.Lock() }

// Unlock releases the lock acquired by Lock.
func Unlock() { bindMu.Unlock() }

type pendingTransitionInfo struct {
	hasRequired bool
	required    int64
	annotations []string
}

// ShowOutput gates Output, the rewrite of interface.cc's
// show_program_output global: when false (the default), Output is a
// no-op regardless of log verbosity.
var ShowOutput bool

// Bind installs ic as the interceptor the package-level functions below
// dispatch to.
func Bind(ic *interceptor.Interceptor) {
	current = ic
	pendingInfo.Clear()
}

// StartThread registers task as a new logical thread and returns its
// id. The thread does not run until the scheduler first switches to
// it.
func StartThread(task func()) int {
	return current.StartThread(task)
}

// StartThreadArg registers task bound to arg as a new logical thread,
// the Go replacement for interface.cc's std::function<void(int)>
// overload (Go has no std::bind equivalent worth reproducing; a
// closure says the same thing).
func StartThreadArg(task func(int), arg int) int {
	return current.StartThread(func() { task(arg) })
}

// ThreadId returns the id of the logical thread currently running.
func ThreadId() int {
	return current.CurrentThread()
}

// RequestYield is a hint that the calling thread would be a
// particularly interesting place to consider a context switch. The
// original leaves this unimplemented (interface.cc's RequestYield is
// an empty function); every exploration strategy here makes its own
// switching decisions independent of this hint, so it is kept only for
// call-site compatibility with instrumented or hand-written scenarios
// that call it.
func RequestYield(int) {}

// Found reports that the program under test has reached a state the
// property being checked forbids.
func Found() {
	current.FoundBug()
}

// GetClockVector returns the clock vector the current run's history has
// accumulated for thread so far.
func GetClockVector(thread int) *clockvector.ClockVector {
	return current.History().CurrentCVFor(thread)
}

// Output writes a formatted diagnostic line from the program under
// test, gated by ShowOutput so a quiet exploration run does not drown
// in scenario chatter.
func Output(format string, args ...any) {
	if !ShowOutput {
		return
	}
	logger.Trace().Msg(fmt.Sprintf(format, args...))
}

// RequireResult constrains the calling thread's next transition to be
// runnable only when executing it would return result -- the guard the
// exploration strategies consult via computeRunnable so a thread spins
// in place until its precondition holds instead of ever seeing a
// different outcome.
func RequireResult(result int64) {
	setPending(func(info *pendingTransitionInfo) {
		info.hasRequired = true
		info.required = result
	})
}

// Annotate attaches a free-form note to the calling thread's next
// transition, carried into the dumped trace alongside it.
func Annotate(annotation string) {
	setPending(func(info *pendingTransitionInfo) {
		info.annotations = append(info.annotations, annotation)
	})
}

func setPending(fn func(*pendingTransitionInfo)) {
	thread := ThreadId()
	info, _ := pendingInfo.Get(thread)
	fn(&info)
	pendingInfo.Set(thread, info)
}

// intercept is the Go counterpart of interface.cc's static
// Intercept(Transition): attach any pending RequireResult/Annotate
// state, hand the transition to the interceptor if a logical thread
// (not the original/host context) is making it, and then perform its
// memory effect.
func intercept(tr transition.Transition) int64 {
	thread := ThreadId()
	if thread != threadset.OriginalThread {
		if info, ok := pendingInfo.Get(thread); ok {
			if info.hasRequired {
				tr = tr.WithRequired(info.required)
			}
			if len(info.annotations) > 0 {
				tr = tr.WithAnnotations(info.annotations)
			}
			pendingInfo.Erase(thread)
		}
		current.ReachedTransition(tr)
	}
	return tr.Execute().Returned
}

// InterceptStore is the ABI entry point an instrumented memory store
// compiles down to.
func InterceptStore(address uintptr, value int64, length int, isAtomic bool, source string) {
	tr := transition.New(transition.Write, address, length).WithArg0(value)
	tr.IsAtomic, tr.Source = isAtomic, source
	intercept(tr)
}

// InterceptLoad is the ABI entry point an instrumented memory load
// compiles down to.
func InterceptLoad(address uintptr, length int, isAtomic bool, source string) int64 {
	tr := transition.New(transition.Read, address, length)
	tr.IsAtomic, tr.Source = isAtomic, source
	return intercept(tr)
}

// InterceptCmpXChg is the ABI entry point an instrumented
// compare-and-swap compiles down to. It returns the value observed in
// memory before the attempt, matching the underlying CAS primitive
// regardless of whether the swap took place (the caller compares it
// against expected to learn which happened).
func InterceptCmpXChg(address uintptr, expected, replacement int64, length int, source string) int64 {
	tr := transition.New(transition.CAS, address, length).WithArg0(expected).WithArg1(replacement)
	tr.IsAtomic, tr.Source = true, source
	return intercept(tr)
}

// InterceptAtomicRMW is the ABI entry point an instrumented
// read-modify-write (xchg/add/sub) compiles down to.
func InterceptAtomicRMW(address uintptr, op transition.RMWOp, value int64, length int, source string) int64 {
	tr := transition.New(transition.AtomicRMW, address, length).WithArg0(int64(op)).WithArg1(value)
	tr.IsAtomic, tr.Source = true, source
	return intercept(tr)
}

// InterceptMemset performs a raw, non-intercepted memset, matching
// interface.cc's InterceptMemset: bulk initialization is passed through
// untracked rather than turned into one transition per byte.
func InterceptMemset(dest uintptr, val byte, length int) {
	d := unsafe.Slice((*byte)(unsafe.Pointer(dest)), length)
	for i := range d {
		d[i] = val
	}
}

// InterceptMemcpy performs a raw, non-intercepted memcpy, matching
// interface.cc's InterceptMemcpy.
func InterceptMemcpy(dest, src uintptr, length int) {
	d := unsafe.Slice((*byte)(unsafe.Pointer(dest)), length)
	s := unsafe.Slice((*byte)(unsafe.Pointer(src)), length)
	copy(d, s)
}

// InterceptFence is a no-op ABI entry point, matching interface.cc's
// InterceptFence: the model checker's exploration already considers
// every ordering a fence could force, so there is nothing to record.
func InterceptFence() {}
