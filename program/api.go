// Package program provides the public API a checked program (or a
// hand-written scenario standing in for one) calls into.
//
// See doc.go for an overview and examples.
package program

import (
	"github.com/kolkov/chesscheck/internal/chesscheck/clockvector"
	internal "github.com/kolkov/chesscheck/internal/chesscheck/program"
	"github.com/kolkov/chesscheck/internal/chesscheck/transition"
)

// StartThread registers task as a new logical thread of the program
// under test and returns its id. The thread is merely registered here;
// it does not run a single instruction until the active exploration
// strategy first schedules it.
//
//	program.StartThread(func() {
//		program.InterceptStore(uintptr(unsafe.Pointer(&counter)), 1, 8, false, "")
//	})
func StartThread(task func()) int {
	return internal.StartThread(task)
}

// StartThreadArg registers task, called with arg, as a new logical
// thread. Equivalent to StartThread(func() { task(arg) }); kept as its
// own entry point for scenarios that start several structurally
// identical threads distinguished only by an integer argument.
func StartThreadArg(task func(int), arg int) int {
	return internal.StartThreadArg(task, arg)
}

// ThreadId returns the id of the logical thread currently executing.
func ThreadId() int {
	return internal.ThreadId()
}

// RequestYield hints that this would be a particularly interesting
// point to consider a context switch. No exploration strategy in this
// module currently acts on the hint; it exists for source compatibility
// with scenarios ported from the original tool.
func RequestYield(thread int) {
	internal.RequestYield(thread)
}

// RequireResult constrains the calling thread's next intercepted
// operation to be runnable only when executing it would return result.
// Use it to express a spin-wait ("retry until the lock is free")
// without the checker wasting exploration effort on the
// would-fail-anyway branch of the retry.
func RequireResult(result int64) {
	internal.RequireResult(result)
}

// Annotate attaches a free-form note to the calling thread's next
// intercepted operation, carried into the violation trace dump
// alongside it.
func Annotate(annotation string) {
	internal.Annotate(annotation)
}

// Found reports that the program under test has reached a state the
// property being checked forbids. The active exploration strategy
// records this as a found violation and, on request, replays the exact
// interleaving that produced it.
func Found() {
	internal.Found()
}

// GetClockVector returns the clock vector the current run's history has
// accumulated for thread so far -- everything that thread's next
// operation is guaranteed to have observed.
func GetClockVector(thread int) *clockvector.ClockVector {
	return internal.GetClockVector(thread)
}

// ShowOutput controls whether Output actually writes anything. Off by
// default so an exploration run covering many thousands of trials does
// not drown in scenario chatter; a scenario under manual debugging can
// set it to true.
func ShowOutput(show bool) {
	internal.ShowOutput = show
}

// Output writes a formatted diagnostic line from the program under
// test, subject to ShowOutput.
//
//	program.Output("thread %d saw balance=%d", program.ThreadId(), balance)
func Output(format string, args ...any) {
	internal.Output(format, args...)
}

// InterceptStore is the ABI entry point an instrumented memory store
// compiles down to: a checked program's `*p = v` becomes
// `program.InterceptStore(uintptr(unsafe.Pointer(p)), int64(v), 8, false, "file.go:42")`.
func InterceptStore(address uintptr, value int64, length int, isAtomic bool, source string) {
	internal.InterceptStore(address, value, length, isAtomic, source)
}

// InterceptLoad is the ABI entry point an instrumented memory load
// compiles down to.
func InterceptLoad(address uintptr, length int, isAtomic bool, source string) int64 {
	return internal.InterceptLoad(address, length, isAtomic, source)
}

// InterceptCmpXChg is the ABI entry point an instrumented
// compare-and-swap compiles down to. It returns the value observed in
// memory immediately before the attempt; the swap took effect if and
// only if that value equals expected.
func InterceptCmpXChg(address uintptr, expected, replacement int64, length int, source string) int64 {
	return internal.InterceptCmpXChg(address, expected, replacement, length, source)
}

// RMWOp identifies the sub-operation of an InterceptAtomicRMW call.
type RMWOp = transition.RMWOp

const (
	Xchg = transition.Xchg
	Add  = transition.Add
	Sub  = transition.Sub
)

// InterceptAtomicRMW is the ABI entry point an instrumented
// read-modify-write (xchg/add/sub) compiles down to.
func InterceptAtomicRMW(address uintptr, op RMWOp, value int64, length int, source string) int64 {
	return internal.InterceptAtomicRMW(address, op, value, length, source)
}

// InterceptMemset performs a raw, non-intercepted memset: bulk
// initialization is passed through untracked rather than turned into
// one transition per byte.
func InterceptMemset(dest uintptr, val byte, length int) {
	internal.InterceptMemset(dest, val, length)
}

// InterceptMemcpy performs a raw, non-intercepted memcpy.
func InterceptMemcpy(dest, src uintptr, length int) {
	internal.InterceptMemcpy(dest, src, length)
}

// InterceptFence is a no-op ABI entry point: the model checker's
// exploration already considers every ordering a fence could force, so
// there is nothing to record.
func InterceptFence() {
	internal.InterceptFence()
}

// Mutex is a spinlock whose Acquire path is itself made of intercepted
// operations, so every interleaving of contending Acquire calls is
// explored rather than hidden behind a real OS lock.
type Mutex = internal.Mutex

// RecursiveMutex is Mutex plus same-thread re-entrancy.
type RecursiveMutex = internal.RecursiveMutex

// ThreadLocalStorage holds one T per logical thread of the program
// under test.
type ThreadLocalStorage[T any] = internal.ThreadLocalStorage[T]
