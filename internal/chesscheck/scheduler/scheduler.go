// Package scheduler implements the cooperative, single-token thread
// multiplexer that lets an exploration trial run one user goroutine at
// a time in a chosen order.
//
// Ported in meaning, not in mechanism, from original_source/scheduler.h
// and scheduler.cc. The C++ original multiplexes boost::context
// fcontext_t stackful coroutines onto one OS thread with
// jump_fcontext, which transfers control synchronously and never
// returns to a dying coroutine's stack. Go has no public coroutine-
// switch primitive, so spec.md §9's Design Notes call for goroutines
// plus unbuffered rendezvous channels and an explicit scheduler-held
// token instead: every user thread is a real goroutine, but the token
// -- one per registered thread id, including OriginalThread for the
// driver -- is handed from holder to holder with SwitchTo, and exactly
// one goroutine ever proceeds past its own channel receive at a time.
// That reproduces the original's "exactly one thread runs until it
// yields" invariant without needing an OS-thread pin: the token, not
// goroutine scheduling, is what serializes execution.
package scheduler

import "github.com/kolkov/chesscheck/internal/chesscheck/threadset"

// OriginalThread is the pseudo-thread id representing the goroutine
// that owns the Scheduler itself (the trial driver), matching
// original_source/scheduler.h's kOriginalThread = kMaxThreads.
const OriginalThread = threadset.OriginalThread

// Scheduler multiplexes a set of goroutines, plus the driver goroutine
// under OriginalThread, so exactly one of them holds the token and
// runs at a time.
type Scheduler struct {
	tokens  map[int]chan struct{}
	current int
}

// New returns a Scheduler whose driver goroutine (OriginalThread)
// holds the token, matching the C++ constructor's
// current_thread_(kOriginalThread).
func New() *Scheduler {
	s := &Scheduler{
		tokens:  make(map[int]chan struct{}),
		current: OriginalThread,
	}
	s.tokens[OriginalThread] = make(chan struct{})
	return s
}

// CurrentThread returns the id of the thread currently holding the
// token.
func (s *Scheduler) CurrentThread() int {
	return s.current
}

// AddThread registers a new goroutine running task under id thread.
// The goroutine is launched immediately but blocks on its own token
// channel until SwitchTo(thread) first hands it the token -- the Go
// analogue of the original preparing an fcontext_t without yet jumping
// to it.
func (s *Scheduler) AddThread(thread int, task func()) {
	s.tokens[thread] = make(chan struct{})

	go func() {
		<-s.tokens[thread]
		task()
	}()
}

// SwitchTo transfers the token from whichever goroutine currently
// holds it to newThread, and blocks the caller until the token is
// handed back to it. A no-op if newThread already holds the token,
// mirroring the original's SwitchTo short-circuit. Called both by the
// driver (to dispatch into a thread) and by a running thread itself
// (to yield back to the driver, or to another thread), exactly as
// jump_fcontext is callable from either side of the switch.
func (s *Scheduler) SwitchTo(newThread int) {
	if newThread == s.current {
		return
	}
	old := s.current
	s.current = newThread
	s.tokens[newThread] <- struct{}{}
	<-s.tokens[old]
}

// Exit hands the token to newThread without waiting for it to be
// returned, and removes thread's token channel. Must be called as the
// very last action of a thread's task, once it has finished running
// and will never call SwitchTo again -- the Go analogue of the
// original's ThreadEntryPoint, whose final jump_fcontext never returns
// into the dying coroutine's stack.
func (s *Scheduler) Exit(thread int, newThread int) {
	s.current = newThread
	s.tokens[newThread] <- struct{}{}
	delete(s.tokens, thread)
}
