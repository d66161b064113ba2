package program

import (
	"unsafe"

	"github.com/kolkov/chesscheck/internal/chesscheck/threadset"
)

// maxThreadID sizes the per-thread arrays below: every logical thread
// id plus the reserved original-thread id, matching helper.h's
// kMaxThreadId (kMaxThreads + 1).
const maxThreadID = threadset.MaxThreads + 1

// Mutex is a spinlock built directly on the Intercept ABI, so every
// interleaving of contending Acquire calls is itself explorable.
// Ported from original_source/helper.h's Mutex.
//
// The original's Acquire calls RequireResult once with the stale value
// read before the retry loop, then spins on
// atomic<bool>::compare_exchange_weak(old, true), which updates old by
// reference on failure -- a C++ idiom with no Go CAS equivalent, since
// InterceptCmpXChg returns the value observed in memory rather than a
// success bool plus an out-param. This port instead re-asserts
// RequireResult(0) on every attempt, which asks the same question the
// original's first call does ("is the lock currently free") on every
// iteration rather than only the first, and is the direct Go rendering
// of "retry until the CAS you want would actually succeed."
type Mutex struct {
	held int64
}

// Reset marks m as free.
func (m *Mutex) Reset() {
	m.held = 0
}

// Acquire blocks until m is free, then takes it.
func (m *Mutex) Acquire() {
	for {
		RequireResult(0)
		if InterceptCmpXChg(addrOf(&m.held), 0, 1, 8, "") == 0 {
			return
		}
	}
}

// TryAcquire takes m if it is free, without blocking.
func (m *Mutex) TryAcquire() bool {
	return InterceptCmpXChg(addrOf(&m.held), 0, 1, 8, "") == 0
}

// Release marks m as free.
func (m *Mutex) Release() {
	InterceptStore(addrOf(&m.held), 0, 8, true, "")
}

// RecursiveMutex is Mutex plus same-thread re-entrancy, tracked by a
// per-thread hold count. Ported from original_source/helper.h's
// RecursiveMutex.
type RecursiveMutex struct {
	held  int64
	count [maxThreadID]int
}

// Reset marks m as free and clears every thread's hold count.
func (m *RecursiveMutex) Reset() {
	m.held = 0
	for i := range m.count {
		m.count[i] = 0
	}
}

// Acquire takes m, or re-enters it if the calling thread already holds
// it.
func (m *RecursiveMutex) Acquire() {
	tid := ThreadId()
	if m.count[tid] > 0 {
		m.count[tid]++
		return
	}
	for {
		RequireResult(0)
		if InterceptCmpXChg(addrOf(&m.held), 0, 1, 8, "") == 0 {
			break
		}
	}
	m.count[tid]++
}

// TryAcquire takes m (or re-enters it) without blocking.
func (m *RecursiveMutex) TryAcquire() bool {
	tid := ThreadId()
	if m.count[tid] > 0 {
		m.count[tid]++
		return true
	}
	if InterceptCmpXChg(addrOf(&m.held), 0, 1, 8, "") == 0 {
		m.count[tid]++
		return true
	}
	return false
}

// Release gives up one level of re-entrancy, freeing m once the
// calling thread's hold count reaches zero.
func (m *RecursiveMutex) Release() {
	tid := ThreadId()
	m.count[tid]--
	if m.count[tid] > 0 {
		return
	}
	InterceptStore(addrOf(&m.held), 0, 8, true, "")
}

// ThreadLocalStorage holds one T per logical thread (plus the original
// thread), the same role as helper.h's template<class T>
// ThreadLocalStorage.
type ThreadLocalStorage[T any] struct {
	data [maxThreadID]T
}

// Reset restores every thread's slot to the zero value of T.
func (t *ThreadLocalStorage[T]) Reset() {
	var zero [maxThreadID]T
	t.data = zero
}

// Get returns a pointer to the calling thread's slot.
func (t *ThreadLocalStorage[T]) Get() *T {
	return &t.data[ThreadId()]
}

func addrOf(p *int64) uintptr {
	return uintptr(unsafe.Pointer(p))
}
