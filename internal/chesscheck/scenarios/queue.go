// Package scenarios implements spec.md §8's concrete checked programs:
// small, self-contained pieces of code built entirely on the program
// package's Intercept* ABI, each returning the (buildSetupRun, finishRun)
// pair explore.NewContext expects. They exist to exercise the rest of
// this module the way original_source/tests/test-*.cc exercise the
// original tool, not to demonstrate any particular data structure.
package scenarios

import (
	"unsafe"

	"github.com/kolkov/chesscheck/program"
)

func addr(p *int64) uintptr { return uintptr(unsafe.Pointer(p)) }

// Queue is a deliberately naive bounded ring-buffer FIFO: a slot is
// claimed by a CAS on tail (or head) before its value and fill flag
// are published, with no per-slot generation tag to detect reuse. Give
// it a capacity small relative to the number of operations a scenario
// drives through it and a producer that is slow to publish after
// claiming a slot can be overtaken by consumers cycling the ring back
// around to the same index -- the same class of bug
// original_source/cases/boost_fifo_bug2_5x1.cc's comment walks through
// for boost::lockfree::fifo, reproduced here from scratch since
// vendored lock-free containers are out of scope.
type Queue struct {
	capacity int
	tail     int64
	head     int64
	slots    []int64
	filled   []int64
}

// NewQueue returns an empty Queue of the given capacity.
func NewQueue(capacity int) *Queue {
	return &Queue{
		capacity: capacity,
		slots:    make([]int64, capacity),
		filled:   make([]int64, capacity),
	}
}

// Reset clears the queue back to empty, ready for a new trial.
func (q *Queue) Reset() {
	q.tail, q.head = 0, 0
	for i := range q.slots {
		q.slots[i] = 0
		q.filled[i] = 0
	}
}

// Enqueue claims the next slot by CASing tail forward, then publishes
// value into it. Returns 0, matching the Linearizability convention
// that every step reports an int result.
func (q *Queue) Enqueue(value int64) int64 {
	var t int64
	for {
		t = program.InterceptLoad(addr(&q.tail), 8, false, "")
		if program.InterceptCmpXChg(addr(&q.tail), t, t+1, 8, "") == t {
			break
		}
	}
	idx := int(t) % q.capacity
	program.InterceptStore(addr(&q.slots[idx]), value, 8, false, "")
	program.InterceptStore(addr(&q.filled[idx]), 1, 8, false, "")
	return 0
}

// Dequeue returns the value at the head slot, or -1 if the slot
// currently appears empty -- which, given the ring's small capacity
// relative to a scenario's workload, can itself be the spurious
// symptom of a producer that claimed the slot but has not published
// yet, rather than a genuinely empty queue.
func (q *Queue) Dequeue() int64 {
	h := program.InterceptLoad(addr(&q.head), 8, false, "")
	idx := int(h) % q.capacity
	if program.InterceptLoad(addr(&q.filled[idx]), 8, false, "") == 0 {
		return -1
	}
	if program.InterceptCmpXChg(addr(&q.head), h, h+1, 8, "") != h {
		return -1
	}
	value := program.InterceptLoad(addr(&q.slots[idx]), 8, false, "")
	program.InterceptStore(addr(&q.filled[idx]), 0, 8, false, "")
	return value
}
