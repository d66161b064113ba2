// Package clockvector implements the clock vectors used by the history
// layers to track the happens-before partial order between exploration
// steps.
//
// This is adapted from the teacher's internal/race/vectorclock package:
// the fixed-array representation, the sparse maxTID-bounded Join, and
// the allocation-free String/itoa helper all carry over unchanged in
// spirit. Two things differ because the domain differs:
//
//   - MaxThreads is 64, not 65536 (spec.md's MAX_THREADS <= 64 so that
//     thread sets fit a single machine word), so ClockVector fits in one
//     cache line instead of 256KB.
//   - Entries default to -1, not 0: a history step index of 0 is a real,
//     valid time, so "thread never observed" needs its own sentinel the
//     way original_source/clockvector.h's times_[] does (ctor argument
//     defaults to -1). A fresh VectorClock.Join from the teacher instead
//     uses 0 as "never", which would collide with step 0.
package clockvector

import "strings"

// MaxThreads is the widest clock vector this package supports, matching
// threadset.MaxThreads.
const MaxThreads = 64

// Unset is the sentinel clock value meaning "this thread has not been
// observed".
const Unset int32 = -1

// ClockVector is a fixed-width vector of step indices, one per logical
// thread, used as the value of "the latest state change thread T is
// known to have observed".
type ClockVector struct {
	clocks  [MaxThreads]int32
	maxTID  int
	maxSet  bool
}

// New returns a ClockVector with every entry Unset.
func New() *ClockVector {
	cv := &ClockVector{}
	cv.reset()
	return cv
}

// NewWithDefault returns a ClockVector with every entry initialized to
// value, matching original_source/clockvector.h's
// ClockVector(int value = -1) constructor for callers that need a
// sentinel other than Unset (the Pinner strategy's helper_c starts
// every thread at 999, an out-of-range placeholder no real step index
// can reach, rather than "never observed").
func NewWithDefault(value int32) *ClockVector {
	cv := &ClockVector{}
	for i := range cv.clocks {
		cv.clocks[i] = value
	}
	cv.maxTID = MaxThreads - 1
	cv.maxSet = true
	return cv
}

func (cv *ClockVector) reset() {
	for i := range cv.clocks {
		cv.clocks[i] = Unset
	}
	cv.maxTID = 0
	cv.maxSet = false
}

// Reset restores cv to the all-Unset state in place.
func (cv *ClockVector) Reset() {
	cv.reset()
}

// Clone returns a deep copy.
func (cv *ClockVector) Clone() *ClockVector {
	out := &ClockVector{clocks: cv.clocks, maxTID: cv.maxTID, maxSet: cv.maxSet}
	return out
}

// Get returns the clock recorded for thread, or Unset.
//
//go:nosplit
func (cv *ClockVector) Get(thread int) int32 {
	return cv.clocks[thread]
}

// Set records value as the clock for thread.
func (cv *ClockVector) Set(thread int, value int32) {
	cv.clocks[thread] = value
	cv.touch(thread)
}

func (cv *ClockVector) touch(thread int) {
	if !cv.maxSet || thread > cv.maxTID {
		cv.maxTID = thread
		cv.maxSet = true
	}
}

// Join performs a point-wise maximum: cv[i] = max(cv[i], other[i]).
// This is the synchronization step recorded by the HB layer whenever a
// thread's clock absorbs an object's access/write clock (spec.md §3).
//
//go:nosplit
func (cv *ClockVector) Join(other *ClockVector) {
	cv.Maximize(other)
}

// Maximize is an alias for Join, named after original_source/clockvector.h's
// ClockVector::Maximize, used directly by the Pinner strategy
// (internal/chesscheck/explore/pinner.go), which is grounded on that file.
func (cv *ClockVector) Maximize(other *ClockVector) {
	limit := cv.maxTID
	if other.maxTID > limit {
		limit = other.maxTID
	}
	for i := 0; i <= limit; i++ {
		if other.clocks[i] > cv.clocks[i] {
			cv.clocks[i] = other.clocks[i]
		}
	}
	if other.maxSet {
		cv.touch(other.maxTID)
	}
}

// Minimize performs a point-wise minimum, mirroring
// original_source/clockvector.h's Minimize. Unused by the ported
// strategies today but kept as part of the faithfully-ported
// ClockVector API for callers that need meet as well as join.
func (cv *ClockVector) Minimize(other *ClockVector) {
	for i := 0; i < MaxThreads; i++ {
		if other.clocks[i] < cv.clocks[i] {
			cv.clocks[i] = other.clocks[i]
		}
	}
}

// LessOrEqual reports whether cv[i] <= other[i] for every thread i,
// i.e. whether cv happens-before-or-equal other.
//
//go:nosplit
func (cv *ClockVector) LessOrEqual(other *ClockVector) bool {
	for i := 0; i <= cv.maxTID; i++ {
		if cv.clocks[i] > other.clocks[i] {
			return false
		}
	}
	return true
}

// HappensBefore is an alias for LessOrEqual, matching the teacher's
// naming for the same check.
func (cv *ClockVector) HappensBefore(other *ClockVector) bool {
	return cv.LessOrEqual(other)
}

// HappensAfterAny reports whether cv[i] >= other[i] for some thread i
// that other has a set clock for (slots Unset in other are skipped),
// ported from original_source/clockvector.h's happens_after_any, used
// by the Pinner strategy to decide whether a prior step must be
// replayed ahead of a pin.
func (cv *ClockVector) HappensAfterAny(other *ClockVector) bool {
	for i := 0; i < MaxThreads; i++ {
		if other.clocks[i] == Unset {
			continue
		}
		if cv.clocks[i] >= other.clocks[i] {
			return true
		}
	}
	return false
}

// HasAnyBesides reports whether any thread other than thread has a set
// clock, ported from original_source/clockvector.h's has_any_besides.
func (cv *ClockVector) HasAnyBesides(thread int) bool {
	for i := 0; i < MaxThreads; i++ {
		if i != thread && cv.clocks[i] != Unset {
			return true
		}
	}
	return false
}

// String renders the non-Unset entries for debugging.
func (cv *ClockVector) String() string {
	var parts []string
	for i := 0; i <= cv.maxTID; i++ {
		if cv.clocks[i] != Unset {
			parts = append(parts, itoa(i)+":"+itoa32(cv.clocks[i]))
		}
	}
	if len(parts) == 0 {
		return "{}"
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func itoa(n int) string {
	return itoa32(int32(n))
}

func itoa32(n int32) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [16]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
