// Package epoch implements a packed (thread, step) logical timestamp
// and its O(1) happens-before check against a clock vector.
//
// Adapted from the teacher's internal/race/epoch package. The teacher
// packs a FastTrack epoch to make "did this write happen-before that
// read" a single comparison on the hot path of a live race detector.
// The same encoding is exactly the primitive spec.md §3 describes for
// history queries: a history step t, tagged with the thread that
// produced it, is checked against a clock vector via
// "cv_at[b][thread_at(a)] >= a" -- precisely
// Epoch(thread_at(a), a).HappensBefore(cv_at[b]).
//
// Two constants differ from the teacher's encoding because the domain
// differs: TIDBits is 6 (64 threads, per threadset.MaxThreads) rather
// than 8, and ClockBits is widened to 58 because a step index is a
// trace position that can run into the millions over a long
// exploration, where the teacher's 24-bit clock (sized for a single
// live process's per-goroutine access count) would wrap.
package epoch

import "github.com/kolkov/chesscheck/internal/chesscheck/clockvector"

// Epoch is a 64-bit logical timestamp encoding both a thread id and a
// step index. Layout: [TID:6][Step:58].
type Epoch uint64

const (
	// TIDBits is the number of bits allocated to the thread id.
	TIDBits = 6
	// ClockBits is the number of bits allocated to the step index.
	ClockBits = 64 - TIDBits
	// ClockMask extracts the step-index bits.
	ClockMask = (1 << ClockBits) - 1
)

// New packs thread and step into an Epoch.
//
//go:nosplit
func New(thread int, step int) Epoch {
	return Epoch(uint64(thread)<<ClockBits | (uint64(step) & ClockMask))
}

// Decode extracts the thread id and step index.
//
//go:nosplit
func (e Epoch) Decode() (thread int, step int) {
	thread = int(e >> ClockBits)
	step = int(e & ClockMask)
	return
}

// HappensBefore reports whether this epoch's step happened at or
// before cv's recorded observation of this epoch's thread: the history
// layer's time_happens_before_time and time_happens_before_thread
// checks (spec.md §3) are both instances of this one comparison.
//
//go:nosplit
func (e Epoch) HappensBefore(cv *clockvector.ClockVector) bool {
	thread, step := e.Decode()
	seen := cv.Get(thread)
	return seen != clockvector.Unset && int(seen) >= step
}

// Same reports whether two epochs are identical.
func (e Epoch) Same(other Epoch) bool {
	return e == other
}

// String renders "step@thread" for debugging.
func (e Epoch) String() string {
	thread, step := e.Decode()
	return itoa(step) + "@" + itoa(thread)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [24]byte
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
