package scenarios

import (
	"github.com/kolkov/chesscheck/internal/chesscheck/interceptor"
	"github.com/kolkov/chesscheck/program"
)

// dekkerMaxSpins bounds each busy-wait loop in Dekker below. The
// program_interface.h retained from original_source declares no
// TSOBarrier/TSOStartThread entry points (those exist only in
// original_source/tests/test-dekkers-tso.cc itself, whose own driver
// was not retained), so there is no documented primitive to ground a
// real store-buffering memory model on. Rather than invent one, each
// flag write below is split into a private buffered store plus an
// explicit flush, giving the checker the same two-step interleaving
// window TSOBarrier creates in the original -- and the retry loops are
// given a finite bound, since an unbounded busy-wait turns brute-force
// and DPOR's exhaustive search into one infinitely recursive branch the
// moment some interleaving never schedules the peer thread. Bounded
// retries is the same compromise CHESS itself makes with a preemption
// bound. A thread that exhausts its spins enters the critical section
// anyway, so the bound also makes the bug reachable by spin exhaustion,
// not only by both threads seeing the other's flag clear.
const dekkerMaxSpins = 8

type dekkerState struct {
	flag        [2]int64
	pendingFlag [2]int64
	turn        int64
	held        int64
}

// Dekker builds scenario 2: two threads contend for a critical section
// via Dekker's algorithm, but with each flag write split into a
// buffered store (visible only to the writer) and a flush (visible to
// the peer) -- see dekkerMaxSpins for why. If both threads ever
// observe the other's flag as still clear, they enter the critical
// section together and Found is called.
func Dekker() (func(ic *interceptor.Interceptor) func(), func()) {
	var s dekkerState

	setFlag := func(thread int, value int64) {
		program.InterceptStore(addr(&s.pendingFlag[thread]), value, 8, false, "")
	}
	flush := func(thread int) {
		v := program.InterceptLoad(addr(&s.pendingFlag[thread]), 8, false, "")
		program.InterceptStore(addr(&s.flag[thread]), v, 8, false, "")
	}
	readFlag := func(thread int) int64 {
		return program.InterceptLoad(addr(&s.flag[thread]), 8, false, "")
	}
	readTurn := func() int64 {
		return program.InterceptLoad(addr(&s.turn), 8, false, "")
	}

	threadBody := func(thread int) {
		other := 1 - thread

		setFlag(thread, 1)
		flush(thread)

		for spins := 0; readFlag(other) != 0 && spins < dekkerMaxSpins; spins++ {
			if readTurn() != int64(thread) {
				setFlag(thread, 0)
				flush(thread)

				for waits := 0; readTurn() != int64(thread) && waits < dekkerMaxSpins; waits++ {
				}

				setFlag(thread, 1)
				flush(thread)
			}
		}

		if program.InterceptLoad(addr(&s.held), 8, false, "") != 0 {
			program.Found()
		}
		program.InterceptStore(addr(&s.held), 1, 8, false, "")
		program.InterceptStore(addr(&s.held), 0, 8, false, "")

		program.InterceptStore(addr(&s.turn), int64(other), 8, false, "")
		setFlag(thread, 0)
		flush(thread)
	}

	buildSetupRun := func(ic *interceptor.Interceptor) func() {
		return func() {
			s = dekkerState{}
			for i := 0; i < 2; i++ {
				i := i
				program.StartThreadArg(threadBody, i)
			}
		}
	}

	return buildSetupRun, nil
}
