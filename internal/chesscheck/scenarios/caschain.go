package scenarios

import (
	"github.com/kolkov/chesscheck/internal/chesscheck/interceptor"
	"github.com/kolkov/chesscheck/program"
)

// CASChain builds scenario 3: 5 threads, each retrying a single
// compare-and-swap against a shared int64 until it observes the exact
// value its step expects, chaining 0->1->2->0->3->0. Grounded on
// original_source/tests/test-caschain.cc; RequireResult lets each
// thread describe "I am only runnable once x reads back a" so the
// checker does not waste trials on CAS attempts doomed to fail.
func CASChain() (func(ic *interceptor.Interceptor) func(), func()) {
	var x int64

	cas := func(expect, replace int64) {
		for {
			program.RequireResult(expect)
			if program.InterceptCmpXChg(addr(&x), expect, replace, 8, "") == expect {
				return
			}
		}
	}

	steps := [5][2]int64{
		{0, 1},
		{1, 2},
		{2, 0},
		{0, 3},
		{3, 0},
	}

	buildSetupRun := func(ic *interceptor.Interceptor) func() {
		return func() {
			x = 0
			for i := 0; i < 5; i++ {
				i := i
				program.StartThreadArg(func(thread int) {
					cas(steps[thread][0], steps[thread][1])
				}, i)
			}
		}
	}

	finishRun := func() {
		program.Output("%d", x)
	}

	return buildSetupRun, finishRun
}
