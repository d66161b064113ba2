package scenarios

import (
	"github.com/kolkov/chesscheck/internal/chesscheck/interceptor"
	"github.com/kolkov/chesscheck/program"
)

// Simple1 builds scenario 4: two threads over two shared int64s, x and
// y, both initialized to 0. Thread 0 sets y=1 then x=1; thread 1 reads
// x and, only if it is still 0, sets y=2. Grounded on
// original_source/tests/test-simple1.cc -- a minimal store-order
// example where whether thread 1's write lands after thread 0's
// depends entirely on the interleaving the checker picks.
func Simple1() (func(ic *interceptor.Interceptor) func(), func()) {
	var x, y int64

	threadBody := func(i int) {
		switch i {
		case 0:
			program.InterceptStore(addr(&y), 1, 8, false, "")
			program.InterceptStore(addr(&x), 1, 8, false, "")
		case 1:
			if program.InterceptLoad(addr(&x), 8, false, "") == 0 {
				program.InterceptStore(addr(&y), 2, 8, false, "")
			}
		}
	}

	buildSetupRun := func(ic *interceptor.Interceptor) func() {
		return func() {
			x, y = 0, 0
			for i := 0; i < 2; i++ {
				i := i
				program.StartThreadArg(threadBody, i)
			}
		}
	}

	finishRun := func() {
		program.Output("%d %d", x, y)
	}

	return buildSetupRun, finishRun
}
