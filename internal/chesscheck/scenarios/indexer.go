package scenarios

import (
	"strconv"
	"strings"

	"github.com/kolkov/chesscheck/internal/chesscheck/interceptor"
	"github.com/kolkov/chesscheck/program"
)

// indexerThreads, indexerSize, and indexerMax match
// original_source/tests/test-indexer.cc exactly.
const (
	indexerThreads = 16
	indexerSize    = 128
	indexerMax     = 4
)

// Indexer builds scenario 5: indexerThreads threads each insert
// indexerMax messages into an indexerSize-slot open-addressing hash
// table via a CAS-based linear probe, with no bound on how far a probe
// may walk. Grounded on original_source/tests/test-indexer.cc; the
// table has ample spare capacity (128 slots for at most 64 inserts) so
// every probe terminates, but the probe sequence two threads follow
// for colliding hashes is exactly what's worth exploring.
func Indexer() (func(ic *interceptor.Interceptor) func(), func()) {
	var table [indexerSize]int64

	threadBody := func(tid int) {
		for m := 1; m <= indexerMax; m++ {
			w := int64(m*11 + tid)
			h := int((w * 7) % indexerSize)
			for {
				if program.InterceptCmpXChg(addr(&table[h]), 0, w, 8, "") == 0 {
					break
				}
				h = (h + 1) % indexerSize
			}
		}
	}

	buildSetupRun := func(ic *interceptor.Interceptor) func() {
		return func() {
			for i := range table {
				table[i] = 0
			}
			for i := 0; i < indexerThreads; i++ {
				i := i
				program.StartThreadArg(threadBody, i)
			}
		}
	}

	finishRun := func() {
		var b strings.Builder
		b.WriteString("table=")
		for i := range table {
			b.WriteString(" ")
			b.WriteString(strconv.FormatInt(table[i], 10))
		}
		program.Output("%s", b.String())
	}

	return buildSetupRun, finishRun
}
