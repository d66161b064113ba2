package explore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolkov/chesscheck/internal/chesscheck/interceptor"
)

// TestParallelRunnerRunsEachTrialAndCollectsResults builds several
// independent two-writer trials and confirms every one completes and
// reports cleanly, with at most 2 trials admitted past the runner's
// semaphore at once.
func TestParallelRunnerRunsEachTrialAndCollectsResults(t *testing.T) {
	const n = 5
	trials := make([]func() *Context, n)
	vars := make([][2]int64, n)
	for i := 0; i < n; i++ {
		i := i
		trials[i] = func() *Context {
			ctx := twoWriterContext(&vars[i][0], &vars[i][1])
			NewBruteForce(ctx).Run()
			return ctx
		}
	}

	results := NewParallelRunner(2).Run(context.Background(), trials)

	require.Len(t, results, n)
	for i, r := range results {
		assert.Equalf(t, i, r.Index, "result %d", i)
		assert.Equalf(t, interceptor.NoViolation, r.Violation, "trial %d", i)
		assert.Equalf(t, [2]int64{1, 2}, vars[i], "trial %d", i)
	}
}
