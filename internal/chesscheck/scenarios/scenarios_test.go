package scenarios

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kolkov/chesscheck/internal/chesscheck/explore"
	"github.com/kolkov/chesscheck/internal/chesscheck/interceptor"
)

// wrapFinish returns a finishRun that delegates to finish and then
// reports (via the returned func) whether the just-finished run ended
// in ViolationFoundBug -- ctx is filled in after explore.NewContext
// returns, but the wrapper is never called until a run actually
// completes, well after that assignment happens.
func wrapFinish(finish func()) (wrapped func(), ctx **explore.Context, found *int) {
	var c *explore.Context
	n := 0
	wrapped = func() {
		if finish != nil {
			finish()
		}
		if c.Interceptor.Violation() == interceptor.ViolationFoundBug {
			n++
		}
	}
	return wrapped, &c, &n
}

func TestCASChainDPORRunsToCompletion(t *testing.T) {
	buildSetupRun, finishRun := CASChain()
	ctx := explore.NewContext(buildSetupRun, finishRun)

	explore.NewDPOR(ctx).Run()
}

func TestSimple1BruteForceRunsToCompletion(t *testing.T) {
	buildSetupRun, finishRun := Simple1()
	ctx := explore.NewContext(buildSetupRun, finishRun)

	explore.NewBruteForce(ctx).Run()
}

func TestIndexerPCTRunsWithoutPanicking(t *testing.T) {
	buildSetupRun, finishRun := Indexer()
	ctx := explore.NewContext(buildSetupRun, finishRun)

	explore.NewPCT(ctx, 3, 7).Run()
}

func TestProducerConsumerDPORFindsALinearizabilityViolation(t *testing.T) {
	buildSetupRun, finish := ProducerConsumer()
	wrapped, ctxSlot, found := wrapFinish(finish)
	ctx := explore.NewContext(buildSetupRun, wrapped)
	*ctxSlot = ctx

	explore.NewDPOR(ctx).Run()

	assert.Greaterf(t, *found, 0, "expected the capacity-2 queue to produce at least one non-linearizable trial")
}

func TestLinearizabilityDefaultDPORRunsWithoutPanicking(t *testing.T) {
	buildSetupRun, finish := LinearizabilityDefault()
	ctx := explore.NewContext(buildSetupRun, finish)

	explore.NewDPOR(ctx).Run()
}

func TestDekkerPCTRunsWithoutPanicking(t *testing.T) {
	buildSetupRun, finishRun := Dekker()
	ctx := explore.NewContext(buildSetupRun, finishRun)

	explore.NewPCT(ctx, 2, 3).Run()
}
