package explore

import (
	"testing"
	"unsafe"

	"github.com/kolkov/chesscheck/internal/chesscheck/interceptor"
	"github.com/kolkov/chesscheck/internal/chesscheck/transition"
)

// twoWriterContext builds a Context whose scenario starts two threads,
// each performing a single independent write to its own address --
// deliberately conflict-free: brute force explores both possible
// interleavings (thread 0 first, or thread 1 first), while DPOR needs
// only one.
func twoWriterContext(a, b *int64) *Context {
	return NewContext(func(ic *interceptor.Interceptor) func() {
		return func() {
			ic.StartThread(func() {
				tr := transition.New(transition.Write, uintptr(unsafe.Pointer(a)), 8).WithArg0(1)
				ic.ReachedTransition(tr)
				tr.Execute()
			})
			ic.StartThread(func() {
				tr := transition.New(transition.Write, uintptr(unsafe.Pointer(b)), 8).WithArg0(2)
				ic.ReachedTransition(tr)
				tr.Execute()
			})
		}
	}, nil)
}

func TestBruteForceLeavesBothWritesApplied(t *testing.T) {
	var a, b int64
	ctx := twoWriterContext(&a, &b)

	dporLeavesBefore := dporLeaves.Value()
	_ = dporLeavesBefore

	NewBruteForce(ctx).Run()

	if a != 1 || b != 2 {
		t.Errorf("a=%d b=%d, want 1 and 2 after the final replay", a, b)
	}
}

func TestDPORRunsWithoutPanicking(t *testing.T) {
	var a, b int64
	ctx := twoWriterContext(&a, &b)

	before := dporLeaves.Value()
	NewDPOR(ctx).Run()
	after := dporLeaves.Value()

	if after <= before {
		t.Errorf("expected dpor-leaves to increase, before=%d after=%d", before, after)
	}
}

func TestCBDPORSingleRoundRunsWithoutPanicking(t *testing.T) {
	var a, b int64
	ctx := twoWriterContext(&a, &b)

	NewCBDPOR(ctx).RunOnce(0)
}

func TestPBPORSingleRoundRunsWithoutPanicking(t *testing.T) {
	var a, b int64
	ctx := twoWriterContext(&a, &b)

	NewPBPOR(ctx).RunOnce(0)
}

func TestCHESSSingleRoundRunsWithoutPanicking(t *testing.T) {
	var a, b int64
	ctx := twoWriterContext(&a, &b)

	NewCHESS(ctx).RunOnce(0)
}

func TestPCTRunsWithoutPanicking(t *testing.T) {
	var a, b int64
	ctx := twoWriterContext(&a, &b)

	NewPCT(ctx, 2, 1).Run()
}

func TestPinnerSingleRoundRunsWithoutPanicking(t *testing.T) {
	var a, b int64
	ctx := twoWriterContext(&a, &b)

	NewPinner(ctx).RunOnce(0)
}
