package linearizability

import (
	"testing"

	"github.com/kolkov/chesscheck/internal/chesscheck/history"
	"github.com/kolkov/chesscheck/internal/chesscheck/interceptor"
	internalprogram "github.com/kolkov/chesscheck/internal/chesscheck/program"
	"github.com/kolkov/chesscheck/program"
)

func runOnce(ic *interceptor.Interceptor, setup func()) {
	internalprogram.Bind(ic)
	ic.SetSetupRun(setup)
	ic.StartNewRun(history.New())
	for !ic.Finished() {
		thread, ok := ic.Runnable().First()
		if !ok {
			break
		}
		ic.AdvanceThread(thread)
	}
}

// TestSingleThreadSequentialHistoryAlwaysLinearizes registers one
// thread incrementing a counter twice against an implementation and a
// model that agree, so the trivial (only possible) linearization
// always verifies.
func TestSingleThreadSequentialHistoryAlwaysLinearizes(t *testing.T) {
	ic := interceptor.New(nil, nil)

	runOnce(ic, func() {
		l := New(1)

		var implCounter, modelCounter int
		useModel := false

		l.RegisterModel(
			func() { useModel, modelCounter = true, 0 },
			func() { useModel = false },
		)
		l.RegisterImplementation(func() { implCounter = 0 }, func() {})

		increment := func() int {
			if useModel {
				modelCounter++
				return modelCounter
			}
			implCounter++
			return implCounter
		}
		l.AddStep(0, increment, "increment")
		l.AddStep(0, increment, "increment")

		program.StartThread(func() {
			l.Setup()
			l.ThreadBody(0)
			l.Finish()
		})
	})

	if ic.Violation() != interceptor.NoViolation {
		t.Errorf("violation=%v, want NoViolation", ic.Violation())
	}
}

// TestDetectsNonLinearizableHistory registers a step whose
// implementation result can never match its model result, so no
// linearization -- there being only one -- can ever verify.
func TestDetectsNonLinearizableHistory(t *testing.T) {
	ic := interceptor.New(nil, nil)

	runOnce(ic, func() {
		l := New(1)
		useModel := false

		l.RegisterModel(func() { useModel = true }, func() { useModel = false })
		l.RegisterImplementation(func() {}, func() {})

		l.AddStep(0, func() int {
			if useModel {
				return 0
			}
			return 1
		}, "mismatch")

		program.StartThread(func() {
			l.Setup()
			l.ThreadBody(0)
			l.Finish()
		})
	})

	if ic.Violation() != interceptor.ViolationFoundBug {
		t.Errorf("violation=%v, want ViolationFoundBug", ic.Violation())
	}
}
