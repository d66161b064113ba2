package interceptor

import (
	"testing"
	"unsafe"

	"github.com/kolkov/chesscheck/internal/chesscheck/history"
	"github.com/kolkov/chesscheck/internal/chesscheck/transition"
)

func addrOf(p *int64) uintptr {
	return uintptr(unsafe.Pointer(p))
}

func TestSingleThreadRunsToCompletion(t *testing.T) {
	var storage int64
	addr := addrOf(&storage)

	var ranBody bool
	ic := New(nil, nil)
	h := history.New()

	ic.StartThread(func() {
		tr := transition.New(transition.Write, addr, 8).WithArg0(9)
		ic.ReachedTransition(tr)
		tr.Execute()
		ranBody = true
	})

	ic.StartNewRun(h)

	for !ic.Finished() {
		thread, ok := ic.Runnable().First()
		if !ok {
			t.Fatal("no runnable thread but run is not finished")
		}
		ic.AdvanceThread(thread)
	}

	if !ranBody {
		t.Errorf("expected the thread's body to run to completion")
	}
	if storage != 9 {
		t.Errorf("storage = %d, want 9", storage)
	}
}

func TestTwoThreadsInterleave(t *testing.T) {
	var storage int64
	addr := addrOf(&storage)

	ic := New(nil, nil)
	h := history.New()

	ic.StartThread(func() {
		tr := transition.New(transition.Write, addr, 8).WithArg0(1)
		ic.ReachedTransition(tr)
		tr.Execute()
	})
	ic.StartThread(func() {
		tr := transition.New(transition.Write, addr, 8).WithArg0(2)
		ic.ReachedTransition(tr)
		tr.Execute()
	})

	ic.StartNewRun(h)

	steps := 0
	for !ic.Finished() {
		thread, ok := ic.Runnable().First()
		if !ok {
			t.Fatal("no runnable thread but run is not finished")
		}
		ic.AdvanceThread(thread)
		steps++
		if steps > 10 {
			t.Fatal("too many steps, scheduler likely stuck")
		}
	}

	if h.Length() != 2 {
		t.Errorf("history length = %d, want 2", h.Length())
	}
}

func TestFoundBugRecordsViolation(t *testing.T) {
	ic := New(nil, nil)
	h := history.New()

	ic.StartThread(func() {
		ic.FoundBug()
		tr := transition.New(transition.Read, addrOf(new(int64)), 8)
		ic.ReachedTransition(tr)
	})

	ic.StartNewRun(h)
	for !ic.Finished() {
		thread, _ := ic.Runnable().First()
		ic.AdvanceThread(thread)
	}

	if ic.Violation() != ViolationFoundBug {
		t.Errorf("Violation() = %v, want ViolationFoundBug", ic.Violation())
	}
}
