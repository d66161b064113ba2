package history

import (
	"testing"

	"github.com/kolkov/chesscheck/internal/chesscheck/transition"
)

func TestAddTransitionRecordsStepFields(t *testing.T) {
	h := New()
	tr := transition.New(transition.Write, 0x1000, 8).WithArg0(1)
	h.AddTransition(0, tr, 0)

	if h.Length() != 1 {
		t.Fatalf("Length() = %d, want 1", h.Length())
	}
	if h.ThreadAt(0) != 0 {
		t.Errorf("ThreadAt(0) = %d, want 0", h.ThreadAt(0))
	}
	if h.PreviousValueAt(0) != 0 {
		t.Errorf("PreviousValueAt(0) = %d, want 0", h.PreviousValueAt(0))
	}
	if h.PreviousTimeOfThreadAt(0) != -1 {
		t.Errorf("PreviousTimeOfThreadAt(0) = %d, want -1", h.PreviousTimeOfThreadAt(0))
	}
}

func TestAddTransitionOwnThreadClockAdvances(t *testing.T) {
	h := New()
	addr := uintptr(0x2000)
	h.AddTransition(0, transition.New(transition.Write, addr, 8).WithArg0(1), 0)
	h.AddTransition(0, transition.New(transition.Write, addr, 8).WithArg0(2), 1)

	if h.PreviousTimeOfThreadAt(1) != 0 {
		t.Errorf("PreviousTimeOfThreadAt(1) = %d, want 0", h.PreviousTimeOfThreadAt(1))
	}
	if h.CVAt(1).Get(0) != 1 {
		t.Errorf("CVAt(1)[0] = %d, want 1", h.CVAt(1).Get(0))
	}
}

func TestWriteThenReadEstablishesHappensBefore(t *testing.T) {
	h := New()
	addr := uintptr(0x3000)

	h.AddTransition(0, transition.New(transition.Write, addr, 8).WithArg0(1), 0)
	h.AddTransition(1, transition.New(transition.Read, addr, 8), 1)

	if !h.TimeHappensBeforeTime(0, 1) {
		t.Errorf("expected the write at step 0 to happen-before the read at step 1")
	}
}

func TestFindFirstConflictsFindsPriorWrite(t *testing.T) {
	h := New()
	addr := uintptr(0x4000)

	h.AddTransition(0, transition.New(transition.Write, addr, 8).WithArg0(1), 0)
	h.AddTransition(1, transition.New(transition.Write, addr, 8).WithArg0(2), 1)

	conflicts := h.FirstConflictsAt(1)
	if len(conflicts) != 1 || conflicts[0] != 0 {
		t.Errorf("FirstConflictsAt(1) = %v, want [0]", conflicts)
	}
}

func TestFindFirstConflictsEmptyWhenOrderedByTheSameThread(t *testing.T) {
	h := New()
	addr := uintptr(0x5000)

	h.AddTransition(0, transition.New(transition.Write, addr, 8).WithArg0(1), 0)
	h.AddTransition(0, transition.New(transition.Write, addr, 8).WithArg0(2), 1)

	conflicts := h.FirstConflictsAt(1)
	if len(conflicts) != 0 {
		t.Errorf("FirstConflictsAt(1) = %v, want none (same thread is already ordered)", conflicts)
	}
}

func TestCombineCurrentHashesChangesAfterTransition(t *testing.T) {
	h := New()
	before := h.CombineCurrentHashes()
	h.AddTransition(0, transition.New(transition.Write, 0x6000, 8).WithArg0(1), 0)
	after := h.CombineCurrentHashes()

	if before == after {
		t.Errorf("expected CombineCurrentHashes to change after a transition")
	}
}

func TestResetClearsHistory(t *testing.T) {
	h := New()
	h.AddTransition(0, transition.New(transition.Write, 0x7000, 8).WithArg0(1), 0)
	h.Reset()

	if h.Length() != 0 {
		t.Errorf("Length() after Reset = %d, want 0", h.Length())
	}
	if h.CurrentCVFor(0).Get(0) != -1 {
		t.Errorf("expected thread 0's clock vector to be cleared after Reset")
	}
}

func TestDumpProducesOneEntryPerStep(t *testing.T) {
	h := New()
	h.AddTransition(0, transition.New(transition.Write, 0x8000, 8).WithArg0(1), 0)
	h.AddTransition(1, transition.New(transition.Read, 0x8000, 8), 1)

	out := h.Dump()
	if out == "" {
		t.Fatal("Dump() returned empty string")
	}
}
