package scheduler

import "testing"

func TestSwitchToRunsThreadThenReturns(t *testing.T) {
	s := New()
	var ran bool

	s.AddThread(0, func() {
		ran = true
		s.Exit(0, OriginalThread)
	})

	s.SwitchTo(0)

	if !ran {
		t.Errorf("expected thread 0's task to run")
	}
	if s.CurrentThread() != OriginalThread {
		t.Errorf("CurrentThread() = %d, want OriginalThread", s.CurrentThread())
	}
}

func TestSwitchToIsNoOpForCurrentThread(t *testing.T) {
	s := New()
	before := s.CurrentThread()
	s.SwitchTo(before)
	if s.CurrentThread() != before {
		t.Errorf("expected no-op switch to leave current thread unchanged")
	}
}

func TestThreadCanYieldBackToDriverMidTask(t *testing.T) {
	s := New()
	var order []string

	s.AddThread(0, func() {
		order = append(order, "thread-start")
		s.SwitchTo(OriginalThread)
		order = append(order, "thread-resumed")
		s.Exit(0, OriginalThread)
	})

	s.SwitchTo(0)
	order = append(order, "driver-resumed")
	s.SwitchTo(0)

	want := []string{"thread-start", "driver-resumed", "thread-resumed"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestTwoThreadsSwitchDirectlyToEachOther(t *testing.T) {
	s := New()
	var order []string

	s.AddThread(0, func() {
		order = append(order, "t0")
		s.SwitchTo(1)
		order = append(order, "t0-again")
		s.Exit(0, OriginalThread)
	})
	s.AddThread(1, func() {
		order = append(order, "t1")
		s.SwitchTo(0)
	})

	s.SwitchTo(0)

	want := []string{"t0", "t1", "t0-again"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}
