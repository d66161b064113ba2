package program

import (
	"testing"

	"github.com/kolkov/chesscheck/internal/chesscheck/history"
	"github.com/kolkov/chesscheck/internal/chesscheck/interceptor"
)

func newBoundInterceptor(buildSetup func() func()) *interceptor.Interceptor {
	ic := interceptor.New(nil, nil)
	Bind(ic)
	ic.SetSetupRun(buildSetup())
	return ic
}

func runToCompletion(ic *interceptor.Interceptor, h *history.History) {
	ic.StartNewRun(h)
	for !ic.Finished() {
		thread, ok := ic.Runnable().First()
		if !ok {
			break
		}
		ic.AdvanceThread(thread)
	}
}

func TestStartThreadAndThreadIdRoundTrip(t *testing.T) {
	var seen []int
	ic := newBoundInterceptor(func() func() {
		return func() {
			StartThread(func() {
				seen = append(seen, ThreadId())
			})
		}
	})

	runToCompletion(ic, history.New())

	if len(seen) != 1 || seen[0] != 0 {
		t.Errorf("seen=%v, want [0]", seen)
	}
}

func TestInterceptStoreAndLoadRoundTrip(t *testing.T) {
	var x int64
	ic := newBoundInterceptor(func() func() {
		return func() {
			StartThread(func() {
				InterceptStore(addrOf(&x), 42, 8, false, "")
			})
		}
	})

	runToCompletion(ic, history.New())

	if x != 42 {
		t.Errorf("x=%d, want 42", x)
	}
}

func TestInterceptCmpXChgReturnsOldValue(t *testing.T) {
	var x int64
	var old int64 = -1
	ic := newBoundInterceptor(func() func() {
		return func() {
			StartThread(func() {
				old = InterceptCmpXChg(addrOf(&x), 0, 7, 8, "")
			})
		}
	})

	runToCompletion(ic, history.New())

	if old != 0 || x != 7 {
		t.Errorf("old=%d x=%d, want old=0 x=7", old, x)
	}
}

func TestRequireResultBlocksUntilSatisfied(t *testing.T) {
	var flag int64
	var order []string
	ic := newBoundInterceptor(func() func() {
		return func() {
			StartThread(func() {
				RequireResult(1)
				InterceptLoad(addrOf(&flag), 8, false, "")
				order = append(order, "waiter")
			})
			StartThread(func() {
				InterceptStore(addrOf(&flag), 1, 8, false, "")
				order = append(order, "setter")
			})
		}
	})

	ic.StartNewRun(history.New())
	for !ic.Finished() {
		thread, ok := ic.Runnable().First()
		if !ok {
			t.Fatal("deadlock: no runnable thread")
		}
		ic.AdvanceThread(thread)
	}

	if len(order) != 2 || order[0] != "setter" || order[1] != "waiter" {
		t.Errorf("order=%v, want [setter waiter]", order)
	}
}

func TestFoundRecordsViolation(t *testing.T) {
	ic := newBoundInterceptor(func() func() {
		return func() {
			StartThread(func() {
				Found()
			})
		}
	})

	runToCompletion(ic, history.New())

	if ic.Violation() != interceptor.ViolationFoundBug {
		t.Errorf("violation=%v, want ViolationFoundBug", ic.Violation())
	}
}

func TestMutexExcludesBothThreadsFromHoldingSimultaneously(t *testing.T) {
	var m Mutex
	var holders int
	var maxHolders int
	ic := newBoundInterceptor(func() func() {
		return func() {
			m.Reset()
			holders, maxHolders = 0, 0
			work := func() {
				m.Acquire()
				holders++
				if holders > maxHolders {
					maxHolders = holders
				}
				holders--
				m.Release()
			}
			StartThread(work)
			StartThread(work)
		}
	})

	runToCompletion(ic, history.New())

	if maxHolders > 1 {
		t.Errorf("maxHolders=%d, want at most 1", maxHolders)
	}
}

func TestRecursiveMutexAllowsSameThreadReentry(t *testing.T) {
	var m RecursiveMutex
	ic := newBoundInterceptor(func() func() {
		return func() {
			m.Reset()
			StartThread(func() {
				m.Acquire()
				m.Acquire()
				m.Release()
				m.Release()
			})
		}
	})

	runToCompletion(ic, history.New())
}

func TestThreadLocalStorageIsPerThread(t *testing.T) {
	var tls ThreadLocalStorage[int]
	var a, b int
	ic := newBoundInterceptor(func() func() {
		return func() {
			tls.Reset()
			StartThread(func() {
				*tls.Get() = 11
				a = *tls.Get()
			})
			StartThread(func() {
				*tls.Get() = 22
				b = *tls.Get()
			})
		}
	})

	runToCompletion(ic, history.New())

	if a != 11 || b != 22 {
		t.Errorf("a=%d b=%d, want 11 and 22", a, b)
	}
}
