package trace

import (
	"testing"
	"unsafe"

	"github.com/kolkov/chesscheck/internal/chesscheck/history"
	"github.com/kolkov/chesscheck/internal/chesscheck/interceptor"
	"github.com/kolkov/chesscheck/internal/chesscheck/transition"
)

func addrOf(p *int64) uintptr {
	return uintptr(unsafe.Pointer(p))
}

func twoWriterInterceptor(storage *int64) *interceptor.Interceptor {
	ic := interceptor.New(nil, nil)
	addr := addrOf(storage)

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

	return ic
}

func TestRootHasBothThreadsRunnable(t *testing.T) {
	var storage int64
	ic := twoWriterInterceptor(&storage)
	b := New(ic, history.New())

	if b.Root().Runnable().Size() != 2 {
		t.Errorf("root runnable size = %d, want 2", b.Root().Runnable().Size())
	}
}

func TestExtendCachesTheSameChild(t *testing.T) {
	var storage int64
	ic := twoWriterInterceptor(&storage)
	b := New(ic, history.New())

	first := b.Extend(0)
	if first.LastThread() != 0 {
		t.Fatalf("LastThread() = %d, want 0", first.LastThread())
	}

	if child, ok := b.Root().children.Get(0); !ok || child != first {
		t.Errorf("expected root to cache the extended child by pointer identity")
	}
}

func TestMoveToReplaysPrefix(t *testing.T) {
	var storage int64
	ic := twoWriterInterceptor(&storage)
	b := New(ic, history.New())

	afterZero := b.Extend(0)
	_ = b.Extend(1)

	b.MoveTo(afterZero)
	if b.Current() != afterZero {
		t.Errorf("expected MoveTo to reposition at the requested node")
	}
	if b.Current().Path()[0] != 0 {
		t.Errorf("Path() = %v, want [0]", b.Current().Path())
	}
}
