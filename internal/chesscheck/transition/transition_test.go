package transition

import (
	"testing"
	"unsafe"
)

func uintptrOf(p *int64) uintptr {
	return uintptr(unsafe.Pointer(p))
}

// TestDetermineResultWrite verifies a Write always reports the written
// value and no return value, per transition.cc's DetermineResult.
func TestDetermineResultWrite(t *testing.T) {
	tr := New(Write, 0, 8).WithArg0(42)
	result := tr.DetermineResult(999)
	if !result.DoesWrite || result.Written != 42 {
		t.Errorf("DetermineResult(999) = %+v, want a write of 42", result)
	}
}

// TestDetermineResultCASSuccess verifies a CAS writes when the current
// value matches the expected operand.
func TestDetermineResultCASSuccess(t *testing.T) {
	tr := New(CAS, 0, 8).WithArg0(1).WithArg1(2)
	result := tr.DetermineResult(1)
	if !result.DoesWrite || result.Written != 2 || result.Returned != 1 {
		t.Errorf("DetermineResult(1) = %+v, want successful CAS writing 2", result)
	}
}

// TestDetermineResultCASFailure verifies a CAS does not write when the
// current value does not match.
func TestDetermineResultCASFailure(t *testing.T) {
	tr := New(CAS, 0, 8).WithArg0(1).WithArg1(2)
	result := tr.DetermineResult(5)
	if result.DoesWrite {
		t.Errorf("DetermineResult(5) = %+v, want no write on CAS mismatch", result)
	}
	if result.Returned != 5 {
		t.Errorf("Returned = %d, want 5 (the observed value)", result.Returned)
	}
}

// TestDetermineResultReadGE verifies the threshold comparison.
func TestDetermineResultReadGE(t *testing.T) {
	tr := New(ReadGE, 0, 8).WithArg0(10)
	if tr.DetermineResult(10).Returned != 1 {
		t.Errorf("expected ReadGE(10) with value 10 to return 1")
	}
	if tr.DetermineResult(9).Returned != 0 {
		t.Errorf("expected ReadGE(10) with value 9 to return 0")
	}
}

// TestDetermineResultAtomicRMW verifies each RMW sub-operation.
func TestDetermineResultAtomicRMW(t *testing.T) {
	add := New(AtomicRMW, 0, 8).WithArg0(int64(Add)).WithArg1(5)
	result := add.DetermineResult(10)
	if result.Returned != 10 || result.Written != 15 {
		t.Errorf("Add: got %+v, want returned=10 written=15", result)
	}

	sub := New(AtomicRMW, 0, 8).WithArg0(int64(Sub)).WithArg1(5)
	result = sub.DetermineResult(10)
	if result.Returned != 10 || result.Written != 5 {
		t.Errorf("Sub: got %+v, want returned=10 written=5", result)
	}

	xchg := New(AtomicRMW, 0, 8).WithArg0(int64(Xchg)).WithArg1(99)
	result = xchg.DetermineResult(10)
	if result.Returned != 10 || result.Written != 99 {
		t.Errorf("Xchg: got %+v, want returned=10 written=99", result)
	}
}

// TestDetermineRunnableRequiresMatch verifies a required-result guard
// gates runnability.
func TestDetermineRunnableRequiresMatch(t *testing.T) {
	tr := New(Read, 0, 8).WithRequired(7)
	if tr.DetermineRunnable(6) {
		t.Errorf("expected not runnable when required result unmet")
	}
	if !tr.DetermineRunnable(7) {
		t.Errorf("expected runnable when required result met")
	}
}

// TestConflictsWithRequiresSharedAddressAndWrite verifies the conflict
// rule: same address and at least one transition writes.
func TestConflictsWithRequiresSharedAddressAndWrite(t *testing.T) {
	write := New(Write, 100, 8).WithArg0(1)
	read := New(Read, 100, 8)
	readOther := New(Read, 200, 8)

	if !write.ConflictsWith(read) {
		t.Errorf("expected write/read at same address to conflict")
	}
	if read.ConflictsWith(read) {
		t.Errorf("expected two reads to never conflict")
	}
	if write.ConflictsWith(readOther) {
		t.Errorf("expected different addresses to never conflict")
	}
}

// TestReadWriteRoundTrip verifies the memory effect across all
// supported widths.
func TestReadWriteRoundTrip(t *testing.T) {
	for _, length := range []int{1, 2, 4, 8} {
		var storage int64
		addr := uintptrOf(&storage)

		w := New(Write, addr, length).WithArg0(7)
		w.Write(7)

		r := New(Read, addr, length)
		if got := r.Read(); got != 7 {
			t.Errorf("length=%d: Read() = %d, want 7", length, got)
		}
	}
}
