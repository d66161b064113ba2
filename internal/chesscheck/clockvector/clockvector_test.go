package clockvector

import "testing"

// TestNewIsAllUnset verifies a fresh ClockVector has every entry Unset,
// not zero -- step 0 must be distinguishable from "never observed".
func TestNewIsAllUnset(t *testing.T) {
	cv := New()
	for i := 0; i < 10; i++ {
		if got := cv.Get(i); got != Unset {
			t.Errorf("New().Get(%d) = %d, want Unset", i, got)
		}
	}
}

// TestCloneIsIndependent verifies Clone produces a deep copy.
func TestCloneIsIndependent(t *testing.T) {
	cv := New()
	cv.Set(0, 5)
	cv.Set(3, 9)

	clone := cv.Clone()
	clone.Set(0, 100)

	if cv.Get(0) != 5 {
		t.Errorf("original mutated via clone: Get(0) = %d, want 5", cv.Get(0))
	}
	if clone.Get(3) != 9 {
		t.Errorf("clone missing copied entry: Get(3) = %d, want 9", clone.Get(3))
	}
}

// TestJoinIsPointwiseMax verifies Join takes the elementwise maximum.
func TestJoinIsPointwiseMax(t *testing.T) {
	a := New()
	a.Set(0, 5)
	a.Set(1, 2)

	b := New()
	b.Set(0, 3)
	b.Set(1, 7)
	b.Set(2, 1)

	a.Join(b)

	if a.Get(0) != 5 {
		t.Errorf("Get(0) = %d, want 5", a.Get(0))
	}
	if a.Get(1) != 7 {
		t.Errorf("Get(1) = %d, want 7", a.Get(1))
	}
	if a.Get(2) != 1 {
		t.Errorf("Get(2) = %d, want 1", a.Get(2))
	}
}

// TestLessOrEqualReflexive verifies cv <= cv for any clock vector.
func TestLessOrEqualReflexive(t *testing.T) {
	cv := New()
	cv.Set(0, 4)
	cv.Set(2, 9)
	if !cv.LessOrEqual(cv) {
		t.Errorf("expected cv.LessOrEqual(cv) to hold")
	}
}

// TestLessOrEqualDetectsViolation verifies a strictly larger entry in cv
// makes LessOrEqual false.
func TestLessOrEqualDetectsViolation(t *testing.T) {
	a := New()
	a.Set(0, 5)
	b := New()
	b.Set(0, 3)

	if a.LessOrEqual(b) {
		t.Errorf("expected a.LessOrEqual(b) to be false (a[0]=5 > b[0]=3)")
	}
	if !b.LessOrEqual(a) {
		t.Errorf("expected b.LessOrEqual(a) to hold")
	}
}

// TestHappensAfterAny verifies the existential check used by Pinner.
func TestHappensAfterAny(t *testing.T) {
	a := New()
	a.Set(2, 10)
	b := New()
	b.Set(2, 10)

	if !a.HappensAfterAny(b) {
		t.Errorf("expected a.HappensAfterAny(b) given equal entries")
	}

	c := New()
	c.Set(2, 11)
	if a.HappensAfterAny(c) {
		t.Errorf("expected a.HappensAfterAny(c) to be false (a[2]=10 < c[2]=11)")
	}
}

// TestStringOmitsUnsetEntries verifies String only renders set entries.
func TestStringOmitsUnsetEntries(t *testing.T) {
	cv := New()
	if got := cv.String(); got != "{}" {
		t.Errorf("String() on empty clock = %q, want {}", got)
	}
	cv.Set(1, 7)
	if got := cv.String(); got != "{1:7}" {
		t.Errorf("String() = %q, want {1:7}", got)
	}
}
