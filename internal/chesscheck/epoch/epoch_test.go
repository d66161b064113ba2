package epoch

import (
	"testing"

	"github.com/kolkov/chesscheck/internal/chesscheck/clockvector"
)

// TestNewAndDecodeRoundTrip verifies packing and unpacking agree.
func TestNewAndDecodeRoundTrip(t *testing.T) {
	e := New(5, 12345)
	thread, step := e.Decode()
	if thread != 5 || step != 12345 {
		t.Errorf("Decode() = (%d, %d), want (5, 12345)", thread, step)
	}
}

// TestHappensBeforeAgainstUnset verifies an epoch never happens-before
// a clock vector that has not observed its thread.
func TestHappensBeforeAgainstUnset(t *testing.T) {
	e := New(3, 0)
	cv := clockvector.New()
	if e.HappensBefore(cv) {
		t.Errorf("expected HappensBefore to be false against an unset clock vector")
	}
}

// TestHappensBeforeBoundary verifies the <= boundary condition.
func TestHappensBeforeBoundary(t *testing.T) {
	cv := clockvector.New()
	cv.Set(3, 10)

	if !New(3, 10).HappensBefore(cv) {
		t.Errorf("expected step == observed clock to happen-before")
	}
	if !New(3, 5).HappensBefore(cv) {
		t.Errorf("expected step < observed clock to happen-before")
	}
	if New(3, 11).HappensBefore(cv) {
		t.Errorf("expected step > observed clock to not happen-before")
	}
}
