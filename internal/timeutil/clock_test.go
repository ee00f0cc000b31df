package timeutil

import (
	"testing"
	"time"
)

func TestRealClock(t *testing.T) {
	var c Clock = RealClock{}
	start := c.Now()
	if c.Since(start) < 0 {
		t.Errorf("Since() returned a negative duration")
	}
}

func TestMockClockAdvance(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMockClock(base)

	if got := c.Now(); !got.Equal(base) {
		t.Fatalf("Now() = %v, want %v", got, base)
	}
	c.Advance(5 * time.Second)
	if got := c.Since(base); got != 5*time.Second {
		t.Errorf("Since() = %v, want 5s", got)
	}
	c.Set(base.Add(time.Hour))
	if got := c.Since(base); got != time.Hour {
		t.Errorf("Since() after Set = %v, want 1h", got)
	}
}

func TestSteppingClock(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewSteppingClock(base, 10*time.Millisecond)

	first := c.Now()
	second := c.Now()
	if d := second.Sub(first); d != 10*time.Millisecond {
		t.Errorf("step between Now() calls = %v, want 10ms", d)
	}
	// Since reads without stepping.
	if got := c.Since(first); got != 20*time.Millisecond {
		t.Errorf("Since(first) = %v, want 20ms", got)
	}
	if got := c.Since(first); got != 20*time.Millisecond {
		t.Errorf("second Since(first) = %v, want 20ms", got)
	}
}
