package resilience

import (
	"testing"
	"time"
)

func TestBackoffDisabled(t *testing.T) {
	b := NewBackoff(0, time.Second)

	for range 3 {
		if d := b.Next(); d != 0 {
			t.Fatalf("expected zero delay, got %v", d)
		}
	}
	if b.Failures() != 3 {
		t.Fatalf("expected 3 failures, got %d", b.Failures())
	}
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	b := NewBackoff(10*time.Millisecond, 40*time.Millisecond)

	var last time.Duration
	for range 20 {
		d := b.Next()
		if d <= 0 {
			t.Fatalf("expected positive delay, got %v", d)
		}
		// Randomization may exceed the cap by at most the jitter factor.
		if d > 60*time.Millisecond {
			t.Fatalf("delay %v exceeds cap", d)
		}
		last = d
	}
	if last < 20*time.Millisecond {
		t.Fatalf("expected delay to have grown, got %v", last)
	}
}

func TestBackoffReset(t *testing.T) {
	b := NewBackoff(time.Millisecond, time.Second)
	for range 5 {
		b.Next()
	}
	b.Reset()

	if b.Failures() != 0 {
		t.Fatalf("expected failures reset, got %d", b.Failures())
	}
	if d := b.Next(); d > 2*time.Millisecond {
		t.Fatalf("expected delay near initial after reset, got %v", d)
	}
}

func TestBackoffWaitStops(t *testing.T) {
	b := NewBackoff(time.Hour, time.Hour)
	stop := make(chan struct{})
	close(stop)

	start := time.Now()
	if b.Wait(stop) {
		t.Fatal("expected Wait to report stop")
	}
	if time.Since(start) > time.Second {
		t.Fatal("Wait did not return promptly on stop")
	}
}

func TestBackoffWaitElapses(t *testing.T) {
	b := NewBackoff(time.Millisecond, time.Millisecond)
	if !b.Wait(make(chan struct{})) {
		t.Fatal("expected Wait to elapse")
	}
}
