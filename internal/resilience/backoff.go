// Package resilience provides retry pacing for loops that must never give up.
package resilience

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Backoff paces retries of a loop that keeps failing for the same reason,
// such as an accept loop whose listener is out of file descriptors.
// A zero initial interval disables pacing entirely.
type Backoff struct {
	exp      *backoff.ExponentialBackOff
	failures int
}

// NewBackoff returns a Backoff whose delay starts at initial and grows
// exponentially up to max.
func NewBackoff(initial, max time.Duration) *Backoff {
	b := &Backoff{}
	if initial <= 0 {
		return b
	}
	if max < initial {
		max = initial
	}
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = initial
	exp.MaxInterval = max
	exp.Reset()
	b.exp = exp
	return b
}

// Next records a failure and returns how long to wait before retrying.
func (b *Backoff) Next() time.Duration {
	b.failures++
	if b.exp == nil {
		return 0
	}
	d := b.exp.NextBackOff()
	if d == backoff.Stop {
		return b.exp.MaxInterval
	}
	return d
}

// Reset clears the failure streak after a success.
func (b *Backoff) Reset() {
	b.failures = 0
	if b.exp != nil {
		b.exp.Reset()
	}
}

// Failures returns the length of the current failure streak.
func (b *Backoff) Failures() int {
	return b.failures
}

// Wait records a failure and sleeps for the next delay. It returns false if stop
// was closed before the delay elapsed.
func (b *Backoff) Wait(stop <-chan struct{}) bool {
	d := b.Next()
	if d <= 0 {
		select {
		case <-stop:
			return false
		default:
			return true
		}
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-stop:
		return false
	case <-timer.C:
		return true
	}
}
