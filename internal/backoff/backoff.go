// Package backoff computes reconnection delays for dropped chat channels.
//
// The policy is a pure function of the attempt number; the Connection
// Manager owns and increments the attempt counter.
package backoff

import "time"

// Policy computes exponential backoff delays.
// Zero values are not usable; construct via New or fill both fields.
type Policy struct {
	// Base is the delay unit for the first computation.
	Base time.Duration

	// Cap is the upper bound on any returned delay.
	Cap time.Duration
}

// New creates a backoff policy with the given base delay and cap.
func New(base, cap time.Duration) Policy {
	return Policy{Base: base, Cap: cap}
}

// Delay returns the wait before reconnect attempt n.
//
// Delay(n) = min(Base * 2^n, Cap). The first reconnect after a drop uses
// n=1, so with a 1s base the observed schedule is 2s, 4s, 8s, ...
// Values of n below 1 are clamped to 1. Deterministic: no jitter.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	// 2^63 overflows time.Duration; anything past 62 doublings is
	// beyond any sane cap already.
	if attempt > 62 {
		return p.Cap
	}

	d := p.Base << uint(attempt)
	if d <= 0 || d > p.Cap {
		return p.Cap
	}
	return d
}
