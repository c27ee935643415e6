package sync

import (
	"math"
	"math/rand"
	"time"
)

// Retryer decides how long a failing sync pair waits before its next attempt.
type Retryer interface {
	// NextDelay returns the wait before retry number attempt (zero-based)
	// and false once the retry budget is spent.
	NextDelay(attempt int, lastErr error) (time.Duration, bool)

	// Reset clears accumulated state after a successful cycle.
	Reset()
}

// ExponentialBackoffRetryer grows the delay by Multiplier per attempt up to
// MaxDelay. Jitter spreads the delays so pairs sharing a failed store do not
// retry in lockstep.
type ExponentialBackoffRetryer struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64

	// MaxRetries caps the attempts; zero retries forever.
	MaxRetries int

	Jitter bool

	// JitterFactor is the spread as a fraction of the computed delay,
	// between 0 and 1.
	JitterFactor float64
}

// NewExponentialBackoffRetryer returns the orchestrator's default policy:
// 1s doubling to a 30s ceiling, jittered, never giving up.
func NewExponentialBackoffRetryer() *ExponentialBackoffRetryer {
	return &ExponentialBackoffRetryer{
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		MaxRetries:   0,
		Jitter:       true,
		JitterFactor: 0.3,
	}
}

func (r *ExponentialBackoffRetryer) NextDelay(attempt int, lastErr error) (time.Duration, bool) {
	if r.MaxRetries > 0 && attempt >= r.MaxRetries {
		return 0, false
	}

	delay := float64(r.InitialDelay) * math.Pow(r.Multiplier, float64(attempt))
	if delay > float64(r.MaxDelay) {
		delay = float64(r.MaxDelay)
	}

	if r.Jitter && r.JitterFactor > 0 {
		delay += delay * r.JitterFactor * (2*rand.Float64() - 1)
		if delay < 0 {
			delay = float64(r.InitialDelay)
		}
	}

	return time.Duration(delay), true
}

// Reset is a no-op; the delay depends only on the attempt number.
func (r *ExponentialBackoffRetryer) Reset() {}

// FixedDelayRetryer waits the same Delay before every attempt. Tests use it
// to keep retry timing deterministic.
type FixedDelayRetryer struct {
	Delay time.Duration

	// MaxRetries caps the attempts; zero retries forever.
	MaxRetries int
}

// NewFixedDelayRetryer returns a fixed-delay policy.
func NewFixedDelayRetryer(delay time.Duration, maxRetries int) *FixedDelayRetryer {
	return &FixedDelayRetryer{
		Delay:      delay,
		MaxRetries: maxRetries,
	}
}

func (r *FixedDelayRetryer) NextDelay(attempt int, lastErr error) (time.Duration, bool) {
	if r.MaxRetries > 0 && attempt >= r.MaxRetries {
		return 0, false
	}
	return r.Delay, true
}

// Reset is a no-op.
func (r *FixedDelayRetryer) Reset() {}
