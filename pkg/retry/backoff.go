package retry

import (
	"context"
	"math"
	"time"
)

// BackoffStrategy defines the interface for different backoff strategies
type BackoffStrategy interface {
	// NextDelay returns the delay before retry number attempt (1-indexed)
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff implements exponential backoff
type ExponentialBackoff struct {
	// BaseDelay is the delay before the first retry
	BaseDelay time.Duration
	// MaxDelay caps computed delays; zero means no cap
	MaxDelay time.Duration
	// Multiplier is the factor by which delay increases
	Multiplier float64
}

// FactorBackoff returns the deterministic schedule factor * 2^i seconds,
// where i is the 0-indexed retry.
func FactorBackoff(factor float64) *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:  Seconds(factor),
		Multiplier: 2.0,
	}
}

// Seconds converts a fractional number of seconds to a Duration
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// NextDelay calculates the next delay. Delays too large for a Duration
// saturate instead of wrapping around.
func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := float64(eb.BaseDelay) * math.Pow(eb.Multiplier, float64(attempt-1))

	if eb.MaxDelay > 0 && delay > float64(eb.MaxDelay) {
		delay = float64(eb.MaxDelay)
	}

	if delay < 0 || math.IsNaN(delay) {
		return 0
	}
	if delay >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}

	return time.Duration(delay)
}

// SleepFunc blocks for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Wait waits for the specified duration or until context is cancelled
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
