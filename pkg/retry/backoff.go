package retry

import (
	"context"
	"math"
	"time"
)

// Rand is the subset of *math/rand.Rand used for jitter and random picks.
// Tests supply deterministic implementations.
type Rand interface {
	Intn(n int) int
	Int63n(n int64) int64
}

// BackoffStrategy defines the interface for different backoff strategies
type BackoffStrategy interface {
	// NextDelay returns the delay to apply after the given 1-based attempt
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff grows the delay geometrically up to MaxDelay
type ExponentialBackoff struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

// DefaultExponentialBackoff returns a backoff with sensible defaults
func DefaultExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Multiplier: 2.0,
	}
}

// NextDelay calculates the next delay with exponential growth
func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := float64(eb.BaseDelay) * math.Pow(eb.Multiplier, float64(attempt-1))
	if delay > float64(eb.MaxDelay) {
		delay = float64(eb.MaxDelay)
	}
	return time.Duration(delay)
}

// ConstantBackoff implements constant delay backoff
type ConstantBackoff struct {
	Delay time.Duration
}

// NextDelay returns a constant delay
func (cb *ConstantBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return cb.Delay
}

// JitterWindow draws durations uniformly from [Min, Max]
type JitterWindow struct {
	Min time.Duration
	Max time.Duration
}

// Draw returns a duration in the window using r
func (w JitterWindow) Draw(r Rand) time.Duration {
	if w.Max <= w.Min {
		return w.Min
	}
	return w.Min + time.Duration(r.Int63n(int64(w.Max-w.Min)+1))
}

// Clock suspends the caller. Sleep must return early with ctx.Err() when
// ctx is done.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock sleeps on the wall clock
type RealClock struct{}

// Sleep waits for d or until ctx is cancelled
func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	return Wait(ctx, d)
}

// Wait waits for the specified duration or until context is cancelled
func Wait(ctx context.Context, delay time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if delay <= 0 {
		return nil
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

// Countdown sleeps for d in steps of at most one second, calling tick with
// the whole seconds still remaining (rounded up) before each step.
func Countdown(ctx context.Context, clock Clock, d time.Duration, tick func(secondsLeft int)) error {
	remaining := d
	for remaining > 0 {
		if tick != nil {
			tick(int((remaining + time.Second - 1) / time.Second))
		}
		step := time.Second
		if remaining < step {
			step = remaining
		}
		if err := clock.Sleep(ctx, step); err != nil {
			return err
		}
		remaining -= step
	}
	return ctx.Err()
}
