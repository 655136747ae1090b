// Package testutil holds deterministic stand-ins for time and randomness
// shared by the workflow and scheduler tests.
package testutil

import (
	"context"
	"sync"
	"time"
)

// FakeClock records requested sleeps without waiting. When CancelAfter is
// positive, Cancel is invoked once that many sleeps have been recorded.
type FakeClock struct {
	mu          sync.Mutex
	sleeps      []time.Duration
	CancelAfter int
	Cancel      context.CancelFunc
}

// Sleep records d and returns ctx.Err()
func (c *FakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	n := len(c.sleeps)
	c.mu.Unlock()

	if c.CancelAfter > 0 && n >= c.CancelAfter && c.Cancel != nil {
		c.Cancel()
	}
	return ctx.Err()
}

// Sleeps returns a copy of all recorded sleeps
func (c *FakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.sleeps))
	copy(out, c.sleeps)
	return out
}

// Total returns the simulated time slept
func (c *FakeClock) Total() time.Duration {
	var total time.Duration
	for _, d := range c.Sleeps() {
		total += d
	}
	return total
}

// ScriptedRand replays fixed values. Intn returns the next scripted value
// modulo n (0 once exhausted); Int63n always returns Fixed63 clamped to n-1.
type ScriptedRand struct {
	mu      sync.Mutex
	Ints    []int
	Fixed63 int64
	calls   int
}

// Intn implements retry.Rand
func (r *ScriptedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls >= len(r.Ints) {
		r.calls++
		return 0
	}
	v := r.Ints[r.calls] % n
	r.calls++
	return v
}

// Int63n implements retry.Rand
func (r *ScriptedRand) Int63n(n int64) int64 {
	if r.Fixed63 >= n {
		return n - 1
	}
	return r.Fixed63
}
