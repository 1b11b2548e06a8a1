package testutil

import (
	"sync"
	"time"
)

// Epoch is the fixed start time of a SteppingClock.
var Epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// SteppingClock is a deterministic clock for tests. Every call to Now
// advances it by a fixed step, so a pass timed with two calls always
// reports a duration of exactly one step.
//
// Unlike the pipeline's system clock, SteppingClock can be reset for test
// reuse.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SteppingClock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	n     int64
}

// NewSteppingClock creates a clock starting at Epoch that advances by step.
//
// The first call to Now() returns Epoch.
func NewSteppingClock(step time.Duration) *SteppingClock {
	return &SteppingClock{start: Epoch, step: step}
}

// Now returns the current time and advances the clock by one step.
func (c *SteppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.start.Add(time.Duration(c.n) * c.step)
	c.n++
	return t
}

// Calls returns how many times Now has been called.
func (c *SteppingClock) Calls() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// Reset rewinds the clock to Epoch.
func (c *SteppingClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n = 0
}
