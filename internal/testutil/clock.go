package testutil

import (
	"sync"
	"time"
)

// ManualClock is a wall clock that only moves when told to.
//
// With a non-zero step every call to Now advances the clock by step after
// reading it, so a loop that polls the clock sees time pass at a fixed rate
// per iteration. This makes time budgets deterministic in tests.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ManualClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// Epoch is the default start time of a ManualClock.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// NewManualClock creates a clock at Epoch that advances by step per Now
// call. A zero step gives a frozen clock.
func NewManualClock(step time.Duration) *ManualClock {
	return &ManualClock{now: Epoch, step: step}
}

// Now returns the current time and then applies the step.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Elapsed returns the time since Epoch without stepping.
func (c *ManualClock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now.Sub(Epoch)
}
