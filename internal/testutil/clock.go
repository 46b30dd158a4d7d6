package testutil

import (
	"sync"
	"time"
)

// FakeClock is a deterministic wall clock for tests.
//
// Every call to Now() returns the current time and then advances it by the
// configured step, so code that polls the clock in a loop observes time
// passing without sleeping. With a zero step the clock only moves on
// Advance().
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FakeClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// Epoch is the default start time of a FakeClock.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// NewFakeClock creates a clock at Epoch that advances step per Now() call.
func NewFakeClock(step time.Duration) *FakeClock {
	return &FakeClock{now: Epoch, step: step}
}

// Now returns the current fake time and advances it by the step.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Peek returns the current fake time without advancing it.
func (c *FakeClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Reset moves the clock back to Epoch.
func (c *FakeClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = Epoch
}
