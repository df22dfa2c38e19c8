// Package tick provides the clock used by every wait loop and a
// cooperative periodic-callback primitive driven by explicit polling.
package tick

import (
	"sync"
	"time"
)

// Clock is the time source for playback, navigation and tickers.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// SystemClock reads the wall clock and really sleeps.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) Sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

// ManualClock is a virtual clock. Sleep advances it instantly, so loops
// that wait on it finish without real delay.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time

	// OnSleep, when set, runs after every Sleep with the new time.
	OnSleep func(now time.Time)
}

// NewManualClock creates a clock frozen at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Sleep(d time.Duration) {
	now := c.Advance(d)
	if c.OnSleep != nil {
		c.OnSleep(now)
	}
}

// Advance moves the clock forward and returns the new time.
func (c *ManualClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > 0 {
		c.now = c.now.Add(d)
	}
	return c.now
}
