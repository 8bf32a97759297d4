package game

import "time"

// frameClock turns ticker instants into simulation deltas. Time spent paused
// never reaches the simulation: Reset restarts the clock at the resume
// instant, and single deltas are capped so a stalled goroutine cannot make
// the world jump.
type frameClock struct {
	last     time.Time
	maxDelta time.Duration
}

func newFrameClock(now time.Time, maxDelta time.Duration) *frameClock {
	return &frameClock{last: now, maxDelta: maxDelta}
}

// Reset restarts elapsed-time bookkeeping from now.
func (c *frameClock) Reset(now time.Time) {
	c.last = now
}

// Delta returns the time since the previous call, capped at maxDelta.
func (c *frameClock) Delta(now time.Time) time.Duration {
	d := now.Sub(c.last)
	c.last = now
	if d < 0 {
		return 0
	}
	if c.maxDelta > 0 && d > c.maxDelta {
		return c.maxDelta
	}
	return d
}
