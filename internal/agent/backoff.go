package agent

import (
	"math/rand"
	"time"
)

// Server reset hints are clamped into this window before use.
const (
	resetHintMin = 30 * time.Second
	resetHintMax = 900 * time.Second
)

// BackoffClock suppresses requests to one rate-limited surface. Each engage
// doubles the previous interval up to the cap unless the server advised a
// reset instant, in which case that wins (clamped). A successful request
// resets the doubling back to the floor.
type BackoffClock struct {
	floor time.Duration
	cap   time.Duration

	until        time.Time
	lastInterval time.Duration

	now  func() time.Time
	rand func() float64
}

func NewBackoffClock(floor, capLimit time.Duration) *BackoffClock {
	return &BackoffClock{
		floor: floor,
		cap:   capLimit,
		now:   time.Now,
		rand:  rand.Float64,
	}
}

// Ready reports whether the surface may be called now.
func (c *BackoffClock) Ready() bool {
	return !c.now().Before(c.until)
}

// Until returns the instant before which the surface is suppressed.
func (c *BackoffClock) Until() time.Time {
	return c.until
}

// Engage starts a cooldown after a rate-limit response. resetAt is the
// server-advised reset instant; pass the zero time when none was given.
// Returns the applied cooldown for logging.
func (c *BackoffClock) Engage(resetAt time.Time) time.Duration {
	now := c.now()

	cool := c.lastInterval * 2
	if cool < c.floor {
		cool = c.floor
	}
	if cool > c.cap {
		cool = c.cap
	}

	if resetAt.After(now) {
		cool = resetAt.Sub(now)
		if cool < resetHintMin {
			cool = resetHintMin
		}
		if cool > resetHintMax {
			cool = resetHintMax
		}
	}

	// Jitter is part of the applied cooldown, so it also feeds the next
	// doubling base.
	cool += time.Duration(c.rand() * 0.1 * float64(cool))
	c.lastInterval = cool
	c.until = now.Add(cool)
	return cool
}

// Reset restores the doubling to the floor after a successful request; any
// cooldown already in force keeps running.
func (c *BackoffClock) Reset() {
	c.lastInterval = c.floor
}
