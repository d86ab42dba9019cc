package testutil

import (
	"sync"
	"time"

	"github.com/ghalamif/TagSync/internal/domain"
)

// ManualClock is a thread-safe clock that only moves when told to.
type ManualClock struct {
	mu    sync.Mutex
	now   domain.Time
	epoch time.Time
}

// NewManualClock creates a clock reading start, with an arbitrary fixed epoch
// for At conversions.
func NewManualClock(start domain.Time) *ManualClock {
	return &ManualClock{
		now:   start,
		epoch: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (c *ManualClock) Now() domain.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) At(t time.Time) domain.Time {
	return domain.DurationToTime(t.Sub(c.epoch))
}

// Epoch returns the instant that At maps to zero.
func (c *ManualClock) Epoch() time.Time { return c.epoch }

func (c *ManualClock) Set(t domain.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *ManualClock) Advance(d domain.Time) domain.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d
	return c.now
}
