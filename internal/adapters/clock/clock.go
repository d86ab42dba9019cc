// Package clock provides the wall clock used to stamp tags and to anchor the
// synchronizer's interpolation.
package clock

import (
	"time"

	"github.com/ghalamif/TagSync/internal/domain"
	"github.com/ghalamif/TagSync/internal/ports"
)

// SystemClock reports monotonic time elapsed since its epoch as 32.32 fixed
// point.
type SystemClock struct {
	epoch time.Time
}

func NewSystemClock() *SystemClock {
	return &SystemClock{epoch: time.Now()}
}

func (c *SystemClock) Now() domain.Time {
	return domain.DurationToTime(time.Since(c.epoch))
}

// At converts an absolute timestamp (for instance one reported by a remote
// device) to the clock's axis. Instants before the epoch map to zero.
func (c *SystemClock) At(t time.Time) domain.Time {
	return domain.DurationToTime(t.Sub(c.epoch))
}

// Epoch returns the instant corresponding to time zero.
func (c *SystemClock) Epoch() time.Time { return c.epoch }

var _ ports.Clock = (*SystemClock)(nil)
