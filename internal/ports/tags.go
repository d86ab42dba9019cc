package ports

import (
	"time"

	"github.com/ghalamif/TagSync/internal/domain"
)

// TagQueue is the FIFO shared between the network side and the acquisition
// side. Pop never blocks.
type TagQueue interface {
	Push(t domain.Tag)
	Pop() (domain.Tag, bool)
	Len() int
}

// TagSource is what the synchronizer drains once per acquisition iteration.
type TagSource interface {
	Pop() (domain.Tag, bool)
}

// Clock reads wall-clock time as 32.32 fixed point relative to a fixed epoch.
type Clock interface {
	Now() domain.Time
	At(t time.Time) domain.Time
}
