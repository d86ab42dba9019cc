package ports

import "github.com/ghalamif/TagSync/internal/domain"

type EntryID uint64

// Journal is the durable record of every emitted stimulation. Entries stay
// uncommitted until a sink has accepted them.
type Journal interface {
	Append(e *domain.Event) (EntryID, error)
	Iterate(from EntryID, fn func(id EntryID, e domain.Event) error) error
	Commit(upto EntryID) error
	// TruncateCommitted drops committed history and reports the bytes reclaimed.
	TruncateCommitted() (int64, error)
	Stats() JournalStats
	Close() error
}

type JournalStats struct {
	OldestUncommitted EntryID
	LatestAppended    EntryID
	SizeBytes         int64
}
