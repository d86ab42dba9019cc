package ports

import "github.com/ghalamif/TagSync/internal/domain"

type QueuedEvent struct {
	ID    EntryID
	Event domain.Event
}

// EventQueue buffers journaled events between the acquisition loop and the sinks.
type EventQueue interface {
	Enqueue(id EntryID, e domain.Event) bool
	// EnqueueAll queues every item or none of them.
	EnqueueAll(items []QueuedEvent) bool
	DequeueBatch(max int) []QueuedEvent
	Len() int
}
