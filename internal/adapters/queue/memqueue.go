package queue

import (
	"sync"

	"github.com/ghalamif/TagSync/internal/domain"
	"github.com/ghalamif/TagSync/internal/ports"
)

// MemQueue is a bounded in-memory event queue that preserves FIFO ordering.
type MemQueue struct {
	mu   sync.Mutex
	data []ports.QueuedEvent
	cap  int
}

func NewMemQueue(capacity int) *MemQueue {
	return &MemQueue{
		data: make([]ports.QueuedEvent, 0, capacity),
		cap:  capacity,
	}
}

func (q *MemQueue) Enqueue(id ports.EntryID, e domain.Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) >= q.cap {
		return false
	}
	q.data = append(q.data, ports.QueuedEvent{ID: id, Event: e})
	return true
}

func (q *MemQueue) EnqueueAll(items []ports.QueuedEvent) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data)+len(items) > q.cap {
		return false
	}
	q.data = append(q.data, items...)
	return true
}

func (q *MemQueue) DequeueBatch(max int) []ports.QueuedEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) == 0 {
		return nil
	}
	if max <= 0 || max > len(q.data) {
		max = len(q.data)
	}
	out := make([]ports.QueuedEvent, max)
	copy(out, q.data[:max])
	q.data = append(q.data[:0], q.data[max:]...)
	return out
}

func (q *MemQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.data)
}

var _ ports.EventQueue = (*MemQueue)(nil)
