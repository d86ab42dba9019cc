package queue

import (
	"sync"

	"github.com/ghalamif/TagSync/internal/domain"
	"github.com/ghalamif/TagSync/internal/ports"
)

// TagQueue is an unbounded FIFO of received tags. Every operation holds the
// mutex for its own duration only; Pop returns immediately when empty.
type TagQueue struct {
	mu   sync.Mutex
	data []domain.Tag
	head int
}

func NewTagQueue() *TagQueue {
	return &TagQueue{}
}

func (q *TagQueue) Push(t domain.Tag) {
	q.mu.Lock()
	q.data = append(q.data, t)
	q.mu.Unlock()
}

func (q *TagQueue) Pop() (domain.Tag, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head == len(q.data) {
		return domain.Tag{}, false
	}
	t := q.data[q.head]
	q.head++
	if q.head == len(q.data) {
		// drained: reuse the backing array
		q.data = q.data[:0]
		q.head = 0
	} else if q.head >= 1024 && q.head*2 >= len(q.data) {
		n := copy(q.data, q.data[q.head:])
		q.data = q.data[:n]
		q.head = 0
	}
	return t, true
}

func (q *TagQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.data) - q.head
}

var _ ports.TagQueue = (*TagQueue)(nil)
