package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghalamif/TagSync/internal/domain"
)

func TestTagQueueFIFO(t *testing.T) {
	q := NewTagQueue()
	for i := uint64(1); i <= 5000; i++ {
		q.Push(domain.Tag{Identifier: i, Timestamp: domain.Time(i)})
	}
	require.Equal(t, 5000, q.Len())

	for i := uint64(1); i <= 5000; i++ {
		tag, ok := q.Pop()
		require.True(t, ok)
		require.Equal(t, i, tag.Identifier)
	}
	_, ok := q.Pop()
	assert.False(t, ok)
	assert.Equal(t, 0, q.Len())
}

func TestTagQueueInterleaved(t *testing.T) {
	q := NewTagQueue()
	var next uint64 = 1
	var want uint64 = 1
	for round := 0; round < 50; round++ {
		for i := 0; i < 40; i++ {
			q.Push(domain.Tag{Identifier: next})
			next++
		}
		for i := 0; i < 30; i++ {
			tag, ok := q.Pop()
			require.True(t, ok)
			require.Equal(t, want, tag.Identifier)
			want++
		}
	}
	assert.Equal(t, int(next-want), q.Len())
}

func TestTagQueuePopEmptyDoesNotBlock(t *testing.T) {
	q := NewTagQueue()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				q.Push(domain.Tag{Identifier: uint64(p)})
			}
		}(p)
	}

	deadline := time.Now().Add(50 * time.Millisecond)
	for time.Now().Before(deadline) {
		q.Pop()
	}
	close(stop)
	wg.Wait()

	for {
		if _, ok := q.Pop(); !ok {
			break
		}
	}

	done := make(chan bool, 1)
	go func() {
		_, ok := q.Pop()
		done <- ok
	}()
	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("pop on empty queue blocked")
	}
}

func TestTagQueuePerProducerOrder(t *testing.T) {
	q := NewTagQueue()
	const producers, perProducer = 4, 1000

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(domain.Tag{Identifier: uint64(p), Timestamp: domain.Time(i)})
			}
		}(p)
	}
	wg.Wait()

	last := make(map[uint64]int)
	for p := 0; p < producers; p++ {
		last[uint64(p)] = -1
	}
	count := 0
	for {
		tag, ok := q.Pop()
		if !ok {
			break
		}
		count++
		require.Greater(t, int(tag.Timestamp), last[tag.Identifier])
		last[tag.Identifier] = int(tag.Timestamp)
	}
	assert.Equal(t, producers*perProducer, count)
}
