package tcptag

import (
	"net"
	"sync"

	"github.com/ghalamif/TagSync/internal/adapters/queue"
	"github.com/ghalamif/TagSync/internal/domain"
	"github.com/ghalamif/TagSync/internal/ports"
)

// Stream owns a tag queue, a server bound to it and the goroutine running the
// server. It is the only thing the acquisition side talks to.
type Stream struct {
	queue  *queue.TagQueue
	server *Server
	done   chan struct{}
	once   sync.Once
}

// NewStream binds the tagging port and starts serving. A bind failure is
// returned as is; no goroutine is left behind in that case.
func NewStream(cfg Config, clock ports.Clock, obs ports.Observability) (*Stream, error) {
	q := queue.NewTagQueue()
	srv, err := NewServer(cfg, q, clock, obs)
	if err != nil {
		return nil, err
	}

	s := &Stream{
		queue:  q,
		server: srv,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		if err := srv.Run(); err != nil {
			obs.LogError("tag_server_exited", err)
		}
	}()

	obs.LogInfo("tag_stream_listening", ports.Field{Key: "addr", Value: srv.Addr().String()})
	return s, nil
}

// Pop removes the oldest tag. It never blocks.
func (s *Stream) Pop() (domain.Tag, bool) {
	return s.queue.Pop()
}

// Inject queues a tag produced in-process, bypassing the network.
func (s *Stream) Inject(t domain.Tag) {
	s.queue.Push(t)
}

// Len reports the number of tags waiting to be popped.
func (s *Stream) Len() int { return s.queue.Len() }

func (s *Stream) Addr() net.Addr { return s.server.Addr() }

// Sessions reports the number of live client connections.
func (s *Stream) Sessions() int { return s.server.Sessions() }

// Close stops the server and waits for its goroutine and all sessions to exit.
func (s *Stream) Close() error {
	s.once.Do(func() {
		s.server.Stop()
		<-s.done
	})
	return nil
}

var _ ports.TagSource = (*Stream)(nil)
