package tcptag

import (
	"errors"
	"io"
	"net"
	"sync/atomic"

	"github.com/ghalamif/TagSync/internal/ports"
)

// session decodes one connection's byte stream into tags. It is owned by the
// server's arena and marks itself done when the connection ends.
type session struct {
	id          uint64
	conn        net.Conn
	queue       ports.TagQueue
	clock       ports.Clock
	obs         ports.Observability
	ignoreFlags bool

	warned bool
	done   atomic.Bool
}

func (s *session) serve() {
	defer s.done.Store(true)
	defer s.conn.Close()

	var frame [FrameSize]byte
	for {
		if _, err := io.ReadFull(s.conn, frame[:]); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.obs.LogInfo("tag_session_read_stopped",
					ports.Field{Key: "session", Value: s.id},
					ports.Field{Key: "reason", Value: err.Error()})
			}
			return
		}
		// stamp as soon as the frame is complete, before anything else is read
		now := s.clock.Now()

		tag, replaced := DecodeFrame(&frame, s.ignoreFlags).Resolve(now)
		if replaced {
			s.obs.IncCounter("tagsync_stamp_replaced_total", 1)
			if !s.warned {
				s.warned = true
				s.obs.LogWarn("tag_timestamp_not_fixed_point",
					ports.Field{Key: "session", Value: s.id},
					ports.Field{Key: "remote", Value: s.conn.RemoteAddr().String()},
					ports.Field{Key: "identifier", Value: tag.Identifier})
			}
		}

		s.queue.Push(tag)
		s.obs.IncCounter("tagsync_tags_received_total", 1)
	}
}
