package tcptag

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/ghalamif/TagSync/internal/ports"
)

// ErrBind is returned when the tagging port cannot be reserved.
var ErrBind = errors.New("tcptag: bind failed")

// Config describes where the tagging server listens.
type Config struct {
	Bind        string `yaml:"bind"`
	Port        int    `yaml:"port"`
	IgnoreFlags bool   `yaml:"ignore_flags"`
}

// Address returns the host:port the server binds to.
func (c Config) Address() string {
	host := c.Bind
	if host == "" {
		host = "0.0.0.0"
	}
	return net.JoinHostPort(host, strconv.Itoa(c.Port))
}

// Server accepts tagging connections and runs one session per client.
type Server struct {
	ln          net.Listener
	queue       ports.TagQueue
	clock       ports.Clock
	obs         ports.Observability
	ignoreFlags bool

	mu       sync.Mutex
	sessions map[uint64]*session
	nextID   uint64
	stopped  bool
	wg       sync.WaitGroup
}

// NewServer binds and listens immediately. The port is reserved exclusively:
// a second server on the same port fails with an error wrapping ErrBind.
func NewServer(cfg Config, q ports.TagQueue, clock ports.Clock, obs ports.Observability) (*Server, error) {
	if q == nil || clock == nil || obs == nil {
		return nil, fmt.Errorf("tcptag: queue, clock and observability are required")
	}

	lc := net.ListenConfig{Control: exclusiveBind}
	addr := cfg.Address()
	ln, err := lc.Listen(context.Background(), "tcp4", addr)
	if err != nil {
		return nil, fmt.Errorf("%w on %s: %w", ErrBind, addr, err)
	}

	return &Server{
		ln:          ln,
		queue:       q,
		clock:       clock,
		obs:         obs,
		ignoreFlags: cfg.IgnoreFlags,
		sessions:    make(map[uint64]*session),
	}, nil
}

// Addr returns the bound listener address.
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Run accepts connections until Stop is called. Accept failures are logged
// and do not end the loop. Run returns once every session has finished.
func (s *Server) Run() error {
	defer s.wg.Wait()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if s.isStopped() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.obs.LogError("tag_accept_failed", err)
			time.Sleep(5 * time.Millisecond)
			continue
		}
		s.admit(conn)
	}
}

// Stop closes the listener and every live connection. It is safe to call
// from any goroutine and more than once.
func (s *Server) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	for id, sess := range s.sessions {
		_ = sess.conn.Close()
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	_ = s.ln.Close()
	s.obs.SetGauge("tagsync_sessions_active", 0)
}

// Sessions returns the number of sessions that have not finished.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	return len(s.sessions)
}

func (s *Server) admit(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		_ = conn.Close()
		return
	}
	s.sweepLocked()

	s.nextID++
	sess := &session{
		id:          s.nextID,
		conn:        conn,
		queue:       s.queue,
		clock:       s.clock,
		obs:         s.obs,
		ignoreFlags: s.ignoreFlags,
	}
	s.sessions[sess.id] = sess

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		sess.serve()
		s.release()
	}()

	s.obs.IncCounter("tagsync_connections_total", 1)
	s.obs.SetGauge("tagsync_sessions_active", float64(len(s.sessions)))
	s.obs.LogInfo("tag_session_opened",
		ports.Field{Key: "session", Value: sess.id},
		ports.Field{Key: "remote", Value: conn.RemoteAddr().String()})
}

// release sweeps finished sessions once a session goroutine has returned.
func (s *Server) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.sweepLocked()
	s.obs.SetGauge("tagsync_sessions_active", float64(len(s.sessions)))
}

func (s *Server) sweepLocked() {
	for id, sess := range s.sessions {
		if sess.done.Load() {
			delete(s.sessions, id)
		}
	}
}

func (s *Server) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}
