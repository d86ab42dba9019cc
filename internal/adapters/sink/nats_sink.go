package sink

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/ghalamif/TagSync/internal/domain"
	"github.com/ghalamif/TagSync/internal/ports"
)

// Publisher is the subset of *nats.Conn used by NATSSink.
type Publisher interface {
	Publish(subject string, data []byte) error
}

type flusher interface {
	Flush() error
}

// NATSSink publishes one JSON message per event on a fixed subject.
type NATSSink struct {
	pub     Publisher
	subject string
}

func NewNATSSink(pub Publisher, subject string) *NATSSink {
	return &NATSSink{pub: pub, subject: subject}
}

// ConnectNATS dials the server at url with a client name.
func ConnectNATS(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(url, nats.Name(name), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	return nc, nil
}

func (n *NATSSink) Name() string { return "nats" }

func (n *NATSSink) WriteBatch(events []domain.Event) error {
	for _, e := range events {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal event %d: %w", e.Seq, err)
		}
		if err := n.pub.Publish(n.subject, data); err != nil {
			return fmt.Errorf("publish %s: %w", n.subject, err)
		}
	}
	if f, ok := n.pub.(flusher); ok && len(events) > 0 {
		return f.Flush()
	}
	return nil
}

var _ ports.Sink = (*NATSSink)(nil)
