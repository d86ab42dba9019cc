package tcptag

import (
	"fmt"
	"net"
	"time"

	"github.com/ghalamif/TagSync/internal/domain"
)

// Client is a tagging producer: it writes frames to a tagging server.
type Client struct {
	conn net.Conn
}

// Dial connects to a tagging server at addr (host:port).
func Dial(addr string, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("tcp4", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("tcptag dial %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// Send writes a tag asking the server to stamp it on receipt.
func (c *Client) Send(identifier uint64) error {
	return c.SendTag(domain.Tag{Identifier: identifier})
}

// SendTag writes one complete frame.
func (c *Client) SendTag(t domain.Tag) error {
	frame := EncodeFrame(t)
	if _, err := c.conn.Write(frame[:]); err != nil {
		return fmt.Errorf("tcptag send: %w", err)
	}
	return nil
}

// Write sends raw bytes; used to exercise partial frames.
func (c *Client) Write(p []byte) (int, error) {
	return c.conn.Write(p)
}

func (c *Client) Close() error {
	return c.conn.Close()
}
