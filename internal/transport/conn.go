// Package transport adapts raw TCP connections for protocol sessions:
// per-operation deadlines and a uniform timeout error.
package transport

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrTimeout is returned when a peer sends no data within the
// configured window. The session driving the connection treats it as
// an abort.
var ErrTimeout = errors.New("transport: connection timed out")

// Conn wraps a net.Conn, arming a fresh deadline before every read and
// write so a stalled peer cannot hold a session open forever.
type Conn struct {
	conn    net.Conn
	timeout time.Duration
}

func WithTimeout(conn net.Conn, timeout time.Duration) *Conn {
	return &Conn{conn: conn, timeout: timeout}
}

func (c *Conn) Read(p []byte) (int, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	n, err := c.conn.Read(p)
	return n, mapTimeout(err)
}

func (c *Conn) Write(p []byte) (int, error) {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	n, err := c.conn.Write(p)
	return n, mapTimeout(err)
}

func (c *Conn) Close() error {
	return c.conn.Close()
}

// RemoteAddr exposes the peer address for logging.
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// mapTimeout folds the net package's timeout classification into
// ErrTimeout while keeping the original error wrapped.
func mapTimeout(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
