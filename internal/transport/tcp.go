// internal/transport/tcp.go
// TCP transport for devices reachable over the network (e.g. a bridge
// process relaying to a USB or serial device on another host).

package transport

import (
	"fmt"
	"log"
	"net"
	"time"

	"fmrhost/internal/fmr"
)

// TCP implements fmr.Endpoint over a single persistent connection, dialed
// lazily on Configure.
type TCP struct {
	host string
	port int
	dial time.Duration
	rw   time.Duration

	conn net.Conn
}

// NewTCP returns an endpoint that dials host:port when Configure is
// called. dialTimeout bounds the connection attempt; rwTimeout bounds each
// individual Push/Pull.
func NewTCP(host string, port int, dialTimeout, rwTimeout time.Duration) *TCP {
	return &TCP{host: host, port: port, dial: dialTimeout, rw: rwTimeout}
}

// Configure dials the configured host:port, or hint if non-empty (a
// "host:port" override).
func (t *TCP) Configure(hint string) error {
	addr := net.JoinHostPort(t.host, fmt.Sprintf("%d", t.port))
	if hint != "" {
		addr = hint
	}
	conn, err := net.DialTimeout("tcp", addr, t.dial)
	if err != nil {
		return fmt.Errorf("tcp: dial %s: %w", addr, err)
	}
	t.conn = conn
	log.Printf("tcp: connected to %s", addr)
	return nil
}

// Push writes p in full, retrying short writes until the buffer is
// exhausted or an error occurs.
func (t *TCP) Push(p []byte) error {
	if t.conn == nil {
		return fmt.Errorf("tcp: not configured")
	}
	if t.rw > 0 {
		if err := t.conn.SetWriteDeadline(time.Now().Add(t.rw)); err != nil {
			return fmt.Errorf("tcp: set write deadline: %w", err)
		}
	}
	for written := 0; written < len(p); {
		n, err := t.conn.Write(p[written:])
		if err != nil {
			return fmt.Errorf("tcp: write: %w", err)
		}
		written += n
	}
	log.Printf("tcp: wrote %d bytes", len(p))
	return nil
}

// Pull reads exactly len(p) bytes, blocking across multiple reads if the
// peer trickles the response (fmr.Endpoint's exact-length contract).
func (t *TCP) Pull(p []byte) error {
	if t.conn == nil {
		return fmt.Errorf("tcp: not configured")
	}
	if t.rw > 0 {
		if err := t.conn.SetReadDeadline(time.Now().Add(t.rw)); err != nil {
			return fmt.Errorf("tcp: set read deadline: %w", err)
		}
	}
	for read := 0; read < len(p); {
		n, err := t.conn.Read(p[read:])
		if err != nil {
			return fmt.Errorf("tcp: read: %w", err)
		}
		read += n
	}
	log.Printf("tcp: read %d bytes", len(p))
	return nil
}

// Destroy closes the connection. Safe to call if Configure never dialed.
func (t *TCP) Destroy() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	log.Printf("tcp: connection closed")
	return err
}

var _ fmr.Endpoint = (*TCP)(nil)
