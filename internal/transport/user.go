// internal/transport/user.go
// Wraps a caller-supplied, already-connected transport so any io.ReadWriteCloser — a serial port, a pipe, a test
// double — can back an fmr.Device without a dedicated driver.

package transport

import (
	"fmt"
	"io"

	"fmrhost/internal/fmr"
)

// User adapts an io.ReadWriteCloser the caller already opened into an
// fmr.Endpoint. Configure is a no-op: the connection is live before User is
// constructed.
type User struct {
	conn io.ReadWriteCloser
}

// NewUser wraps conn. conn must already be open and ready for traffic.
func NewUser(conn io.ReadWriteCloser) *User {
	return &User{conn: conn}
}

func (u *User) Configure(hint string) error { return nil }

func (u *User) Push(p []byte) error {
	for written := 0; written < len(p); {
		n, err := u.conn.Write(p[written:])
		if err != nil {
			return fmt.Errorf("user: write: %w", err)
		}
		written += n
	}
	return nil
}

func (u *User) Pull(p []byte) error {
	_, err := io.ReadFull(u.conn, p)
	if err != nil {
		return fmt.Errorf("user: read: %w", err)
	}
	return nil
}

func (u *User) Destroy() error {
	return u.conn.Close()
}

var _ fmr.Endpoint = (*User)(nil)
