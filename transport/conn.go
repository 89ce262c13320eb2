// Package transport opens byte streams to remote endpoints.
package transport

import (
	"context"
	"net"
	"net/netip"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrConnClosed        = errors.New("connection is closed")
	ErrConnListnerClosed = errors.New("conn listener is closed")
	ErrDeadLineExceeded  = errors.New("deadline exceeded")
)

type Conn interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Close() error

	LocalAddr() net.Addr
	RemoteAddr() net.Addr

	SetReadDeadLine(t time.Time)
	SetWriteDeadLine(t time.Time)
}

type ConnListener interface {
	Accept(ctx context.Context) (Conn, error)
	Close() error
}

type ConnDialer interface {
	Dial(ctx context.Context, ep Endpoint) (Conn, error)
}

// Endpoint is where to connect and how.
type Endpoint struct {
	Addr netip.AddrPort

	// ServerName is the name verified against the server certificate
	// and sent as SNI.
	ServerName string
	Secure     bool
}

func (e Endpoint) String() string {
	scheme := "tcp"
	if e.Secure {
		scheme = "tls"
	}
	return scheme + "://" + e.ServerName + "@" + e.Addr.String()
}

// NewEndpoint joins addr and port.
func NewEndpoint(addr netip.Addr, port uint16, serverName string, secure bool) Endpoint {
	return Endpoint{
		Addr:       netip.AddrPortFrom(addr, port),
		ServerName: serverName,
		Secure:     secure,
	}
}

// ParsePort parses a decimal port. An empty string yields def.
func ParsePort(s string, def uint16) (uint16, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil || n == 0 {
		return 0, errors.Errorf("invalid port: %q", s)
	}
	return uint16(n), nil
}

// IsTimeout reports whether err was caused by an expired deadline.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDeadLineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
