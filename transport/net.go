package transport

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net"
	"time"

	"github.com/pkg/errors"
)

type DialOptions struct {
	// Timeout bounds connecting and the TLS handshake. Zero means no limit.
	Timeout time.Duration

	// KeepAlive is the TCP keep-alive period.
	KeepAlive time.Duration

	// TLSConfig is cloned for every secure dial; ServerName is overwritten.
	TLSConfig *tls.Config
}

var DefaultDialOptions = DialOptions{
	Timeout:   10 * time.Second,
	KeepAlive: 30 * time.Second,
}

// NetDialer dials TCP through the operating system and optionally wraps the
// connection with TLS.
type NetDialer struct {
	opts   DialOptions
	logger *slog.Logger
}

var _ ConnDialer = (*NetDialer)(nil)

func NewNetDialer(opts DialOptions, logger *slog.Logger) *NetDialer {
	return &NetDialer{opts: opts, logger: logger}
}

func (d *NetDialer) Dial(ctx context.Context, ep Endpoint) (Conn, error) {
	if d.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.Timeout)
		defer cancel()
	}

	nd := net.Dialer{KeepAlive: d.opts.KeepAlive}
	c, err := nd.DialContext(ctx, "tcp", ep.Addr.String())
	if err != nil {
		return nil, errors.Wrapf(err, "dialing %s", ep)
	}

	if ep.Secure {
		cfg := &tls.Config{MinVersion: tls.VersionTLS12}
		if d.opts.TLSConfig != nil {
			cfg = d.opts.TLSConfig.Clone()
		}
		cfg.ServerName = ep.ServerName

		tc := tls.Client(c, cfg)
		if err := tc.HandshakeContext(ctx); err != nil {
			c.Close()
			return nil, errors.Wrapf(err, "tls handshake with %s", ep)
		}

		state := tc.ConnectionState()
		d.logger.Debug("tls established",
			slog.String("endpoint", ep.String()),
			slog.String("version", tls.VersionName(state.Version)),
			slog.String("cipher_suite", tls.CipherSuiteName(state.CipherSuite)),
		)
		c = tc
	}

	return &netConn{conn: c}, nil
}

type netConn struct{ conn net.Conn }

var _ Conn = (*netConn)(nil)

func (c *netConn) Read(p []byte) (int, error) {
	n, err := c.conn.Read(p)
	if err != nil && IsTimeout(err) {
		return n, errors.Wrap(ErrDeadLineExceeded, err.Error())
	}
	return n, err
}

func (c *netConn) Write(p []byte) (int, error) {
	n, err := c.conn.Write(p)
	if err != nil && IsTimeout(err) {
		return n, errors.Wrap(ErrDeadLineExceeded, err.Error())
	}
	return n, err
}

func (c *netConn) Close() error { return c.conn.Close() }

func (c *netConn) LocalAddr() net.Addr  { return c.conn.LocalAddr() }
func (c *netConn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

func (c *netConn) SetReadDeadLine(t time.Time)  { _ = c.conn.SetReadDeadline(t) }
func (c *netConn) SetWriteDeadLine(t time.Time) { _ = c.conn.SetWriteDeadline(t) }

// NetListener adapts a [net.Listener], which tests use to serve a real socket.
type NetListener struct{ l net.Listener }

var _ ConnListener = (*NetListener)(nil)

func NewNetListener(l net.Listener) *NetListener { return &NetListener{l: l} }

// Accept waits for a connection. Cancelling ctx does not interrupt it;
// close the listener instead.
func (l *NetListener) Accept(ctx context.Context) (Conn, error) {
	c, err := l.l.Accept()
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			return nil, ErrConnListnerClosed
		}
		return nil, errors.Wrap(err, "accepting")
	}
	return &netConn{conn: c}, nil
}

func (l *NetListener) Addr() net.Addr { return l.l.Addr() }
func (l *NetListener) Close() error   { return l.l.Close() }
