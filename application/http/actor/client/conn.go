package client

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"time"

	"http-conversation/application/http"
	"http-conversation/application/util/rule"
	"http-conversation/transport"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

// connKey is what a connection is reused for.
type connKey struct {
	domain string
	port   uint16
	secure bool
}

type conn struct {
	con transport.Conn
	key connKey

	// keepAlive is cleared once the connection cannot take another request.
	keepAlive bool

	logger *slog.Logger
	clock  clock.Clock
	opts   Options
}

func (c *conn) reusableFor(key connKey) bool {
	return c.keepAlive && c.key == key
}

// roundtrip writes request and reads until the response looks complete,
// the peer closes the connection or a read times out. A timeout is not an
// error; whatever was received is returned.
func (c *conn) roundtrip(ctx context.Context, request http.Request, wire []byte) ([]byte, error) {
	if c.opts.Timeout.Receive > 0 {
		c.con.SetWriteDeadLine(c.clock.Now().Add(c.opts.Timeout.Receive))
	}
	if _, err := c.con.Write(wire); err != nil {
		c.keepAlive = false
		return nil, errors.Wrap(err, "writing request")
	}

	var responseDeadline time.Time
	if c.opts.Timeout.Response > 0 {
		responseDeadline = c.clock.Now().Add(c.opts.Timeout.Response)
	}

	size := c.opts.Receive.BufferSize
	if size <= 0 {
		size = 4096
	}
	chunk := make([]byte, size)

	var buf bytes.Buffer
	for {
		if err := ctx.Err(); err != nil {
			c.keepAlive = false
			return nil, err
		}

		c.con.SetReadDeadLine(c.readDeadline(responseDeadline))

		n, err := c.con.Read(chunk)
		buf.Write(chunk[:n])

		if err != nil {
			// The connection is in an unknown state from here.
			c.keepAlive = false

			switch {
			case transport.IsTimeout(err):
				c.logger.Warn("receive timed out, using what was received",
					slog.String("url", request.URL.String()),
					slog.Int("received", buf.Len()),
				)
				return buf.Bytes(), nil
			case errors.Is(err, io.EOF):
				return buf.Bytes(), nil
			}
			return nil, errors.Wrap(err, "reading response")
		}

		if http.IsComplete(buf.Bytes(), request.Method) || htmlClosed(buf.Bytes()) {
			return buf.Bytes(), nil
		}
	}
}

func (c *conn) readDeadline(responseDeadline time.Time) time.Time {
	var deadline time.Time
	if c.opts.Timeout.Receive > 0 {
		deadline = c.clock.Now().Add(c.opts.Timeout.Receive)
	}
	if !responseDeadline.IsZero() && (deadline.IsZero() || responseDeadline.Before(deadline)) {
		deadline = responseDeadline
	}
	return deadline
}

func (c *conn) close() error {
	c.keepAlive = false
	return c.con.Close()
}

var (
	htmlOpen  = []byte("<html")
	htmlClose = []byte("</html>")
)

// htmlClosed reports whether a response without length framing carries an
// html document whose closing tag has arrived.
func htmlClosed(raw []byte) bool {
	idx := bytes.Index(raw, rule.HeaderTerminator)
	if idx < 0 {
		return false
	}
	head := bytes.ToLower(raw[:idx])
	if bytes.Contains(head, []byte("\ncontent-length:")) || bytes.Contains(head, []byte("chunked")) {
		return false
	}

	body := bytes.ToLower(raw[idx+len(rule.HeaderTerminator):])
	open := bytes.Index(body, htmlOpen)
	return open >= 0 && bytes.Contains(body[open:], htmlClose)
}
