package transport

import (
	"bytes"
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

type stubAddr string

func (a stubAddr) Network() string { return "stub" }
func (a stubAddr) String() string  { return string(a) }

type stubConn struct {
	stream       chan []byte
	closed       chan struct{}
	closeOnce    sync.Once
	signalClosed func()

	buf *bytes.Buffer

	clock                       clock.Clock
	readDeadline, writeDeadline time.Time
	local, remote               net.Addr

	counterpart *stubConn
}

var _ Conn = (*stubConn)(nil)

func newStubConnPair(clk clock.Clock, signalClosed func(), local, remote net.Addr) (*stubConn, *stubConn) {
	a := &stubConn{
		signalClosed: signalClosed,
		closed:       make(chan struct{}),
		buf:          bytes.NewBuffer(nil),
		stream:       make(chan []byte),
		clock:        clk,
		local:        local,
		remote:       remote,
	}
	b := &stubConn{
		signalClosed: signalClosed,
		closed:       make(chan struct{}),
		buf:          bytes.NewBuffer(nil),
		stream:       make(chan []byte),
		clock:        clk,
		local:        remote,
		remote:       local,
	}
	a.counterpart, b.counterpart = b, a
	return a, b
}

func (s *stubConn) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		close(s.counterpart.stream)
		s.signalClosed()
	})
	return nil
}

func (s *stubConn) LocalAddr() net.Addr  { return s.local }
func (s *stubConn) RemoteAddr() net.Addr { return s.remote }

func (s *stubConn) SetReadDeadLine(t time.Time)  { s.readDeadline = t }
func (s *stubConn) SetWriteDeadLine(t time.Time) { s.writeDeadline = t }

// deadline returns a channel firing at t, or nil if t is zero.
func (s *stubConn) deadline(t time.Time) (<-chan time.Time, func(), bool) {
	if t.IsZero() {
		return nil, func() {}, true
	}
	d := t.Sub(s.clock.Now())
	if d <= 0 {
		return nil, func() {}, false
	}
	timer := s.clock.Timer(d)
	return timer.C, func() { timer.Stop() }, true
}

func (s *stubConn) Read(p []byte) (n int, err error) {
	select {
	case <-s.closed:
		return 0, ErrConnClosed
	default:
	}

	if s.buf.Len() > 0 {
		// if buf is not empty, read from it.
		return s.buf.Read(p)
	}

	timeout, stop, ok := s.deadline(s.readDeadline)
	defer stop()
	if !ok {
		return 0, ErrDeadLineExceeded
	}

	select {
	case <-s.closed:
		return 0, ErrConnClosed
	case <-timeout:
		return 0, ErrDeadLineExceeded
	case b, ok := <-s.stream:
		if !ok {
			// counterpart is closed.
			return 0, io.EOF
		}
		n := copy(p, b)
		if remain := len(b) - n; remain > 0 {
			// copy didn't get all the bytes from counterpart.
			// store it for later.
			s.buf.Write(b[n:])
		}
		return n, nil
	}
}

func (s *stubConn) Write(p []byte) (n int, err error) {
	// Sending on the closed counterpart stream would panic.
	select {
	case <-s.closed:
		return 0, ErrConnClosed
	case <-s.counterpart.closed:
		return 0, ErrConnClosed
	default:
	}

	c := make([]byte, len(p))
	copy(c, p)

	timeout, stop, ok := s.deadline(s.writeDeadline)
	defer stop()
	if !ok {
		return 0, ErrDeadLineExceeded
	}

	select {
	case <-s.closed:
		return 0, ErrConnClosed
	case <-s.counterpart.closed:
		// counterpart is closed. return an error.
		return 0, ErrConnClosed
	case <-timeout:
		return 0, ErrDeadLineExceeded
	case s.counterpart.stream <- c:
		return len(c), nil
	}
}

// StubConnListener is an in-memory listener. Its Dial hands one end of a
// connected pair to the caller and the other end to Accept.
type StubConnListener struct {
	connChan chan *stubConn
	clock    clock.Clock

	m      sync.Mutex
	closed bool
	dialed []Endpoint
	wg     sync.WaitGroup
}

var (
	_ ConnListener = (*StubConnListener)(nil)
	_ ConnDialer   = (*StubConnListener)(nil)
)

func NewStubConnListener(clk clock.Clock) *StubConnListener {
	return &StubConnListener{
		connChan: make(chan *stubConn),
		clock:    clk,
	}
}

func (s *StubConnListener) Accept(ctx context.Context) (Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case conn, ok := <-s.connChan:
		if !ok {
			return nil, ErrConnListnerClosed
		}
		return conn, nil
	}
}

// Dial blocks until the connection is accepted.
func (s *StubConnListener) Dial(ctx context.Context, ep Endpoint) (Conn, error) {
	s.m.Lock()
	defer s.m.Unlock()
	if s.closed {
		return nil, ErrConnListnerClosed
	}

	s.wg.Add(2)

	toFeed, toReturn := newStubConnPair(s.clock, s.wg.Done, stubAddr(ep.Addr.String()), stubAddr("client"))

	select {
	case s.connChan <- toFeed:
	case <-ctx.Done():
		s.wg.Add(-2)
		return nil, ctx.Err()
	}

	s.dialed = append(s.dialed, ep)
	return toReturn, nil
}

// Dialed returns the endpoints dialed so far.
func (s *StubConnListener) Dialed() []Endpoint {
	s.m.Lock()
	defer s.m.Unlock()
	return append([]Endpoint(nil), s.dialed...)
}

// Close waits for every connection to be closed on both ends.
func (s *StubConnListener) Close() error {
	s.m.Lock()
	if !s.closed {
		close(s.connChan)
		s.closed = true
	}
	s.m.Unlock()

	s.wg.Wait()
	return nil
}
