package client

import (
	"bytes"
	"context"
	"log/slog"
	"net/netip"
	"strconv"

	"http-conversation/application/http"
	"http-conversation/application/http/cookie"
	"http-conversation/application/http/status"
	"http-conversation/application/util/blob"
	"http-conversation/application/util/domain"
	"http-conversation/application/util/links"
	"http-conversation/application/util/uri"
	"http-conversation/transport"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// Connection is one exchange of a conversation. Every redirect hop gets its own.
type Connection struct {
	Name    string
	URL     uri.URL
	Method  string
	Body    []byte
	Headers http.Headers

	// Referer sent with the request, empty if none.
	Referer string

	Request  http.Request
	Response *http.Response

	// Retries is the number of failed attempts before the one that succeeded.
	Retries uint
}

// Request describes what to send. Zero values fall back to a GET without body.
type Request struct {
	// Name labels the exchange in blob logs. Defaults to a name derived from the URL.
	Name    string
	Method  string
	Body    []byte
	Headers http.Headers
}

// Conversation drives exchanges with one server at a time over a single
// connection, following redirects and keeping cookies.
// It is not safe for concurrent use.
type Conversation struct {
	opts Options

	logger *slog.Logger
	blobs  blob.Logger
	clock  clock.Clock

	lookuper   domain.Lookuper
	connDialer transport.ConnDialer
	limiter    *rate.Limiter

	jar     *cookie.Jar
	conn    *conn
	history []*Connection

	received uint64
}

func New(
	d transport.ConnDialer,
	lookuper domain.Lookuper,
	blobs blob.Logger,
	logger *slog.Logger,
	clock clock.Clock,
	opts Options,
) *Conversation {
	if blobs == nil {
		blobs = blob.Nop
	}

	limit := rate.Inf
	if opts.RequestInterval > 0 {
		limit = rate.Every(opts.RequestInterval)
	}

	return &Conversation{
		opts:       opts,
		logger:     logger,
		blobs:      blobs,
		clock:      clock,
		lookuper:   lookuper,
		connDialer: d,
		limiter:    rate.NewLimiter(limit, 1),
		jar:        cookie.NewJar(clock),
	}
}

// Get sends a GET request to target.
func (c *Conversation) Get(ctx context.Context, target Target) (*Connection, error) {
	return c.Send(ctx, target, Request{Method: http.MethodGet})
}

// Post sends body to target.
func (c *Conversation) Post(ctx context.Context, target Target, body []byte, headers http.Headers) (*Connection, error) {
	return c.Send(ctx, target, Request{Method: http.MethodPost, Body: body, Headers: headers})
}

// Send performs request against target and follows redirects.
// The returned Connection is the last hop; it is returned along with
// [*TooManyRedirectsError] so the final response can still be inspected.
func (c *Conversation) Send(ctx context.Context, target Target, request Request) (*Connection, error) {
	var base *uri.URL
	if last := c.Current(); last != nil {
		base = &last.URL
	}

	u, err := target.resolve(base)
	if err != nil {
		return nil, errors.Wrap(err, "resolving target")
	}

	if request.Method == "" {
		request.Method = http.MethodGet
	}
	if request.Name == "" {
		request.Name = links.Name(u)
	}

	conn := &Connection{
		Name:    request.Name,
		URL:     u,
		Method:  request.Method,
		Body:    request.Body,
		Headers: request.Headers,
	}

	for redirectsLeft := c.opts.MaxReferrals; ; redirectsLeft-- {
		c.history = append(c.history, conn)

		if err := c.exchange(ctx, conn); err != nil {
			return conn, err
		}

		location, ok := conn.Response.Location()
		if !ok || location == "" {
			return conn, nil
		}
		if redirectsLeft == 0 {
			return conn, &TooManyRedirectsError{URL: conn.URL.String(), Limit: c.opts.MaxReferrals}
		}

		next, err := c.redirect(conn, location)
		if err != nil {
			return conn, err
		}
		conn = next
	}
}

func (c *Conversation) redirect(from *Connection, location string) (*Connection, error) {
	u, err := uri.Resolve(from.URL, location)
	if err != nil {
		return nil, errors.Wrapf(err, "following redirect from %s", from.URL)
	}

	policy, _ := from.Response.Headers.Get("referrer-policy")

	next := &Connection{
		Name:    from.Name,
		URL:     u,
		Method:  http.MethodGet,
		Referer: ParseReferrerPolicy(policy).Referrer(from.URL, u),
	}
	// Caller headers describe the original request. They follow only a
	// repeated request to the same origin.
	if status.KeepsMethod(from.Response.StatusCode) {
		next.Method, next.Body = from.Method, from.Body
		if from.URL.SameOrigin(u) {
			next.Headers = from.Headers
		}
	}

	c.logger.Info("following redirect",
		slog.String("from", from.URL.String()),
		slog.String("to", u.String()),
		slog.Uint64("status", uint64(from.Response.StatusCode)),
		slog.String("method", next.Method),
	)

	return next, nil
}

// exchange sends conn's request and parses the response, retrying up to
// MaxRetries attempts. Every retry starts on a fresh connection.
func (c *Conversation) exchange(ctx context.Context, conn *Connection) error {
	request, err := http.NewRequest(conn.Method, conn.URL, conn.Body, http.RequestOptions{
		Referer:         conn.Referer,
		Cookie:          c.jar.CookieHeaderValue(conn.URL),
		Headers:         conn.Headers,
		ExtendedHeaders: c.opts.Send.ExtendedHeaders,
		AcceptEncoding:  c.opts.Send.AcceptEncoding,
		KeepAlive:       c.opts.KeepAlive,
		UserAgent:       c.opts.Send.UserAgent,
	})
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	wire, err := http.EncodeRequest(request)
	if err != nil {
		return errors.Wrap(err, "encoding request")
	}
	conn.Request = request

	label := strconv.Itoa(len(c.history)-1) + conn.Name + conn.Method
	c.blobs.Log(label+"_request", wire)

	parseOpts := http.ParseOptions{DecodeOptions: c.opts.Receive.Decode, Clock: c.clock}

	attempts := max(c.opts.MaxRetries, 1)

	var lastErr error
	for attempt := uint(0); attempt < attempts; attempt++ {
		if attempt > 0 {
			conn.Retries++
			c.logger.Info("retrying",
				slog.String("url", conn.URL.String()),
				slog.Uint64("attempt", uint64(attempt+1)),
				slog.String("cause", lastErr.Error()),
			)
			c.closeConn()
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return errors.Wrap(err, "waiting for request interval")
		}

		if err := c.connect(ctx, conn.URL); err != nil {
			if errors.Is(err, ErrHostResolution) || ctx.Err() != nil {
				return err
			}
			lastErr = err
			continue
		}

		raw, err := c.conn.roundtrip(ctx, request, wire)
		if err != nil {
			if ctx.Err() != nil {
				c.closeConn()
				return err
			}
			lastErr = err
			continue
		}
		c.blobs.Log(label+"_packet", raw)

		response, err := http.ParseResponse(raw, conn.URL, parseOpts)
		if err != nil {
			lastErr = err
			continue
		}

		c.received += uint64(len(raw))
		c.logger.Debug("response received",
			slog.String("url", conn.URL.String()),
			slog.Uint64("status", uint64(response.StatusCode)),
			slog.Int("size", len(raw)),
			slog.Uint64("total_received", c.received),
		)
		c.blobs.Log(label+"_headers", headerBlock(response.Headers))
		c.blobs.Log(label+"_body", []byte(response.Body))

		c.storeCookies(response.Cookies)

		if !response.KeepAlive() || !c.opts.KeepAlive {
			c.closeConn()
		}

		conn.Response = response
		return nil
	}

	c.closeConn()
	return &ConnectionError{URL: conn.URL.String(), Attempts: attempts, Err: lastErr}
}

func (c *Conversation) storeCookies(cookies []*cookie.Cookie) {
	for _, ck := range cookies {
		if err := c.jar.AddOrRemove(ck); err != nil {
			// Removing an unknown cookie is harmless.
			c.logger.Debug("cookie not stored", slog.String("cookie", ck.Name), slog.String("error", err.Error()))
		}
	}
}

// connect makes c.conn point at the endpoint serving u, reusing the
// current connection when it is still alive and serves the same endpoint.
func (c *Conversation) connect(ctx context.Context, u uri.URL) error {
	secure := u.IsSecure() || c.opts.ForceSecure

	defaultPort := uint16(80)
	if secure {
		defaultPort = c.opts.Port
	}
	port, err := transport.ParsePort(u.Port, defaultPort)
	if err != nil {
		return errors.Wrapf(err, "connecting to %s", u)
	}

	key := connKey{domain: u.Domain, port: port, secure: secure}
	if c.conn != nil && c.conn.reusableFor(key) {
		return nil
	}
	c.closeConn()

	if c.opts.Timeout.Connect > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout.Connect)
		defer cancel()
	}

	addr, err := c.lookup(ctx, u.Domain)
	if err != nil {
		return err
	}

	ep := transport.NewEndpoint(addr, port, u.Domain, secure)
	tConn, err := c.connDialer.Dial(ctx, ep)
	if err != nil {
		return errors.Wrapf(err, "dialing %s", ep)
	}

	c.logger.Info("connected", slog.String("endpoint", ep.String()))

	c.conn = &conn{
		con:       tConn,
		key:       key,
		keepAlive: true,
		logger:    c.logger,
		clock:     c.clock,
		opts:      c.opts,
	}
	return nil
}

func (c *Conversation) lookup(ctx context.Context, host string) (netip.Addr, error) {
	if addr, err := netip.ParseAddr(host); err == nil {
		return addr, nil
	}

	addrs, err := c.lookuper.LookupIP(ctx, host)
	if err != nil {
		return netip.Addr{}, errors.Wrapf(ErrHostResolution, "%s: %v", host, err)
	}
	if len(addrs) == 0 {
		return netip.Addr{}, errors.Wrapf(ErrHostResolution, "%s: no address", host)
	}

	// Lets simply use the first address.
	return addrs[0], nil
}

func (c *Conversation) closeConn() {
	if c.conn == nil {
		return
	}
	if err := c.conn.close(); err != nil {
		c.logger.Debug("closing connection", slog.String("error", err.Error()))
	}
	c.conn = nil
}

// Close closes the connection, if any. The conversation stays usable.
func (c *Conversation) Close() error {
	c.closeConn()
	return nil
}

// Jar returns the cookies collected so far.
func (c *Conversation) Jar() *cookie.Jar { return c.jar }

// History returns every exchange in the order they were made.
func (c *Conversation) History() []*Connection {
	return append([]*Connection(nil), c.history...)
}

// Current returns the last exchange, or nil before the first one.
func (c *Conversation) Current() *Connection {
	if len(c.history) == 0 {
		return nil
	}
	return c.history[len(c.history)-1]
}

// BytesReceived is the size of every parsed response so far.
func (c *Conversation) BytesReceived() uint64 { return c.received }

func headerBlock(headers http.Headers) []byte {
	var buf bytes.Buffer
	for _, f := range headers {
		buf.Write(f.Text())
		buf.WriteString("\r\n")
	}
	return buf.Bytes()
}
