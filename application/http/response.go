package http

import (
	"bytes"
	"io"
	"time"

	"http-conversation/application/http/content"
	"http-conversation/application/http/cookie"
	"http-conversation/application/http/status"
	"http-conversation/application/http/transfer"
	"http-conversation/application/util/rule"
	"http-conversation/application/util/uri"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

var ErrMalformedResponse = errors.New("malformed response")

type ParseOptions struct {
	DecodeOptions

	// Clock is used as "now" for set-cookie max-age.
	Clock clock.Clock
}

var DefaultParseOptions = ParseOptions{
	DecodeOptions: DecodeOptions{
		// Real servers are sloppy.
		AllowSoleLF:  true,
		AllowObsFold: true,
	},
	Clock: clock.New(),
}

// ParseResponse parses a complete response read from the wire for a request
// to target.
//
// The transfer coding is removed by reassembling chunks; a chunked body that
// cannot be reassembled has its size lines stripped instead. Content codings
// are removed afterwards.
func ParseResponse(raw []byte, target uri.URL, opts ParseOptions) (*Response, error) {
	if !bytes.HasPrefix(raw, []byte("HTTP/")) {
		return nil, errors.Wrap(ErrMalformedResponse, "missing HTTP/ prefix")
	}
	idx := bytes.Index(raw, rule.HeaderTerminator)
	if idx < 0 {
		return nil, errors.Wrap(ErrMalformedResponse, "missing end of headers")
	}
	head, body := raw[:idx+len(rule.HeaderTerminator)], raw[idx+len(rule.HeaderTerminator):]

	decodeOpts := opts.DecodeOptions
	decodeOpts.LowercaseNames = true

	resp := &Response{URL: target}
	if err := NewResponseDecoder(bytes.NewReader(head), decodeOpts).Decode(resp); err != nil {
		return nil, errors.Wrap(ErrMalformedResponse, err.Error())
	}

	now := opts.Clock.Now()
	for _, value := range resp.Headers.Values("set-cookie") {
		c, err := cookie.Parse(value, target.Domain, now)
		if err != nil {
			return nil, errors.Wrap(err, "parsing set-cookie")
		}
		resp.Cookies = mergeCookie(resp.Cookies, c, now)
	}

	body, err := decodeBody(resp, body)
	if err != nil {
		return nil, err
	}
	resp.Body = string(body)

	return resp, nil
}

// mergeCookie appends c unless an earlier cookie of the same name is expired
// or tombstoned, in which case c takes its place.
func mergeCookie(cookies []*cookie.Cookie, c *cookie.Cookie, now time.Time) []*cookie.Cookie {
	for i, existing := range cookies {
		if existing.Name == c.Name && (existing.IsTombstone() || existing.IsExpired(now)) {
			cookies[i] = c
			return cookies
		}
	}
	return append(cookies, c)
}

func decodeBody(resp *Response, body []byte) ([]byte, error) {
	switch {
	case resp.IsChunked():
		data, trailers, err := transfer.DecodeChunked(body)
		if err != nil {
			data = transfer.StripChunkMarkers(body)
		}
		body, resp.Trailers = data, trailers
	default:
		if n, ok := resp.ContentLength(); ok && len(body) > n {
			body = body[:n]
		}
	}

	if enc, ok := resp.Headers.Get("content-encoding"); ok {
		decoded, err := content.Decode(body, content.ParseCodings(enc))
		if err != nil {
			return nil, errors.Wrap(err, "decoding content")
		}
		body = decoded
	}

	return body, nil
}

// IsComplete reports whether raw holds a whole response, judged from its
// framing. It is false while more bytes are expected.
func IsComplete(raw []byte, method string) bool {
	idx := bytes.Index(raw, rule.HeaderTerminator)
	if idx < 0 {
		return false
	}
	head, body := raw[:idx+len(rule.HeaderTerminator)], raw[idx+len(rule.HeaderTerminator):]

	var resp Response
	if err := NewResponseDecoder(bytes.NewReader(head), DefaultParseOptions.DecodeOptions).Decode(&resp); err != nil {
		// Let the parser report it.
		return true
	}

	switch {
	case method == MethodHead || status.HasNoContent(resp.StatusCode):
		return true
	case resp.IsChunked():
		return isChunkedComplete(body)
	}

	if n, ok := resp.ContentLength(); ok {
		return len(body) >= n
	}
	// A redirect naming no content type has nothing worth waiting for.
	// Any other response without a length is read until close.
	_, typed := resp.Headers.Get("content-type")
	return !typed && status.IsRedirection(resp.StatusCode)
}

var lastChunk = []byte("0\r\n\r\n")

// isChunkedComplete reports whether body holds the last chunk and the
// end of the trailer section. Bodies that cannot be reassembled are complete
// once they end with an empty last chunk.
func isChunkedComplete(body []byte) bool {
	_, err := io.Copy(io.Discard, transfer.NewChunkedReader(bytes.NewReader(body), nil))
	if err == nil {
		return true
	}
	return bytes.Equal(body, lastChunk) || bytes.HasSuffix(body, append([]byte("\r\n"), lastChunk...))
}
