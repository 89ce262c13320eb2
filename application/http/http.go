package http

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"http-conversation/application/http/cookie"
	"http-conversation/application/http/transfer"
	"http-conversation/application/util/rule"
	"http-conversation/application/util/uri"
	sliceutil "http-conversation/lib/slice"

	"github.com/pkg/errors"
)

type Method = string

const (
	MethodGet     Method = "GET"
	MethodHead    Method = "HEAD"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodDelete  Method = "DELETE"
	MethodOptions Method = "OPTIONS"
)

type RequestLine struct {
	Method  string
	Target  string
	Version Version
}

// Request is a request ready to be written on the wire.
// Headers keep the order they are sent in.
type Request struct {
	RequestLine
	URL     uri.URL
	Headers Headers

	Body []byte
}

type StatusLine struct {
	Version      Version
	StatusCode   uint
	ReasonPhrase string
}

type Response struct {
	StatusLine
	URL uri.URL

	// Headers names are lower-cased.
	Headers Headers
	// Body is the payload after transfer and content codings are removed.
	// Every byte is kept as is, no character set is applied.
	Body string

	// Cookies from set-cookie headers, tagged with the domain of URL.
	Cookies  []*cookie.Cookie
	Trailers []transfer.Field
}

// Location returns the location header.
func (r *Response) Location() (string, bool) { return r.Headers.Get("location") }

// KeepAlive reports whether the connection may carry another request.
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-9.3
func (r *Response) KeepAlive() bool {
	conn, ok := r.Headers.Get("connection")
	if ok && hasToken(conn, "close") {
		return false
	}
	if r.Version == (Version{1, 0}) {
		return ok && hasToken(conn, "keep-alive")
	}
	return true
}

func (r *Response) IsChunked() bool {
	te, ok := r.Headers.Get("transfer-encoding")
	return ok && hasToken(te, transfer.CodingChunked)
}

// ContentLength returns the content-length header.
// ok is false when it is missing or not a number.
func (r *Response) ContentLength() (n int, ok bool) {
	return contentLength(r.Headers)
}

func contentLength(h Headers) (int, bool) {
	raw, ok := h.Get("content-length")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func hasToken(list, token string) bool {
	for _, elem := range strings.Split(list, ",") {
		if strings.EqualFold(strings.TrimSpace(elem), token) {
			return true
		}
	}
	return false
}

// Version is [major, minor].
type Version [2]uint

var Version11 = Version{1, 1}

var ErrMalformedVersion = errors.New("malformed http version")

// ParseVersion parses "HTTP/x.y", where x and y are single digits.
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.3
func ParseVersion(b []byte) (Version, error) {
	const prefix = "HTTP/"
	if len(b) != len(prefix)+3 || !bytes.HasPrefix(b, []byte(prefix)) || b[len(prefix)+1] != '.' {
		return Version{}, errors.Wrapf(ErrMalformedVersion, "%q", b)
	}

	major, minor := rune(b[len(prefix)]), rune(b[len(prefix)+2])
	if !rule.IsDigit(major) || !rule.IsDigit(minor) {
		return Version{}, errors.Wrapf(ErrMalformedVersion, "%q", b)
	}

	return Version{uint(major - '0'), uint(minor - '0')}, nil
}

func (ver Version) Text() []byte { return fmt.Appendf(nil, "HTTP/%d.%d", ver[0], ver[1]) }

func (ver Version) String() string { return string(ver.Text()) }

type Field struct{ Name, Value string }

// ParseField splits a field line at the first colon and trims OWS around
// the value. Whitespace between the name and the colon is rejected.
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-5.1
func ParseField(line []byte) (Field, error) {
	name, value, found := bytes.Cut(line, []byte{':'})
	if !found {
		return Field{}, errors.Errorf("no colon in field line %q", line)
	}
	if len(name) == 0 {
		return Field{}, errors.Errorf("empty field name in %q", line)
	}
	if bytes.ContainsAny(name[len(name)-1:], string(rule.OWS)) {
		return Field{}, errors.Errorf("whitespace before colon in %q", line)
	}

	return Field{Name: string(name), Value: string(bytes.Trim(value, string(rule.OWS)))}, nil
}

// Text returns "Name: Value".
func (f Field) Text() []byte { return []byte(f.Name + ": " + f.Value) }

// Headers is an ordered list of fields.
// Lookups are case-insensitive, the stored names are kept as given.
type Headers []Field

// Get returns the value of the first field named name.
func (h Headers) Get(name string) (string, bool) {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return f.Value, true
		}
	}
	return "", false
}

// Values returns the values of every field named name, in order.
func (h Headers) Values(name string) []string {
	matched := sliceutil.Filter(h, func(f Field) bool { return strings.EqualFold(f.Name, name) })
	return sliceutil.Map(matched, func(f Field) string { return f.Value })
}

func (h *Headers) Add(name, value string) {
	*h = append(*h, Field{Name: name, Value: value})
}

// Set replaces the first field named name and drops the others.
// If there is none, the field is appended.
func (h *Headers) Set(name, value string) {
	for i, f := range *h {
		if strings.EqualFold(f.Name, name) {
			(*h)[i] = Field{Name: name, Value: value}
			*h = append((*h)[:i+1], (*h)[i+1:].without(name)...)
			return
		}
	}
	h.Add(name, value)
}

func (h *Headers) Del(name string) { *h = h.without(name) }

func (h Headers) without(name string) Headers {
	out := make(Headers, 0, len(h))
	for _, f := range h {
		if !strings.EqualFold(f.Name, name) {
			out = append(out, f)
		}
	}
	return out
}

func (h Headers) Clone() Headers { return append(Headers(nil), h...) }
