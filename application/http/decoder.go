package http

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"

	"http-conversation/application/http/transfer"
	"http-conversation/application/util/rule"
	bytesutil "http-conversation/util/bytes"

	"github.com/pkg/errors"
)

type DecodeOptions struct {
	// AllowSoleLF accepts a bare LF as line terminator.
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-3
	AllowSoleLF bool

	// LenientWhitespace turns every whitespace byte into SP and trims the line.
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3-3
	LenientWhitespace bool

	// AllowObsFold joins a line starting with SP or HTAB to the value of the
	// previous field. Otherwise such a line is malformed.
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-5.2
	AllowObsFold bool

	// LowercaseNames stores field names in lower case.
	LowercaseNames bool

	// MaxStartLineLength bounds the request line or the status line.
	// Zero means no limit.
	MaxStartLineLength uint

	// MaxFieldLineLength bounds every field line. Zero means no limit.
	MaxFieldLineLength uint

	// MaxFields bounds the number of fields. Zero means no limit.
	MaxFields uint
}

var (
	ErrLineTooLong          = errors.New("line length exceeds limit")
	ErrMissingCRBeforeLF    = errors.New("missing CR before LF")
	ErrMalformedFieldLine   = errors.New("field line is malformed")
	ErrTooManyFields        = errors.New("too many header fields")
	ErrMalformedRequestLine = errors.New("request line is malformed")
	ErrMalformedStatusLine  = errors.New("status line is malformed")
)

// MessageDecoder holds what requests and responses decode alike.
type MessageDecoder struct {
	br   *bufio.Reader
	opts DecodeOptions
}

func newMessageDecoder(r io.Reader, opts DecodeOptions) MessageDecoder {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return MessageDecoder{br: br, opts: opts}
}

// readLine returns the next line without its terminator.
func (md *MessageDecoder) readLine(limit uint) ([]byte, error) {
	line, err := bytesutil.ReadUntil(md.br, []byte{rule.LF}, int(limit))
	switch {
	case errors.Is(err, bytesutil.ErrTooLong):
		return nil, errors.Wrapf(ErrLineTooLong, "limit %d", limit)
	case err != nil:
		return nil, err
	}

	line = line[:len(line)-1]
	if n := len(line); n > 0 && line[n-1] == rule.CR {
		line = line[:n-1]
	} else if !md.opts.AllowSoleLF {
		return nil, ErrMissingCRBeforeLF
	}

	if md.opts.LenientWhitespace {
		return normalizeWhitespace(line), nil
	}

	// A bare CR inside a line is read as SP.
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-4
	return bytes.ReplaceAll(line, []byte{rule.CR}, []byte{rule.SP}), nil
}

func normalizeWhitespace(line []byte) []byte {
	out := make([]byte, len(line))
	for i, c := range line {
		if rule.IsWhitespace(rune(c)) {
			c = rule.SP
		}
		out[i] = c
	}
	return bytes.Trim(out, " ")
}

// readStartLine skips the empty lines a peer may send before a message.
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-6
func (md *MessageDecoder) readStartLine() ([]byte, error) {
	for {
		line, err := md.readLine(md.opts.MaxStartLineLength)
		if err != nil || len(line) > 0 {
			return line, err
		}
	}
}

func (md *MessageDecoder) decodeHeaders(headers *Headers) error {
	fields := Headers{}
	for {
		line, err := md.readLine(md.opts.MaxFieldLineLength)
		if err != nil {
			return errors.Wrap(err, "reading field line")
		}
		if len(line) == 0 {
			break
		}

		if line[0] == rule.SP || line[0] == rule.HTAB {
			if !md.opts.AllowObsFold || len(fields) == 0 {
				return errors.Wrapf(ErrMalformedFieldLine, "unexpected continuation line %q", line)
			}
			last := &fields[len(fields)-1]
			last.Value = strings.TrimSpace(last.Value + " " + string(bytes.Trim(line, string(rule.OWS))))
			continue
		}

		field, err := ParseField(line)
		if err != nil {
			return errors.Wrap(ErrMalformedFieldLine, err.Error())
		}
		if md.opts.LowercaseNames {
			field.Name = strings.ToLower(field.Name)
		}
		if md.opts.MaxFields > 0 && uint(len(fields)) >= md.opts.MaxFields {
			return errors.Wrapf(ErrTooManyFields, "limit %d", md.opts.MaxFields)
		}
		fields = append(fields, field)
	}

	*headers = fields

	return nil
}

type RequestDecoder struct{ MessageDecoder }

func NewRequestDecoder(r io.Reader, opts DecodeOptions) *RequestDecoder {
	return &RequestDecoder{newMessageDecoder(r, opts)}
}

// Decode reads one request into r, including a body framed by
// content-length or by the chunked coding.
func (rd *RequestDecoder) Decode(r *Request) error {
	line, err := rd.readStartLine()
	if err != nil {
		return errors.Wrap(err, "reading request line")
	}
	if r.RequestLine, err = parseRequestLine(line); err != nil {
		return errors.Wrap(ErrMalformedRequestLine, err.Error())
	}

	if err := rd.decodeHeaders(&r.Headers); err != nil {
		return errors.Wrap(err, "decoding headers")
	}

	r.Body = nil
	if te, ok := r.Headers.Get("transfer-encoding"); ok && hasToken(te, transfer.CodingChunked) {
		body, err := io.ReadAll(transfer.NewChunkedReader(rd.br, nil))
		if err != nil {
			return errors.Wrap(err, "reading chunked body")
		}
		r.Body = body
		return nil
	}
	if n, ok := contentLength(r.Headers); ok && n > 0 {
		r.Body = make([]byte, n)
		if _, err := io.ReadFull(rd.br, r.Body); err != nil {
			return errors.Wrap(err, "reading body")
		}
	}

	return nil
}

// parseRequestLine splits "GET /path HTTP/1.1".
func parseRequestLine(line []byte) (RequestLine, error) {
	method, rest, ok := bytes.Cut(line, []byte{rule.SP})
	if !ok {
		return RequestLine{}, errors.Errorf("no target in %q", line)
	}
	target, version, ok := bytes.Cut(rest, []byte{rule.SP})
	if !ok || bytes.IndexByte(version, rule.SP) >= 0 {
		return RequestLine{}, errors.Errorf("expected three parts in %q", line)
	}

	if !rule.IsValidToken(string(method)) {
		return RequestLine{}, errors.Errorf("method %q is not a token", method)
	}
	if len(target) == 0 {
		return RequestLine{}, errors.New("empty request target")
	}
	ver, err := ParseVersion(version)
	if err != nil {
		return RequestLine{}, err
	}

	return RequestLine{Method: string(method), Target: string(target), Version: ver}, nil
}

type ResponseDecoder struct{ MessageDecoder }

func NewResponseDecoder(r io.Reader, opts DecodeOptions) *ResponseDecoder {
	return &ResponseDecoder{newMessageDecoder(r, opts)}
}

// Decode reads the status line and the headers into r.
// The body is left unread in [ResponseDecoder.Rest].
func (rd *ResponseDecoder) Decode(r *Response) error {
	line, err := rd.readStartLine()
	if err != nil {
		return errors.Wrap(err, "reading status line")
	}
	if r.StatusLine, err = parseStatusLine(line); err != nil {
		return errors.Wrap(ErrMalformedStatusLine, err.Error())
	}

	if err := rd.decodeHeaders(&r.Headers); err != nil {
		return errors.Wrap(err, "decoding headers")
	}

	return nil
}

// Rest returns the reader positioned after the headers.
func (rd *ResponseDecoder) Rest() io.Reader { return rd.br }

// parseStatusLine splits "HTTP/1.1 200 OK". The reason phrase may be
// missing along with the SP before it.
func parseStatusLine(line []byte) (StatusLine, error) {
	version, rest, ok := bytes.Cut(line, []byte{rule.SP})
	if !ok {
		return StatusLine{}, errors.Errorf("no status code in %q", line)
	}
	ver, err := ParseVersion(version)
	if err != nil {
		return StatusLine{}, err
	}

	code, reason, _ := bytes.Cut(rest, []byte{rule.SP})
	if len(code) != 3 {
		return StatusLine{}, errors.Errorf("status code %q is not three digits", code)
	}
	statusCode, err := strconv.ParseUint(string(code), 10, 16)
	if err != nil {
		return StatusLine{}, errors.Errorf("status code %q is not a number", code)
	}

	return StatusLine{Version: ver, StatusCode: uint(statusCode), ReasonPhrase: string(reason)}, nil
}
