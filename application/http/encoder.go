package http

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"

	"http-conversation/application/http/status"
	"http-conversation/application/http/transfer"
	"http-conversation/application/util/rule"

	"github.com/pkg/errors"
)

type EncodeOptions struct {
	// UseSoleLF terminates lines with LF alone.
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-3
	UseSoleLF bool
}

// ErrInvalidField is returned for a field that would break message framing.
var ErrInvalidField = errors.New("invalid header field")

// MessageEncoder holds what requests and responses encode alike.
// Writes go through a bufio.Writer whose errors are sticky, so only the
// final flush is checked.
type MessageEncoder struct {
	bw   *bufio.Writer
	opts EncodeOptions
}

func newMessageEncoder(w io.Writer, opts EncodeOptions) MessageEncoder {
	return MessageEncoder{bw: bufio.NewWriter(w), opts: opts}
}

func (me *MessageEncoder) writeLine(line []byte) {
	me.bw.Write(line)
	if me.opts.UseSoleLF {
		me.bw.WriteByte(rule.LF)
		return
	}
	me.bw.Write(rule.CRLF)
}

// encode writes a whole message. A chunked transfer-encoding in headers
// frames body as a single chunk.
func (me *MessageEncoder) encode(startLine []byte, headers Headers, body []byte) error {
	for _, f := range headers {
		if err := validateField(f); err != nil {
			return err
		}
	}

	me.writeLine(startLine)
	for _, f := range headers {
		me.writeLine(f.Text())
	}
	me.writeLine(nil)

	if te, ok := headers.Get("transfer-encoding"); ok && hasToken(te, transfer.CodingChunked) {
		cw := transfer.NewChunkedWriter(me.bw)
		if _, err := cw.Write(body); err != nil {
			return errors.Wrap(err, "writing chunked body")
		}
		if err := cw.Close(); err != nil {
			return errors.Wrap(err, "writing chunked body")
		}
	} else {
		me.bw.Write(body)
	}

	return errors.Wrap(me.bw.Flush(), "flushing")
}

// validateField rejects names that are not tokens and values holding
// control bytes other than HTAB.
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.5
func validateField(f Field) error {
	if !rule.IsValidToken(f.Name) {
		return errors.Wrapf(ErrInvalidField, "name %q", f.Name)
	}
	if strings.ContainsFunc(f.Value, func(r rune) bool {
		return r < 0x80 && r != rune(rule.HTAB) && rule.IsCTL(byte(r))
	}) {
		return errors.Wrapf(ErrInvalidField, "value of %s has a control byte", f.Name)
	}
	return nil
}

type RequestEncoder struct{ MessageEncoder }

func NewRequestEncoder(w io.Writer, opts EncodeOptions) *RequestEncoder {
	return &RequestEncoder{newMessageEncoder(w, opts)}
}

func (re *RequestEncoder) Encode(request Request) error {
	line := bytes.NewBuffer(nil)
	line.WriteString(request.Method)
	line.WriteByte(rule.SP)
	line.WriteString(request.Target)
	line.WriteByte(rule.SP)
	line.Write(request.Version.Text())

	return errors.Wrap(re.encode(line.Bytes(), request.Headers, request.Body), "encoding request")
}

// EncodeRequest returns the wire form of request.
func EncodeRequest(request Request) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := NewRequestEncoder(buf, EncodeOptions{}).Encode(request); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ResponseEncoder writes responses. A content coding must already be
// applied to the body. An empty reason phrase is filled from the status code.
type ResponseEncoder struct{ MessageEncoder }

func NewResponseEncoder(w io.Writer, opts EncodeOptions) *ResponseEncoder {
	return &ResponseEncoder{newMessageEncoder(w, opts)}
}

func (re *ResponseEncoder) Encode(response Response) error {
	line := bytes.NewBuffer(nil)
	line.Write(response.Version.Text())
	line.WriteByte(rule.SP)
	line.WriteString(strconv.FormatUint(uint64(response.StatusCode), 10))
	line.WriteByte(rule.SP)
	reason := response.ReasonPhrase
	if reason == "" {
		reason = status.Text(response.StatusCode)
	}
	line.WriteString(reason)

	return errors.Wrap(re.encode(line.Bytes(), response.Headers, []byte(response.Body)), "encoding response")
}
