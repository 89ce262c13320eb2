package transfer

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"

	"http-conversation/application/util/rule"
	bytesutil "http-conversation/util/bytes"

	"github.com/pkg/errors"
)

// Field is a trailer field or a chunk extension.
type Field struct{ Name, Value string }

var (
	ErrMalformedChunk   = errors.New("malformed chunk")
	ErrMalformedTrailer = errors.New("malformed trailer field")
	ErrWriterClosed     = errors.New("chunked writer is closed")
)

// maxLineLength bounds chunk size and trailer lines.
const maxLineLength = 64 << 10

// ChunkedReader yields the payload of a chunked body.
// Reading stops with io.EOF after the trailer section.
type ChunkedReader struct {
	br *bufio.Reader

	inChunk bool
	remain  uint64
	done    bool
	ext     []Field

	trailers *[]Field
}

var _ io.Reader = (*ChunkedReader)(nil)

// NewChunkedReader reads a chunked body from r. A *bufio.Reader is used as is
// so nothing past the body is consumed. trailers is filled when the last chunk
// is reached, unless it is nil.
func NewChunkedReader(r io.Reader, trailers *[]Field) *ChunkedReader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &ChunkedReader{br: br, trailers: trailers}
}

// Extensions returns the extensions of the chunk being read.
func (cr *ChunkedReader) Extensions() []Field { return cr.ext }

func (cr *ChunkedReader) Read(p []byte) (int, error) {
	if cr.done {
		return 0, io.EOF
	}

	if !cr.inChunk {
		if err := cr.nextChunk(); err != nil {
			return 0, err
		}
		if cr.done {
			return 0, io.EOF
		}
	}

	if uint64(len(p)) > cr.remain {
		p = p[:cr.remain]
	}

	n, err := cr.br.Read(p)
	cr.remain -= uint64(n)
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return n, errors.Wrap(err, "reading chunk data")
	}

	if cr.remain == 0 {
		if err := cr.readDelimiter(); err != nil {
			return n, err
		}
		cr.inChunk = false
	}

	return n, nil
}

// nextChunk reads a size line. The last chunk also consumes the trailers.
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-7.1
func (cr *ChunkedReader) nextChunk() error {
	line, err := readLine(cr.br)
	if err != nil {
		return errors.Wrap(err, "reading chunk size")
	}

	sizeRaw, extRaw, _ := bytes.Cut(line, []byte{';'})
	size, err := parseChunkSize(bytes.TrimFunc(sizeRaw, rule.IsWhitespace))
	if err != nil {
		return err
	}
	cr.ext = parseExtensions(extRaw)

	if size > 0 {
		cr.inChunk, cr.remain = true, size
		return nil
	}

	trailers, err := readTrailers(cr.br)
	if err != nil {
		return err
	}
	if cr.trailers != nil {
		*cr.trailers = trailers
	}
	cr.done = true

	return nil
}

func (cr *ChunkedReader) readDelimiter() error {
	var delim [2]byte
	if _, err := io.ReadFull(cr.br, delim[:]); err != nil {
		return errors.Wrap(err, "reading chunk delimiter")
	}
	if !bytes.Equal(delim[:], rule.CRLF) {
		return errors.Wrapf(ErrMalformedChunk, "expected CRLF after chunk data, got %q", delim[:])
	}
	return nil
}

func parseChunkSize(b []byte) (uint64, error) {
	size, err := strconv.ParseUint(string(b), 16, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrMalformedChunk, "chunk size %q", b)
	}
	return size, nil
}

// parseExtensions splits "a=1;b" into fields. Quoted values are unquoted.
func parseExtensions(raw []byte) []Field {
	if len(raw) == 0 {
		return nil
	}

	var ext []Field
	for _, part := range bytes.Split(raw, []byte{';'}) {
		name, value, _ := bytes.Cut(part, []byte{'='})
		ext = append(ext, Field{
			Name:  string(bytes.TrimFunc(name, rule.IsWhitespace)),
			Value: string(rule.Unquote(bytes.TrimFunc(value, rule.IsWhitespace))),
		})
	}
	return ext
}

func readTrailers(br *bufio.Reader) ([]Field, error) {
	var fields []Field
	for {
		line, err := readLine(br)
		if err != nil {
			return nil, errors.Wrap(err, "reading trailer")
		}
		if len(line) == 0 {
			return fields, nil
		}

		name, value, found := bytes.Cut(line, []byte{':'})
		if !found || !rule.IsValidToken(string(name)) {
			return nil, errors.Wrapf(ErrMalformedTrailer, "%q", line)
		}
		fields = append(fields, Field{
			Name:  string(name),
			Value: string(bytes.TrimFunc(value, rule.IsWhitespace)),
		})
	}
}

// readLine reads a CRLF terminated line and returns it without CRLF.
func readLine(br *bufio.Reader) ([]byte, error) {
	line, err := bytesutil.ReadUntil(br, rule.CRLF, maxLineLength)
	if err != nil {
		return nil, err
	}
	return line[:len(line)-len(rule.CRLF)], nil
}

// ChunkedWriter frames every Write as one chunk.
// Close writes the last chunk and the trailers.
type ChunkedWriter struct {
	w        io.Writer
	trailers []Field
	closed   bool
}

var _ io.WriteCloser = (*ChunkedWriter)(nil)

func NewChunkedWriter(w io.Writer, trailers ...Field) *ChunkedWriter {
	return &ChunkedWriter{w: w, trailers: trailers}
}

func (cw *ChunkedWriter) Write(p []byte) (int, error) {
	if cw.closed {
		return 0, ErrWriterClosed
	}
	// A zero size chunk would end the body.
	if len(p) == 0 {
		return 0, nil
	}

	if _, err := fmt.Fprintf(cw.w, "%x\r\n", len(p)); err != nil {
		return 0, errors.Wrap(err, "writing chunk size")
	}
	n, err := cw.w.Write(p)
	if err != nil {
		return n, errors.Wrap(err, "writing chunk data")
	}
	if _, err := cw.w.Write(rule.CRLF); err != nil {
		return n, errors.Wrap(err, "writing chunk delimiter")
	}

	return n, nil
}

func (cw *ChunkedWriter) Close() error {
	if cw.closed {
		return nil
	}
	cw.closed = true

	buf := bytes.NewBufferString("0\r\n")
	for _, f := range cw.trailers {
		buf.WriteString(f.Name)
		buf.WriteString(": ")
		buf.WriteString(f.Value)
		buf.Write(rule.CRLF)
	}
	buf.Write(rule.CRLF)

	_, err := buf.WriteTo(cw.w)
	return errors.Wrap(err, "writing last chunk")
}
