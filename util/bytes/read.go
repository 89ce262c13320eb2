package bytesutil

import (
	"bufio"
	"bytes"
	"io"

	"github.com/pkg/errors"
)

var ErrTooLong = errors.New("delimiter not found within limit")

// ReadUntil reads from r until delim. The output will include delim.
// A positive limit bounds the output length: ErrTooLong is returned as soon
// as more than limit bytes were read without finding delim.
func ReadUntil(r *bufio.Reader, delim []byte, limit int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	last := delim[len(delim)-1]
	for {
		b, err := r.ReadSlice(last)
		if err != nil && err != bufio.ErrBufferFull {
			if err == io.EOF {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}

		buf.Write(b)

		if limit > 0 && buf.Len() > limit {
			return nil, ErrTooLong
		}
		if err == nil && bytes.HasSuffix(buf.Bytes(), delim) {
			return buf.Bytes(), nil
		}
	}
}
