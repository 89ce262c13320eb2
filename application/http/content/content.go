// Package content removes content codings from a message body.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-8.4
package content

import (
	"bytes"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"
)

var ErrUnsupportedEncoding = errors.New("unsupported content encoding")

type Coding string

const (
	CodingGzip     Coding = "gzip"
	CodingDeflate  Coding = "deflate"
	CodingBrotli   Coding = "br"
	CodingIdentity Coding = "identity"
)

type decoder func(r io.Reader) (io.ReadCloser, error)

var decoders = map[Coding]decoder{
	CodingGzip: func(r io.Reader) (io.ReadCloser, error) {
		return gzip.NewReader(r)
	},
	CodingDeflate: newDeflateReader,
	CodingBrotli: func(r io.Reader) (io.ReadCloser, error) {
		return io.NopCloser(brotli.NewReader(r)), nil
	},
	CodingIdentity: func(r io.Reader) (io.ReadCloser, error) {
		return io.NopCloser(r), nil
	},
}

// ParseCodings splits a Content-Encoding value, e.g. "gzip, br".
// Tokens are lower-cased and empty ones are dropped.
func ParseCodings(header string) []Coding {
	var codings []Coding
	for _, token := range strings.Split(header, ",") {
		token = strings.ToLower(strings.TrimSpace(token))
		if token == "" {
			continue
		}
		codings = append(codings, Coding(token))
	}
	return codings
}

// Decode removes codings from body, one layer per listed coding, starting
// with the first one listed. Every coding is checked before any decoding so
// an unknown token is always reported as [ErrUnsupportedEncoding].
func Decode(body []byte, codings []Coding) ([]byte, error) {
	for _, coding := range codings {
		if _, ok := decoders[coding]; !ok {
			return nil, errors.Wrapf(ErrUnsupportedEncoding, "%q", coding)
		}
	}

	for _, coding := range codings {
		if coding == CodingIdentity {
			continue
		}

		decoded, err := decode(body, decoders[coding])
		if err != nil {
			return nil, errors.Wrapf(err, "decoding %s", coding)
		}
		body = decoded
	}

	return body, nil
}

func decode(body []byte, dec decoder) ([]byte, error) {
	r, err := dec(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "creating reader")
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading")
	}

	return out, nil
}

// newDeflateReader reads the zlib format servers are supposed to send and
// falls back to raw deflate, which some servers send instead.
func newDeflateReader(r io.Reader) (io.ReadCloser, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	if zr, err := zlib.NewReader(bytes.NewReader(data)); err == nil {
		inflated, err := io.ReadAll(zr)
		zr.Close()
		if err == nil {
			return io.NopCloser(bytes.NewReader(inflated)), nil
		}
	}

	return flate.NewReader(bytes.NewReader(data)), nil
}
