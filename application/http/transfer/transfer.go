// Package transfer implements the chunked transfer coding.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-7.1
package transfer

import (
	"bytes"
	"io"
	"regexp"

	"github.com/pkg/errors"
)

const CodingChunked = "chunked"

// DecodeChunked reassembles a complete chunked body.
// Bytes after the trailer section are ignored.
func DecodeChunked(body []byte) (data []byte, trailers []Field, err error) {
	data, err = io.ReadAll(NewChunkedReader(bytes.NewReader(body), &trailers))
	if err != nil {
		return nil, nil, errors.Wrap(err, "reading chunked body")
	}

	return data, trailers, nil
}

var chunkMarker = regexp.MustCompile(`(?m)^[0-9a-fA-F]{3,8}\r?\n`)

// StripChunkMarkers removes lines made only of a hex size from body.
// It is a fallback for bodies that cannot be reassembled, and it will also
// remove hex-looking lines that belong to the payload.
func StripChunkMarkers(body []byte) []byte {
	return chunkMarker.ReplaceAll(body, nil)
}
