package client

import (
	"strings"

	"http-conversation/application/util/uri"

	"github.com/pkg/errors"
)

// Target is what Send is asked to fetch: a [URLTarget] or a [RawTarget].
type Target interface {
	resolve(base *uri.URL) (uri.URL, error)
}

// URLTarget is an already parsed URL.
type URLTarget struct{ URL uri.URL }

func (t URLTarget) resolve(*uri.URL) (uri.URL, error) { return t.URL, nil }

// RawTarget is a URL string. A path starting with '/' or '?' is resolved
// against the URL of the previous exchange.
type RawTarget string

func (t RawTarget) resolve(base *uri.URL) (uri.URL, error) {
	raw := string(t)
	if base != nil && (strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "?")) &&
		!strings.HasPrefix(raw, "//") {
		u, err := uri.Resolve(*base, raw)
		return u, errors.Wrapf(err, "resolving %q", raw)
	}

	u, err := uri.Parse(raw)
	return u, errors.Wrapf(err, "parsing %q", raw)
}
