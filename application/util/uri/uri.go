package uri

import (
	"strconv"
	"strings"

	"http-conversation/application/util/rule"

	"github.com/pkg/errors"
)

var ErrInvalidURL = errors.New("invalid url")

// DefaultScheme is used when a URL does not carry one.
const DefaultScheme = "https"

// URL is immutable once parsed. Use [Parse] or [Resolve] to create one.
type URL struct {
	Scheme   string
	Domain   string
	Port     string // empty when not given
	Path     Path
	Query    string // without '?'
	Fragment string // without '#'

	dir bool // path ended with '/'
}

// Parse parses [scheme://]domain[:port][/path][?query][#fragment].
// The domain needs at least two dot-separated labels.
func Parse(raw string) (URL, error) {
	if raw == "" {
		return URL{}, errors.Wrap(ErrInvalidURL, "empty url")
	}
	for i := 0; i < len(raw); i++ {
		if rule.IsCTL(raw[i]) || raw[i] == rule.SP {
			return URL{}, errors.Wrapf(ErrInvalidURL, "%q contains whitespace or control bytes", raw)
		}
	}

	u := URL{Scheme: DefaultScheme}

	rest := raw
	if idx := schemeEnd(raw); idx >= 0 {
		scheme := raw[:idx]
		if !isValidScheme(scheme) {
			return URL{}, errors.Wrapf(ErrInvalidURL, "%q has malformed scheme", raw)
		}
		u.Scheme, rest = strings.ToLower(scheme), raw[idx+len("://"):]
	}

	authority := rest
	rest = ""
	if idx := strings.IndexAny(authority, "/?#"); idx >= 0 {
		authority, rest = authority[:idx], authority[idx:]
	}

	host, port, hasPort := strings.Cut(authority, ":")
	if !isValidDomain(host) {
		return URL{}, errors.Wrapf(ErrInvalidURL, "%q has malformed domain", raw)
	}
	if hasPort {
		if n, err := strconv.ParseUint(port, 10, 16); err != nil || n == 0 {
			return URL{}, errors.Wrapf(ErrInvalidURL, "%q has malformed port", raw)
		}
		u.Port = port
	}
	u.Domain = strings.ToLower(host)

	rest, u.Fragment, _ = strings.Cut(rest, "#")

	path, dir, err := parseRawPath(rest)
	if err != nil {
		return URL{}, errors.Wrapf(ErrInvalidURL, "%q: %v", raw, err)
	}
	u.Path, u.dir = path, dir
	_, u.Query, _ = strings.Cut(rest, "?")

	return u, nil
}

// MustParse is like [Parse] but panics on error.
func MustParse(raw string) URL {
	u, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return u
}

// Equal compares domain, port and path. Scheme, query and fragment are ignored.
func (u URL) Equal(other URL) bool {
	return u.Domain == other.Domain && u.Port == other.Port && u.Path.Equal(other.Path)
}

// Key is a comparable form of the fields used by [URL.Equal].
func (u URL) Key() string { return u.Host() + u.Path.String() }

// Host returns domain[:port] as sent in the Host header.
func (u URL) Host() string {
	if u.Port == "" {
		return u.Domain
	}
	return u.Domain + ":" + u.Port
}

// Origin returns scheme://domain[:port]/.
func (u URL) Origin() string { return u.Scheme + "://" + u.Host() + "/" }

// SameOrigin reports whether u and other share domain and port.
func (u URL) SameOrigin(other URL) bool {
	return u.Domain == other.Domain && u.Port == other.Port
}

func (u URL) IsSecure() bool { return u.Scheme == "https" }

// String returns scheme://domain[:port]path without query and fragment.
func (u URL) String() string { return u.Scheme + "://" + u.Host() + u.pathString() }

// Href is [URL.String] with the query appended.
func (u URL) Href() string { return u.Scheme + "://" + u.Host() + u.RequestTarget() }

// RequestTarget returns the origin-form used on the request line.
func (u URL) RequestTarget() string {
	target := u.pathString()
	if u.Query != "" {
		target += "?" + u.Query
	}
	return target
}

func (u URL) pathString() string {
	s := u.Path.String()
	if u.dir && len(u.Path) > 0 {
		s += "/"
	}
	return s
}

// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-3.1
func isValidScheme(scheme string) bool {
	if scheme == "" || !rule.IsAlpha(rune(scheme[0])) {
		return false
	}
	for _, c := range scheme[1:] {
		if !(rule.IsAlpha(c) || rule.IsDigit(c) || c == '+' || c == '-' || c == '.') {
			return false
		}
	}
	return true
}

func isValidDomain(host string) bool {
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if label == "" {
			return false
		}
		for _, c := range label {
			if !rule.IsWordChar(c) && c != '-' {
				return false
			}
		}
	}
	return true
}
