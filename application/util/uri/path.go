package uri

import (
	"slices"
	"strings"

	"http-conversation/application/util/rule"

	"github.com/pkg/errors"
)

var ErrInvalidPath = errors.New("invalid path")

// Path holds the segments of a hierarchical path.
// Empty segments are preserved, e.g. "//a/" is ["", "a"].
type Path []string

// ParsePath parses s into [Path].
// A leading scheme and authority ("https://example.com") is stripped first,
// so a full URL yields its path.
func ParsePath(s string) (Path, error) {
	p, _, err := parsePath(s)
	return p, err
}

func (p Path) String() string {
	return "/" + strings.Join(p, "/")
}

func (p Path) Equal(other Path) bool { return slices.Equal(p, other) }

// HasPrefix reports whether every segment of prefix leads p.
func (p Path) HasPrefix(prefix Path) bool {
	return len(prefix) <= len(p) && slices.Equal(p[:len(prefix)], prefix)
}

func (p Path) Clone() Path { return slices.Clone(p) }

// parsePath returns the segments of s and whether s ended with a slash.
func parsePath(s string) (path Path, dir bool, err error) {
	if idx := schemeEnd(s); idx >= 0 {
		s = stripAuthority(s[idx+len("://"):])
	}

	return parseRawPath(s)
}

// parseRawPath parses a path that carries no authority.
func parseRawPath(s string) (path Path, dir bool, err error) {
	s, _, _ = strings.Cut(s, "#")
	if !isValidPath(s) {
		return nil, false, errors.Wrapf(ErrInvalidPath, "%q", s)
	}
	s, _, _ = strings.Cut(s, "?")

	return splitSegments(s), len(s) > 1 && strings.HasSuffix(s, "/"), nil
}

// schemeEnd returns the index of "://" when it terminates a leading scheme, or -1.
func schemeEnd(s string) int {
	idx := strings.Index(s, "://")
	if idx <= 0 || strings.ContainsAny(s[:idx], "/?#") {
		return -1
	}
	return idx
}

func stripAuthority(s string) string {
	if idx := strings.IndexAny(s, "/?#"); idx >= 0 {
		return s[idx:]
	}
	return ""
}

func splitSegments(s string) Path {
	s = strings.TrimPrefix(s, "/")
	s = strings.TrimSuffix(s, "/")
	if s == "" {
		return Path{}
	}
	return strings.Split(s, "/")
}

func isValidPath(s string) bool {
	for _, c := range s {
		if rule.IsWordChar(c) {
			continue
		}
		switch c {
		case '/', '%', '?', '&', ',', '.', '=', '+', ';', '-':
			continue
		}
		return false
	}
	return true
}

// removeDotSegments resolves "." and ".." segments.
// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-5.2.4
func removeDotSegments(segments []string) (out []string, dir bool) {
	out = make([]string, 0, len(segments))
	for idx, seg := range segments {
		last := idx == len(segments)-1
		switch seg {
		case ".":
			dir = last
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
			dir = last
		default:
			out = append(out, seg)
			dir = false
		}
	}
	return out, dir
}
