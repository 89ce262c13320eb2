// Package cookie parses Set-Cookie values and keeps them in a jar scoped by
// domain and path.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc6265
package cookie

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"http-conversation/application/util/rule"
	"http-conversation/application/util/uri"

	"github.com/pkg/errors"
)

var ErrInvalidCookie = errors.New("invalid cookie")

// Tombstone is the value servers use to delete a cookie.
const Tombstone = "deleted"

const (
	AttrExpires = "expires"
	AttrMaxAge  = "max-age"
	AttrPath    = "path"
	AttrDomain  = "domain"
)

// TimeFormat is the HTTP-date layout used for computed expiry dates.
const TimeFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

var dateLayouts = []string{
	time.RFC1123,
	"Mon, 02-Jan-2006 15:04:05 MST",
	time.RFC850,
	"Mon, 02-Jan-06 15:04:05 MST",
	time.ANSIC,
}

type Cookie struct {
	Name  string
	Value string

	// Domain is the domain of the response that set the cookie.
	// A Domain attribute, if any, is kept in Attributes.
	Domain string
	Path   uri.Path

	// Attributes other than path. Flag attributes map to "".
	// "expires" and "domain" are stored lower-cased, the rest verbatim.
	Attributes map[string]string
}

// New creates a cookie without attributes, scoped to path.
func New(name, value, domain string, path uri.Path) *Cookie {
	if path == nil {
		path = uri.Path{}
	}
	return &Cookie{
		Name:       name,
		Value:      value,
		Domain:     domain,
		Path:       path,
		Attributes: make(map[string]string),
	}
}

// Parse parses a Set-Cookie header value of the form name=value(; attr(=val)?)*.
// Max-Age is converted into an absolute expires date relative to now and
// takes precedence over Expires regardless of their order.
func Parse(header, domain string, now time.Time) (*Cookie, error) {
	parts := strings.Split(header, ";")

	name, value, found := strings.Cut(strings.TrimSpace(parts[0]), "=")
	name = strings.TrimSpace(name)
	if !found || !rule.IsValidToken(name) {
		return nil, errors.Wrapf(ErrInvalidCookie, "malformed name-value pair: %q", parts[0])
	}
	value = strings.TrimSpace(value)
	if rule.HasCTL(value) {
		return nil, errors.Wrapf(ErrInvalidCookie, "control byte in value of %q", name)
	}

	c := New(name, value, domain, nil)

	maxAgeSeen := false
	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		key, val, hasValue := strings.Cut(part, "=")
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		if key == "" {
			return nil, errors.Wrapf(ErrInvalidCookie, "attribute without name in %q", header)
		}

		switch strings.ToLower(key) {
		case AttrMaxAge:
			seconds, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return nil, errors.Wrapf(ErrInvalidCookie, "max-age is not a number: %q", val)
			}
			c.Attributes[AttrExpires] = maxAgeExpiry(now, seconds)
			maxAgeSeen = true
		case AttrExpires:
			if !maxAgeSeen {
				c.Attributes[AttrExpires] = val
			}
		case AttrPath:
			if path, err := uri.ParsePath(val); err == nil && strings.HasPrefix(val, "/") {
				c.Path = path
			}
		case AttrDomain:
			c.Attributes[AttrDomain] = val
		default:
			if !hasValue {
				val = ""
			}
			c.Attributes[key] = val
		}
	}

	return c, nil
}

// maxAgeLimit is the longest Max-Age a time.Duration can hold.
const maxAgeLimit = math.MaxInt64 / int64(time.Second)

func maxAgeExpiry(now time.Time, seconds int64) string {
	if seconds <= 0 {
		// Reference: https://datatracker.ietf.org/doc/html/rfc6265#section-5.2.2
		return time.Unix(0, 0).UTC().Format(TimeFormat)
	}
	seconds = min(seconds, maxAgeLimit)
	return now.Add(time.Duration(seconds) * time.Second).UTC().Format(TimeFormat)
}

// ParseDate parses an HTTP-date in any of the forms servers send in Expires.
func ParseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}

	return time.Time{}, errors.Errorf("invalid time format: %q", raw)
}

// Expires returns the parsed expires attribute.
// ok is false when the attribute is absent or unparsable.
func (c *Cookie) Expires() (t time.Time, ok bool) {
	raw, found := c.Attributes[AttrExpires]
	if !found {
		return time.Time{}, false
	}
	t, err := ParseDate(raw)
	return t, err == nil
}

// IsExpired reports whether the expiry date lies strictly before now.
// A cookie without expiry never expires.
func (c *Cookie) IsExpired(now time.Time) bool {
	t, ok := c.Expires()
	return ok && t.Before(now)
}

func (c *Cookie) IsTombstone() bool { return c.Value == Tombstone }

// String returns name=value as sent in a Cookie header.
func (c *Cookie) String() string { return c.Name + "=" + c.Value }

// SetCookieString serializes c back into a Set-Cookie value.
func (c *Cookie) SetCookieString() string {
	b := new(strings.Builder)
	b.WriteString(c.String())
	b.WriteString("; Path=")
	b.WriteString(c.Path.String())

	keys := make([]string, 0, len(c.Attributes))
	for k := range c.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		b.WriteString("; ")
		switch k {
		case AttrExpires:
			b.WriteString("Expires")
		case AttrDomain:
			b.WriteString("Domain")
		default:
			b.WriteString(k)
		}
		if v := c.Attributes[k]; v != "" {
			b.WriteByte('=')
			b.WriteString(v)
		}
	}

	return b.String()
}
