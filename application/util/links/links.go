// Package links finds the URLs referenced by an HTML document.
package links

import (
	"io"
	"slices"
	"strings"

	"http-conversation/application/util/uri"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"golang.org/x/net/html/charset"
)

// attributes that carry a followable URL.
var attributes = []string{"href", "src", "action"}

var fileSuffixes = []string{
	".aac", ".avif", ".avi", ".bmp", ".doc", ".docx", ".flv", ".gif", ".ico", ".jpeg",
	".jpg", ".mid", ".midi", ".mp3", ".mp4", ".mpeg", ".mpg", ".oga", ".ogv", ".opus",
	".otf", ".png", ".pdf", ".svg", ".swf", ".tif", ".tiff", ".ts", ".ttf", ".wav",
	".weba", ".webm", ".webp", ".woff", ".woff2", ".3gp", ".3g2", ".js", ".css",
}

// Extract returns the absolute URLs found in body, in document order.
// Relative references, fragments only, and unparsable values are skipped.
func Extract(body string) ([]uri.URL, error) {
	return extract(strings.NewReader(body), nil)
}

// ExtractFrom returns the URLs found in body resolved against base.
// contentType selects the charset of body, e.g. "text/html; charset=windows-1255".
func ExtractFrom(body, contentType string, base uri.URL) ([]uri.URL, error) {
	r, err := charset.NewReader(strings.NewReader(body), contentType)
	if err != nil {
		return nil, errors.Wrap(err, "detecting charset")
	}

	return extract(r, &base)
}

func extract(r io.Reader, base *uri.URL) ([]uri.URL, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "parsing html")
	}

	var (
		out  []uri.URL
		seen = make(map[string]struct{})
	)
	doc.Find("[href], [src], [action]").Each(func(_ int, sel *goquery.Selection) {
		for _, attr := range attributes {
			raw, ok := sel.Attr(attr)
			if !ok {
				continue
			}

			u, ok := resolve(strings.TrimSpace(raw), base)
			if !ok {
				continue
			}

			key := u.Href()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, u)
		}
	})

	return out, nil
}

func resolve(raw string, base *uri.URL) (uri.URL, bool) {
	if raw == "" || strings.HasPrefix(raw, "#") {
		return uri.URL{}, false
	}

	lower := strings.ToLower(raw)
	for _, scheme := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, scheme) {
			return uri.URL{}, false
		}
	}

	if base == nil {
		if !strings.Contains(raw, "://") {
			return uri.URL{}, false
		}
		u, err := uri.Parse(raw)
		return u, err == nil
	}

	u, err := uri.Resolve(*base, raw)
	return u, err == nil
}

// IsFile reports whether u most likely names a static file rather than a page.
func IsFile(u uri.URL) bool {
	if len(u.Path) == 0 {
		return false
	}
	last := strings.ToLower(u.Path[len(u.Path)-1])
	return slices.ContainsFunc(fileSuffixes, func(suffix string) bool {
		return strings.HasSuffix(last, suffix)
	})
}

// Name derives a file-system friendly name from domain and path,
// e.g. "example.com_a_b". It is at most 100 bytes long.
func Name(u uri.URL) string {
	name := u.Domain
	if len(u.Path) > 0 {
		name += "_" + strings.Join(u.Path, "_")
	}
	name = strings.NewReplacer("?", "_", ":", "", "*", "", "<", "", ">", "", "|", "", "\\", "").Replace(name)
	if len(name) > 100 {
		name = name[:100]
	}
	return name
}
