package uri

import (
	"strings"

	"github.com/pkg/errors"
)

// Resolve resolves ref, typically a Location header value, against base.
// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-5.2.2
func Resolve(base URL, ref string) (URL, error) {
	switch {
	case schemeEnd(ref) >= 0:
		return Parse(ref)
	case strings.HasPrefix(ref, "//"):
		return Parse(base.Scheme + ":" + ref)
	case strings.HasPrefix(ref, "/"):
		return Parse(base.Scheme + "://" + base.Host() + ref)
	case ref == "":
		return base, nil
	case strings.HasPrefix(ref, "#"):
		out := base
		out.Fragment = ref[1:]
		return out, nil
	case strings.HasPrefix(ref, "?"):
		return Parse(base.Scheme + "://" + base.Host() + base.pathString() + ref)
	}

	// Relative path. Merge with the base directory.
	pathPart, suffix := ref, ""
	if idx := strings.IndexAny(ref, "?#"); idx >= 0 {
		pathPart, suffix = ref[:idx], ref[idx:]
	}

	dirSegments := base.Path.Clone()
	if !base.dir && len(dirSegments) > 0 {
		dirSegments = dirSegments[:len(dirSegments)-1]
	}

	merged, dir := removeDotSegments(append(dirSegments, strings.Split(pathPart, "/")...))
	path := Path(merged).String()
	if dir && len(merged) > 0 {
		path += "/"
	}

	out, err := Parse(base.Scheme + "://" + base.Host() + path + suffix)
	if err != nil {
		return URL{}, errors.Wrapf(err, "resolving %q against %s", ref, base)
	}
	return out, nil
}
