package cookie

import (
	"slices"
	"sort"
	"strings"
	"time"

	"http-conversation/application/util/uri"
	sliceutil "http-conversation/lib/slice"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

// ErrCookieNotFound is returned when a removal finds nothing to remove.
// Callers are free to treat it as a no-op.
var ErrCookieNotFound = errors.New("cookie not found")

const rootIndex = 0

// node is one path segment under one domain.
// Children of the root are keyed by domain.
type node struct {
	segment  string
	parent   int // index of the parent node, -1 for the root.
	children map[string]int
	cookies  []*Cookie
	visited  bool
}

// Jar stores cookies in a domain/path tree.
// Nodes live in an arena and are never removed, only emptied.
type Jar struct {
	nodes []node
	clock clock.Clock
}

func NewJar(clock clock.Clock) *Jar {
	return &Jar{
		nodes: []node{{parent: -1, children: make(map[string]int)}},
		clock: clock,
	}
}

// AddOrRemove stores c at the node addressed by its domain and path,
// replacing a cookie of the same name there.
// An expired or tombstoned cookie removes its namesake instead; if there is
// nothing to remove ErrCookieNotFound is returned.
func (j *Jar) AddOrRemove(c *Cookie) error {
	if c.IsTombstone() || c.IsExpired(j.clock.Now()) {
		idx, ok := j.find(c.Domain, c.Path)
		if !ok || !j.removeAt(idx, c.Name) {
			return errors.Wrapf(ErrCookieNotFound, "removing %q at %s%s", c.Name, c.Domain, c.Path)
		}
		return nil
	}

	n := &j.nodes[j.descend(c.Domain, c.Path)]
	for i, existing := range n.cookies {
		if existing.Name == c.Name {
			n.cookies[i] = c
			return nil
		}
	}
	n.cookies = append(n.cookies, c)

	return nil
}

// GetCookies collects the cookies of every node on the way from the domain
// down the path of u, so a cookie scoped to /a is returned for /a/b/c.
// Expired and tombstoned cookies met on the way are evicted.
func (j *Jar) GetCookies(u uri.URL) []*Cookie {
	idx, ok := j.child(rootIndex, u.Domain)
	if !ok {
		return nil
	}

	now := j.clock.Now()
	var out []*Cookie

	out = j.collect(idx, now, out)
	for _, seg := range u.Path {
		if idx, ok = j.child(idx, seg); !ok {
			break
		}
		out = j.collect(idx, now, out)
	}

	return out
}

// CookieHeaderValue returns the cookies for u joined as "a=1; b=2".
func (j *Jar) CookieHeaderValue(u uri.URL) string {
	return strings.Join(sliceutil.Map(j.GetCookies(u), (*Cookie).String), "; ")
}

// Visit marks the node of u as visited, creating it if needed.
func (j *Jar) Visit(u uri.URL) {
	j.nodes[j.descend(u.Domain, u.Path)].visited = true
}

func (j *Jar) IsVisited(u uri.URL) bool {
	idx, ok := j.find(u.Domain, u.Path)
	return ok && j.nodes[idx].visited
}

// Visited returns domain and path of every visited node, e.g. "example.com/a/b".
func (j *Jar) Visited() []string {
	var out []string
	for idx, n := range j.nodes {
		if n.visited {
			out = append(out, j.location(idx))
		}
	}
	return out
}

// location rebuilds domain and path of a node from its parent links.
func (j *Jar) location(idx int) string {
	var segments []string
	for ; idx != rootIndex; idx = j.nodes[idx].parent {
		segments = append(segments, j.nodes[idx].segment)
	}
	slices.Reverse(segments)

	return segments[0] + uri.Path(segments[1:]).String()
}

// ContainsURL reports whether the node of u exists.
func (j *Jar) ContainsURL(u uri.URL) bool {
	_, ok := j.find(u.Domain, u.Path)
	return ok
}

// ContainsCookie reports whether a cookie with the name and value of c is
// stored at its node. Expiry is not checked.
func (j *Jar) ContainsCookie(c *Cookie) bool {
	idx, ok := j.find(c.Domain, c.Path)
	if !ok {
		return false
	}
	for _, stored := range j.nodes[idx].cookies {
		if stored.Name == c.Name && stored.Value == c.Value {
			return true
		}
	}
	return false
}

// Cookies returns every stored cookie in insertion order of their nodes.
func (j *Jar) Cookies() []*Cookie {
	return sliceutil.FlatMap(j.nodes, func(n node) []*Cookie { return n.cookies })
}

// String renders the tree, one node per line.
func (j *Jar) String() string {
	b := new(strings.Builder)
	j.render(b, rootIndex, -1)
	return b.String()
}

func (j *Jar) render(b *strings.Builder, idx, depth int) {
	n := j.nodes[idx]
	if idx != rootIndex {
		b.WriteString(strings.Repeat("\t", depth))
		b.WriteString(n.segment)
		if n.visited {
			b.WriteString(" (visited)")
		}
		b.WriteString(":\n")
		for _, c := range n.cookies {
			b.WriteString(strings.Repeat("\t", depth+1))
			b.WriteString(c.String())
			b.WriteByte('\n')
		}
	}

	keys := make([]string, 0, len(n.children))
	for k := range n.children {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		j.render(b, n.children[k], depth+1)
	}
}

func (j *Jar) collect(idx int, now time.Time, out []*Cookie) []*Cookie {
	n := &j.nodes[idx]
	kept := n.cookies[:0]
	for _, c := range n.cookies {
		if c.IsTombstone() || c.IsExpired(now) {
			continue
		}
		kept = append(kept, c)
		out = append(out, c)
	}
	clear(n.cookies[len(kept):])
	n.cookies = kept
	return out
}

func (j *Jar) removeAt(idx int, name string) bool {
	n := &j.nodes[idx]
	for i, c := range n.cookies {
		if c.Name == name {
			n.cookies = append(n.cookies[:i], n.cookies[i+1:]...)
			return true
		}
	}
	return false
}

func (j *Jar) child(idx int, segment string) (int, bool) {
	c, ok := j.nodes[idx].children[segment]
	return c, ok
}

// find walks to the node of domain and path without creating anything.
func (j *Jar) find(domain string, path uri.Path) (int, bool) {
	idx, ok := j.child(rootIndex, domain)
	for _, seg := range path {
		if !ok {
			return 0, false
		}
		idx, ok = j.child(idx, seg)
	}
	return idx, ok
}

// descend walks to the node of domain and path, creating missing nodes.
func (j *Jar) descend(domain string, path uri.Path) int {
	idx := j.childOrCreate(rootIndex, domain)
	for _, seg := range path {
		idx = j.childOrCreate(idx, seg)
	}
	return idx
}

func (j *Jar) childOrCreate(idx int, segment string) int {
	if c, ok := j.child(idx, segment); ok {
		return c
	}

	j.nodes = append(j.nodes, node{
		segment:  segment,
		parent:   idx,
		children: make(map[string]int),
	})
	c := len(j.nodes) - 1
	j.nodes[idx].children[segment] = c

	return c
}
