// Package route holds the top-level paths served by curto. The same list drives
// the Fiber router and the short-ID reservation, so a new top-level route only
// needs to be added here.
package route

import "strings"

// Route is a path template in Fiber syntax.
type Route string

const (
	Health       Route = "/health"
	Metrics      Route = "/metrics"
	Docs         Route = "/docs"
	DocsSpec     Route = "/docs/api.json"
	LinkCreate   Route = "/create"
	LinkList     Route = "/links"
	LinkGet      Route = "/links/:id"
	LinkRedirect Route = "/:id"
)

// all is in registration order. LinkRedirect matches any single segment, so
// it stays last.
var all = []Route{
	Health,
	Metrics,
	Docs,
	DocsSpec,
	LinkCreate,
	LinkList,
	LinkGet,
	LinkRedirect,
}

// All returns every registered route in registration order.
func All() []Route {
	out := make([]Route, len(all))
	copy(out, all)
	return out
}

// Paths returns All as plain strings.
func Paths() []string {
	out := make([]string, 0, len(all))
	for _, r := range all {
		out = append(out, string(r))
	}
	return out
}

// String implements fmt.Stringer.
func (r Route) String() string {
	return string(r)
}

// Segment returns the first path segment of the route, without the leading
// separator. "/links/:id" yields "links".
func (r Route) Segment() string {
	return FirstSegment(string(r))
}

// FirstSegment strips a leading "/" from path and keeps everything before the
// next "/".
func FirstSegment(path string) string {
	p := strings.TrimPrefix(path, "/")
	if head, _, found := strings.Cut(p, "/"); found {
		return head
	}
	return p
}
