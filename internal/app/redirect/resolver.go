// Package redirect holds the safety rules applied when creating and following
// short links: loop detection between hosts, query forwarding and the header
// allow-list copied onto redirect responses.
package redirect

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// CacheControl is attached to every successful redirect.
const CacheControl = "public, max-age=300, s-maxage=300, stale-while-revalidate=300, stale-if-error=300"

var loopbackHosts = []string{"0.0.0.0", "localhost", "127.0.0.1"}

// ForwardedHeaders lists the request headers copied onto a redirect response.
var ForwardedHeaders = []string{
	// basic
	"Host",
	"Accept-Language",
	"Content-Type",
	// security
	"Content-Security-Policy",
	"X-Content-Type-Options",
	"X-Frame-Options",
	"X-Xss-Protection",
	// cookies
	"Cookie",
	"Set-Cookie",
}

// HostsMatch reports whether targetHost points back at the service reachable
// as requestHost. Both hosts may carry a ":port" suffix. Loopback aliases are
// treated as one host, in which case only the ports are compared. Host names
// compare case-insensitively.
func HostsMatch(requestHost, targetHost string) bool {
	requestHost, targetHost = strings.ToLower(requestHost), strings.ToLower(targetHost)
	if requestHost == targetHost {
		return true
	}

	if !isLoopback(requestHost) || !isLoopback(targetHost) {
		return false
	}

	_, reqPort, reqHasPort := strings.Cut(requestHost, ":")
	_, tgtPort, tgtHasPort := strings.Cut(targetHost, ":")
	switch {
	case reqHasPort && tgtHasPort:
		return reqPort == tgtPort
	case !reqHasPort && !tgtHasPort:
		return true
	default:
		return false
	}
}

func isLoopback(host string) bool {
	for _, alias := range loopbackHosts {
		if strings.HasPrefix(host, alias) {
			return true
		}
	}
	return false
}

// BuildTarget reparses the stored target and, when rawQuery is non-empty,
// replaces its query string with rawQuery.
//
// The stored target was validated on creation, so a parse failure here means
// the stored row is corrupt.
func BuildTarget(storedURL, rawQuery string) (string, error) {
	u, err := url.Parse(storedURL)
	if err != nil {
		return "", fmt.Errorf("redirect: stored target %q is not a valid url: %w", storedURL, err)
	}
	if rawQuery != "" {
		u.RawQuery = rawQuery
		u.ForceQuery = false
	}
	return u.String(), nil
}

// ForwardHeaders copies the allow-listed headers from request onto response.
// A header is skipped when it is absent, holds a value that is not valid
// visible ASCII, or is already set on response. response is returned for
// chaining; a nil response is allocated.
func ForwardHeaders(response, request http.Header) http.Header {
	if response == nil {
		response = make(http.Header)
	}
	for _, key := range ForwardedHeaders {
		value := request.Get(key)
		if value == "" || !validHeaderValue(value) {
			continue
		}
		if _, exists := response[http.CanonicalHeaderKey(key)]; exists {
			continue
		}
		response.Set(key, value)
	}
	return response
}

func validHeaderValue(v string) bool {
	for i := 0; i < len(v); i++ {
		b := v[i]
		if b == '\t' {
			continue
		}
		if b < 0x20 || b > 0x7e {
			return false
		}
	}
	return true
}
