package backend

import (
	"context"
	"net/http"
	"net/url"
)

// hopHeaders are removed when forwarding, see RFC 9110 section 7.6.1.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Outbound returns a client request for target that carries the method,
// headers and body of the intercepted request in.
func Outbound(ctx context.Context, in *http.Request, target *url.URL) *http.Request {
	out := in.Clone(ctx)
	out.URL = target
	out.Host = target.Host
	out.RequestURI = ""

	RemoveHopHeaders(out.Header)
	return out
}

// RemoveHopHeaders deletes the hop-by-hop headers from h.
func RemoveHopHeaders(h http.Header) {
	for _, k := range hopHeaders {
		h.Del(k)
	}
}

// Get returns a plain GET request for target.
func Get(ctx context.Context, target string) (*http.Request, error) {
	return http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
}
