// Package backend performs the network side of intercepted requests.
package backend

import (
	"context"
	"net/http"
)

// Backend fetches a request from the network. A returned error means no
// response was received at all (offline, refused, timed out); any HTTP
// status, including errors, is returned as a response.
type Backend interface {
	Fetch(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Func adapts a function to the Backend interface.
type Func func(ctx context.Context, req *http.Request) (*http.Response, error)

// Fetch calls f.
func (f Func) Fetch(ctx context.Context, req *http.Request) (*http.Response, error) {
	return f(ctx, req)
}

// OK reports whether status is a complete successful response.
func OK(status int) bool {
	return status >= 200 && status < 300 && status != http.StatusPartialContent
}
