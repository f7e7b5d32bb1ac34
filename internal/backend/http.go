package backend

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Config configures the HTTP backend.
type Config struct {
	// Timeout bounds a single fetch including reading the body. Zero means
	// no timeout.
	Timeout time.Duration

	// Transport is used instead of http.DefaultTransport when set.
	Transport http.RoundTripper
}

// HTTP fetches requests with a net/http client. Redirects are returned to
// the caller instead of being followed, so the page sees them as it would
// without the controller in between.
type HTTP struct {
	client *http.Client
}

// NewHTTP returns an HTTP backend.
func NewHTTP(cfg Config) *HTTP {
	return &HTTP{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Fetch implements Backend.
func (be *HTTP) Fetch(ctx context.Context, req *http.Request) (*http.Response, error) {
	log.Debugf("fetch %v %v", req.Method, req.URL)

	resp, err := be.client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, errors.Wrapf(err, "fetch %v", req.URL)
	}
	return resp, nil
}
