package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

// StatusError is returned by Retry for responses with a non-OK status.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %v: status %d %s", e.URL, e.Status, http.StatusText(e.Status))
}

// Retry wraps a Backend and retries fetches that fail with a transport
// error or a server error, using exponential backoff. Client errors are not
// retried. Only requests without a body can be retried.
type Retry struct {
	Backend    Backend
	MaxRetries uint64

	// NewBackOff overrides the exponential backoff, for tests.
	NewBackOff func() backoff.BackOff
}

// Fetch implements Backend. Unlike the plain backends, a non-OK status is
// reported as *StatusError and the response is discarded.
func (r *Retry) Fetch(ctx context.Context, req *http.Request) (*http.Response, error) {
	var resp *http.Response

	op := func() error {
		res, err := r.Backend.Fetch(ctx, req.Clone(ctx))
		if err != nil {
			return err
		}
		if !OK(res.StatusCode) {
			_, _ = io.Copy(io.Discard, res.Body)
			_ = res.Body.Close()

			serr := &StatusError{URL: req.URL.String(), Status: res.StatusCode}
			if res.StatusCode < 500 {
				return backoff.Permanent(serr)
			}
			return serr
		}
		resp = res
		return nil
	}

	notify := func(err error, d time.Duration) {
		log.Infof("fetch %v failed, retrying in %v: %v", req.URL, d, err)
	}

	err := backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(r.newBackOff(), r.MaxRetries), ctx), notify)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (r *Retry) newBackOff() backoff.BackOff {
	if r.NewBackOff != nil {
		return r.NewBackOff()
	}
	return backoff.NewExponentialBackOff()
}
