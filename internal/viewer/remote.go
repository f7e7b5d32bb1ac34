package viewer

import (
	"context"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/skyline93/glbview/internal/handoff"
)

// Remote consumes the pending payload from a running server.
type Remote struct {
	// Endpoint is the absolute URL of the server's consume endpoint.
	Endpoint string
	Client   *http.Client
}

// Peek implements Source.
func (r *Remote) Peek(ctx context.Context) (*handoff.Payload, bool, error) {
	resp, err := r.do(ctx, http.MethodGet, nil)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent:
		return nil, false, nil
	case http.StatusOK:
	default:
		return nil, false, errors.Errorf("read %v: unexpected status %v", r.Endpoint, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, errors.Wrap(err, "read payload")
	}

	p := &handoff.Payload{
		Data:     data,
		Received: time.Now().UTC(),
		Tag:      strings.Trim(resp.Header.Get("ETag"), `"`),
	}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		p.Filename = params["filename"]
	}
	return p, true, nil
}

// Ack implements Source. The server keeps a payload that was replaced
// since p was read.
func (r *Remote) Ack(ctx context.Context, p *handoff.Payload) error {
	h := http.Header{}
	h.Set("If-Match", `"`+p.Tag+`"`)

	resp, err := r.do(ctx, http.MethodDelete, h)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusOK:
		return nil
	default:
		return errors.Errorf("acknowledge %v: unexpected status %v", r.Endpoint, resp.Status)
	}
}

func (r *Remote) do(ctx context.Context, method string, h http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, r.Endpoint, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	for k, v := range h {
		req.Header[k] = v
	}

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%v %v", method, r.Endpoint)
	}
	return resp, nil
}
