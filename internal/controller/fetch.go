package controller

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/skyline93/glbview/internal/backend"
	"github.com/skyline93/glbview/internal/cache"
)

// Handle answers an intercepted request. Share submissions are stored in
// the hand-off slot and GET requests are served network first with the
// generation's store as offline fallback. CONNECT tunnels are refused and
// other methods are passed through. Handle never returns nil.
func (c *Controller) Handle(req *http.Request) *http.Response {
	switch {
	case req.Method == http.MethodConnect:
		log.Debugf("refusing tunnel to %v", req.Host)
		return textResponse(req, http.StatusNotImplemented)
	case c.isShare(req):
		return c.handleShare(req)
	case req.Method == http.MethodGet:
		return c.networkFirst(req)
	default:
		return c.passthrough(req)
	}
}

// target returns the network URL and the request identity of req. Requests
// in absolute form (the page uses the controller as a proxy) keep their URL,
// all others are resolved against the origin.
func (c *Controller) target(req *http.Request) (*url.URL, string) {
	var u url.URL
	if req.URL.IsAbs() {
		u = *req.URL
	} else {
		u = *c.opts.Origin.ResolveReference(&url.URL{
			Path:     req.URL.Path,
			RawPath:  req.URL.RawPath,
			RawQuery: req.URL.RawQuery,
		})
	}
	u.Fragment = ""
	u.RawFragment = ""
	return &u, u.String()
}

func (c *Controller) networkFirst(req *http.Request) *http.Response {
	ctx := req.Context()
	target, key := c.target(req)

	resp, err := c.be.Fetch(ctx, backend.Outbound(ctx, req, target))
	if err != nil {
		log.Debugf("fetch %v failed, falling back to cache: %v", key, err)
		return c.fallback(req, key)
	}

	if resp.Header == nil {
		resp.Header = make(http.Header)
	}
	if !backend.OK(resp.StatusCode) {
		resp.Header.Set(CacheHeader, "miss")
		return resp
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.opts.MaxEntryBytes+1))
	if err != nil {
		_ = resp.Body.Close()
		log.Debugf("reading %v failed, falling back to cache: %v", key, err)
		return c.fallback(req, key)
	}

	if int64(len(body)) > c.opts.MaxEntryBytes {
		log.Infof("not caching %v: body exceeds %d bytes", key, c.opts.MaxEntryBytes)
		resp.Body = &prefixReadCloser{Reader: io.MultiReader(bytes.NewReader(body), resp.Body), Closer: resp.Body}
		resp.Header.Set(CacheHeader, "miss")
		return resp
	}
	_ = resp.Body.Close()

	snap := cache.NewSnapshot(key, resp, body)
	if err := c.store.Put(snap); err != nil {
		log.Warnf("caching %v failed: %v", key, err)
	}

	out := snap.Response(req)
	out.Header.Set(CacheHeader, "miss")
	return out
}

// fallback serves the captured snapshot for key, or a not found response.
func (c *Controller) fallback(req *http.Request, key string) *http.Response {
	snap, err := c.store.Match(key)
	if err != nil {
		if errors.Is(err, cache.ErrCorrupt) {
			log.Warnf("discarding damaged entry %v: %v", key, err)
			if ferr := c.store.Forget(key); ferr != nil {
				log.Warn(ferr)
			}
		} else if !errors.Is(err, cache.ErrNotFound) {
			log.Warnf("reading %v from cache failed: %v", key, err)
		}
		return notFound(req)
	}

	out := snap.Response(req)
	out.Header.Set(CacheHeader, "hit")
	return out
}

func (c *Controller) passthrough(req *http.Request) *http.Response {
	ctx := req.Context()
	target, key := c.target(req)

	resp, err := c.be.Fetch(ctx, backend.Outbound(ctx, req, target))
	if err != nil {
		log.Infof("%v %v failed: %v", req.Method, key, err)
		return textResponse(req, http.StatusBadGateway)
	}
	return resp
}

func notFound(req *http.Request) *http.Response {
	return textResponse(req, http.StatusNotFound)
}

func textResponse(req *http.Request, status int) *http.Response {
	body := http.StatusText(status)

	h := make(http.Header)
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Content-Length", strconv.Itoa(len(body)))

	return &http.Response{
		Status:        strconv.Itoa(status) + " " + body,
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        h,
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}

type prefixReadCloser struct {
	io.Reader
	io.Closer
}

// writeResponse copies resp to w and closes its body.
func writeResponse(w http.ResponseWriter, resp *http.Response) {
	defer resp.Body.Close()

	h := w.Header()
	for k, v := range resp.Header {
		h[k] = append([]string(nil), v...)
	}
	backend.RemoveHopHeaders(h)
	w.WriteHeader(resp.StatusCode)

	if resp.Request != nil && resp.Request.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		log.Debugf("writing response body: %v", err)
	}
}
