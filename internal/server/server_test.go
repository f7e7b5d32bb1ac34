package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyline93/glbview/internal/backend"
	"github.com/skyline93/glbview/internal/cache"
	"github.com/skyline93/glbview/internal/controller"
	"github.com/skyline93/glbview/internal/handoff"
)

func newTestServer(t *testing.T, root string, be backend.Backend) *Server {
	t.Helper()

	storage, err := cache.New(t.TempDir())
	require.NoError(t, err)
	slot, err := handoff.Open(storage)
	require.NoError(t, err)

	origin, err := url.Parse("https://viewer.example")
	require.NoError(t, err)
	c, err := controller.New(storage, be, controller.Options{
		AppID:         "glb-viewer",
		Version:       "0.2.0",
		Origin:        origin,
		Root:          root,
		MaxEntryBytes: 1 << 20,
		MaxShareBytes: 1 << 20,
	})
	require.NoError(t, err)

	reg := controller.NewRegistration()
	_, err = reg.Update(context.Background(), c)
	require.NoError(t, err)

	s, err := New(Config{Addr: "localhost:0", Root: root}, reg, slot)
	require.NoError(t, err)
	return s
}

func offline() backend.Backend {
	return backend.Func(func(ctx context.Context, req *http.Request) (*http.Response, error) {
		return nil, errors.New("offline")
	})
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func TestVersionMessage(t *testing.T) {
	s := newTestServer(t, "/", offline())

	rr := serve(s, httptest.NewRequest(http.MethodPost, "/.glbview/message", strings.NewReader(`{"type":"GET_VERSION"}`)))
	require.Equal(t, http.StatusOK, rr.Code)

	var reply controller.Message
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &reply))
	assert.Equal(t, controller.Message{Type: "VERSION", Version: "0.2.0"}, reply)
}

func TestUnknownMessageHasNoReply(t *testing.T) {
	s := newTestServer(t, "/", offline())

	rr := serve(s, httptest.NewRequest(http.MethodPost, "/.glbview/message", strings.NewReader(`{"type":"HELLO"}`)))
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String())

	rr = serve(s, httptest.NewRequest(http.MethodPost, "/.glbview/message", strings.NewReader(`not json`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(s, httptest.NewRequest(http.MethodGet, "/.glbview/message", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestShareThenConsume(t *testing.T) {
	s := newTestServer(t, "/viewer/", offline())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "scene.glb")
	require.NoError(t, err)
	_, err = fw.Write([]byte("glTF-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/viewer/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := serve(s, req)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/viewer/", rr.Header().Get("Location"))

	// reading leaves the payload pending
	for i := 0; i < 2; i++ {
		rr = serve(s, httptest.NewRequest(http.MethodGet, "/viewer/.glbview/shared", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "glTF-bytes", rr.Body.String())
		assert.Equal(t, handoff.ContentType, rr.Header().Get("Content-Type"))
		assert.Contains(t, rr.Header().Get("Content-Disposition"), "scene.glb")
	}
	etag := rr.Header().Get("ETag")
	require.NotEmpty(t, etag)

	ack := httptest.NewRequest(http.MethodDelete, "/viewer/.glbview/shared", nil)
	ack.Header.Set("If-Match", etag)
	rr = serve(s, ack)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = serve(s, httptest.NewRequest(http.MethodGet, "/viewer/.glbview/shared", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = serve(s, httptest.NewRequest(http.MethodPost, "/viewer/.glbview/shared", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestStaleAckKeepsNewerShare(t *testing.T) {
	s := newTestServer(t, "/", offline())
	require.NoError(t, s.slot.Put(handoff.Payload{Filename: "first.glb", Data: []byte("one")}))

	rr := serve(s, httptest.NewRequest(http.MethodGet, "/.glbview/shared", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	stale := rr.Header().Get("ETag")

	require.NoError(t, s.slot.Put(handoff.Payload{Filename: "second.glb", Data: []byte("two")}))

	ack := httptest.NewRequest(http.MethodDelete, "/.glbview/shared", nil)
	ack.Header.Set("If-Match", stale)
	rr = serve(s, ack)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = serve(s, httptest.NewRequest(http.MethodGet, "/.glbview/shared", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "two", rr.Body.String())
}

func TestOtherRequestsReachController(t *testing.T) {
	be := backend.Func(func(ctx context.Context, req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"text/html"}},
			Body:       io.NopCloser(strings.NewReader("<html>" + req.URL.Path)),
			Request:    req,
		}, nil
	})
	s := newTestServer(t, "/", be)

	rr := serve(s, httptest.NewRequest(http.MethodGet, "/index.html", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "<html>/index.html", rr.Body.String())
	assert.Equal(t, "miss", rr.Header().Get(controller.CacheHeader))
}

func TestOfflineUnknownAssetIsNotFound(t *testing.T) {
	s := newTestServer(t, "/", offline())

	rr := serve(s, httptest.NewRequest(http.MethodGet, "/models/unknown.glb", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Config{}, nil, nil)
	assert.Error(t, err)
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	s := newTestServer(t, "/", offline())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()

	cancel()
	assert.NoError(t, <-done)
}
