// Package server exposes the active controller generation over HTTP.
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/skyline93/glbview/internal/controller"
	"github.com/skyline93/glbview/internal/handoff"
)

// Paths of the controller endpoints, relative to the application root.
const (
	MessagePath = ".glbview/message"
	SharedPath  = ".glbview/shared"
)

const (
	// readHeaderTimeout limits how long the server waits for request headers.
	readHeaderTimeout = 5 * time.Second
	// shutdownTimeout limits how long in-flight requests may take during
	// graceful shutdown.
	shutdownTimeout = 5 * time.Second

	maxMessageBytes = 4 << 10
)

// Config configures a server.
type Config struct {
	Addr string
	// Root is the application root path, with a trailing slash.
	Root string
}

// Server routes controller endpoints and hands every other request to the
// active generation.
type Server struct {
	addr       string
	slot       *handoff.Slot
	reg        *controller.Registration
	httpServer *http.Server
}

// New returns a server for reg. The hand-off endpoint consumes from slot.
func New(cfg Config, reg *controller.Registration, slot *handoff.Slot) (*Server, error) {
	if reg == nil {
		return nil, errors.New("registration is required")
	}
	if slot == nil {
		return nil, errors.New("hand-off slot is required")
	}
	root := cfg.Root
	if root == "" {
		root = "/"
	}
	if !strings.HasSuffix(root, "/") {
		root += "/"
	}

	s := &Server{addr: cfg.Addr, slot: slot, reg: reg}

	mux := http.NewServeMux()
	mux.HandleFunc(root+MessagePath, s.handleMessage)
	mux.HandleFunc(root+SharedPath, s.handleShared)
	mux.Handle("/", reg)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           logRequests(mux),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s, nil
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe serves until ctx is cancelled and then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	log.Infof("glbview listening on %s", s.addr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return errors.Wrap(err, "shutdown http server")
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "serve http")
	}
}

// handleMessage answers a page message with the reply of the active
// generation. Messages without a reply get 204.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var m controller.Message
	if err := json.NewDecoder(io.LimitReader(r.Body, maxMessageBytes)).Decode(&m); err != nil {
		http.Error(w, "invalid message", http.StatusBadRequest)
		return
	}

	c := s.reg.Active()
	if c == nil {
		http.Error(w, "no active controller", http.StatusServiceUnavailable)
		return
	}

	reply, ok := c.Message(m)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(reply); err != nil {
		log.Debugf("writing message reply: %v", err)
	}
}

// handleShared serves the pending shared payload to the page. GET returns
// it and leaves it pending, DELETE removes it once the page has loaded it.
// A DELETE carrying If-Match only removes the payload with that tag.
func (s *Server) handleShared(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.readShared(w, r)
	case http.MethodDelete:
		s.ackShared(w, r)
	default:
		w.Header().Set("Allow", "GET, HEAD, DELETE")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) readShared(w http.ResponseWriter, r *http.Request) {
	p, ok, err := s.slot.Peek()
	if err != nil {
		log.Warnf("read shared payload: %v", err)
		http.Error(w, "shared payload unavailable", http.StatusInternalServerError)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h := w.Header()
	h.Set("Content-Type", handoff.ContentType)
	h.Set("Content-Length", strconv.Itoa(len(p.Data)))
	h.Set("Cache-Control", "no-store")
	h.Set("ETag", `"`+p.Tag+`"`)
	if p.Filename != "" {
		h.Set("Content-Disposition", contentDisposition(p.Filename))
	}
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(p.Data); err != nil {
		log.Debugf("writing shared payload: %v", err)
	}
}

func (s *Server) ackShared(w http.ResponseWriter, r *http.Request) {
	tag := strings.Trim(r.Header.Get("If-Match"), `"`)
	if tag == "" {
		p, ok, err := s.slot.Peek()
		if err != nil {
			log.Warnf("read shared payload: %v", err)
			http.Error(w, "shared payload unavailable", http.StatusInternalServerError)
			return
		}
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		tag = p.Tag
	}

	if _, err := s.slot.Ack(tag); err != nil {
		log.Warnf("consume shared payload: %v", err)
		http.Error(w, "shared payload unavailable", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
