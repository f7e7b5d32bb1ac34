// Package controller implements one generation of the cache controller: it
// installs the manifest into its versioned store, answers intercepted
// requests network first with an offline fallback, accepts shared files
// and cleans up older generations when it is activated.
package controller

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	"github.com/skyline93/glbview/internal/backend"
	"github.com/skyline93/glbview/internal/cache"
	"github.com/skyline93/glbview/internal/config"
	"github.com/skyline93/glbview/internal/handoff"
)

// CacheHeader tells the page where a response came from.
const CacheHeader = "X-Glbview-Cache"

// ErrPhase is returned when a lifecycle step is attempted out of order.
var ErrPhase = errors.New("invalid lifecycle phase")

// Options configure a generation.
type Options struct {
	AppID   string
	Version string

	// Origin resolves origin-relative request identities.
	Origin *url.URL
	// Root is the path of the application root document. Share submissions
	// target it and are redirected back to it.
	Root string
	// Manifest lists the absolute URLs cached on install.
	Manifest []string

	InstallConcurrency int
	InstallRetries     uint64
	MaxEntryBytes      int64
	MaxShareBytes      int64

	// NewBackOff overrides the install retry backoff, for tests.
	NewBackOff func() backoff.BackOff
}

// OptionsFromConfig derives generation options from cfg.
func OptionsFromConfig(cfg config.Config) (Options, error) {
	origin, err := cfg.OriginURL()
	if err != nil {
		return Options{}, err
	}
	manifest, err := cfg.ResolveManifest()
	if err != nil {
		return Options{}, err
	}

	return Options{
		AppID:              cfg.AppID,
		Version:            cfg.Version,
		Origin:             origin,
		Root:               cfg.Root(),
		Manifest:           manifest,
		InstallConcurrency: cfg.InstallConcurrency,
		InstallRetries:     cfg.InstallRetries,
		MaxEntryBytes:      cfg.MaxEntryBytes,
		MaxShareBytes:      cfg.MaxShareBytes,
	}, nil
}

// Controller is one generation of the cache controller.
type Controller struct {
	opts Options

	storage *cache.Storage
	store   *cache.Store
	slot    *handoff.Slot

	be        backend.Backend
	installer backend.Backend

	m     sync.Mutex
	phase Phase
}

// New returns a generation that fetches through be and keeps its entries in
// storage. The generation starts in the Parsed phase.
func New(storage *cache.Storage, be backend.Backend, opts Options) (*Controller, error) {
	if opts.Version == "" {
		return nil, errors.New("version is required")
	}
	if opts.Origin == nil {
		return nil, errors.New("origin is required")
	}
	if opts.Root == "" {
		opts.Root = "/"
	}
	if opts.InstallConcurrency < 1 {
		opts.InstallConcurrency = 1
	}
	if opts.MaxEntryBytes <= 0 || opts.MaxShareBytes <= 0 {
		return nil, errors.New("size limits must be positive")
	}

	store, err := storage.Open(config.StoreName(opts.AppID, opts.Version))
	if err != nil {
		return nil, err
	}
	slot, err := handoff.Open(storage)
	if err != nil {
		return nil, err
	}

	return &Controller{
		opts:    opts,
		storage: storage,
		store:   store,
		slot:    slot,
		be:      be,
		installer: &backend.Retry{
			Backend:    be,
			MaxRetries: opts.InstallRetries,
			NewBackOff: opts.NewBackOff,
		},
	}, nil
}

// Version returns the version string of the generation.
func (c *Controller) Version() string {
	return c.opts.Version
}

// StoreName returns the name of the store owned by the generation.
func (c *Controller) StoreName() string {
	return c.store.Name()
}

// Phase returns the current lifecycle phase.
func (c *Controller) Phase() Phase {
	c.m.Lock()
	defer c.m.Unlock()
	return c.phase
}

func (c *Controller) transition(from, to Phase) error {
	c.m.Lock()
	defer c.m.Unlock()

	if c.phase != from {
		return errors.Wrapf(ErrPhase, "generation %v is %v, want %v", c.opts.Version, c.phase, from)
	}
	c.phase = to
	return nil
}

func (c *Controller) setPhase(p Phase) {
	c.m.Lock()
	c.phase = p
	c.m.Unlock()
}

// ServeHTTP writes the response of Handle to w.
func (c *Controller) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	writeResponse(w, c.Handle(req))
}
