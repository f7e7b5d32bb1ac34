package controller

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Registration routes requests to the active generation and moves new
// generations through install and activation.
type Registration struct {
	// serialises Update
	m sync.Mutex

	active atomic.Pointer[Controller]
}

// NewRegistration returns a registration without an active generation.
func NewRegistration() *Registration {
	return &Registration{}
}

// Active returns the active generation, or nil.
func (r *Registration) Active() *Controller {
	return r.active.Load()
}

// Update installs next and activates it right away, without waiting for
// pages served by the current generation to go away. Once activated, next
// claims every page: all later requests are handled by it and the previous
// generation is superseded.
func (r *Registration) Update(ctx context.Context, next *Controller) (InstallReport, error) {
	r.m.Lock()
	defer r.m.Unlock()

	if cur := r.active.Load(); cur == next {
		return InstallReport{}, errors.Errorf("generation %v is already active", next.Version())
	}

	report, err := next.Install(ctx)
	if err != nil {
		return report, err
	}

	if _, err := next.Activate(ctx); err != nil {
		return report, err
	}

	prev := r.active.Swap(next)
	if prev != nil {
		prev.supersede()
	}
	log.Infof("generation %v claimed all pages", next.Version())

	return report, nil
}

// ServeHTTP delegates to the active generation.
func (r *Registration) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	c := r.Active()
	if c == nil {
		http.Error(w, "no active controller", http.StatusServiceUnavailable)
		return
	}
	c.ServeHTTP(w, req)
}
