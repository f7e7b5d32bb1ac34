package controller

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/skyline93/glbview/internal/handoff"
)

// Activate deletes every store other than this generation's and the hand-off
// store, then marks the generation Active. Deletion failures are logged and
// do not prevent activation. It returns the names of the deleted stores.
func (c *Controller) Activate(ctx context.Context) ([]string, error) {
	if err := c.transition(Waiting, Active); err != nil {
		return nil, err
	}

	deleted, err := c.prune(ctx)
	if err != nil {
		log.Warnf("activate %v: %v", c.opts.Version, err)
	}

	log.Infof("generation %v active, deleted %d stores", c.opts.Version, len(deleted))
	return deleted, nil
}

// Prune runs the store cleanup of Activate without changing the phase.
func (c *Controller) Prune(ctx context.Context) ([]string, error) {
	return c.prune(ctx)
}

func (c *Controller) prune(ctx context.Context) ([]string, error) {
	names, err := c.storage.Names()
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		deleted []string
	)

	wg, wgCtx := errgroup.WithContext(ctx)
	wg.SetLimit(4)
	for _, name := range names {
		if name == c.store.Name() || name == handoff.StoreName {
			continue
		}

		name := name
		wg.Go(func() error {
			if wgCtx.Err() != nil {
				return nil
			}
			ok, err := c.storage.Delete(name)
			if err != nil {
				log.Warnf("deleting store %v: %v", name, err)
				return nil
			}
			if ok {
				mu.Lock()
				deleted = append(deleted, name)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = wg.Wait()

	return deleted, ctx.Err()
}

// supersede retires a generation that was replaced by a newer one.
func (c *Controller) supersede() {
	c.setPhase(Superseded)
	log.Infof("generation %v superseded", c.opts.Version)
}
