package controller

import (
	"context"
	"io"
	"sort"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/skyline93/glbview/internal/backend"
	"github.com/skyline93/glbview/internal/cache"
)

// InstallReport lists which manifest entries were cached on install.
type InstallReport struct {
	Stored []string
	Failed []string
}

// Install fetches every manifest entry into the generation's store. A
// failing entry is logged and recorded in the report but does not fail the
// install. Afterwards the generation is Waiting and eligible to activate.
// Install only fails when called out of order or when ctx is cancelled, in
// which case the generation is Superseded.
func (c *Controller) Install(ctx context.Context) (InstallReport, error) {
	if err := c.transition(Parsed, Installing); err != nil {
		return InstallReport{}, err
	}

	log.Infof("installing generation %v into %v (%d assets)", c.opts.Version, c.store.Name(), len(c.opts.Manifest))

	report := c.cacheManifest(ctx)

	if err := ctx.Err(); err != nil {
		c.setPhase(Superseded)
		return report, errors.Wrapf(err, "install %v", c.opts.Version)
	}

	c.setPhase(Waiting)
	log.Infof("generation %v installed: %d stored, %d failed", c.opts.Version, len(report.Stored), len(report.Failed))
	return report, nil
}

// cacheManifest runs a pool of workers that fetch and store manifest
// entries. It stops handing out work when ctx is cancelled.
func (c *Controller) cacheManifest(ctx context.Context) InstallReport {
	var (
		mu     sync.Mutex
		report InstallReport
	)
	record := func(key string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			log.Warnf("install %v: caching %v failed: %v", c.opts.Version, key, err)
			report.Failed = append(report.Failed, key)
			return
		}
		report.Stored = append(report.Stored, key)
	}

	jobs := make(chan string)
	wg, wgCtx := errgroup.WithContext(ctx)
	for i := 0; i < c.opts.InstallConcurrency; i++ {
		wg.Go(func() error {
			for key := range jobs {
				record(key, c.cacheAsset(wgCtx, key))
			}
			return nil
		})
	}

	seen := make(map[string]struct{}, len(c.opts.Manifest))
	for _, key := range c.opts.Manifest {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		select {
		case jobs <- key:
		case <-ctx.Done():
			record(key, ctx.Err())
		}
	}
	close(jobs)
	_ = wg.Wait()

	sort.Strings(report.Stored)
	sort.Strings(report.Failed)
	return report
}

func (c *Controller) cacheAsset(ctx context.Context, key string) error {
	req, err := backend.Get(ctx, key)
	if err != nil {
		return errors.WithStack(err)
	}

	resp, err := c.installer.Fetch(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.opts.MaxEntryBytes+1))
	if err != nil {
		return errors.Wrap(err, "read body")
	}
	if int64(len(body)) > c.opts.MaxEntryBytes {
		return errors.Errorf("body exceeds %d bytes", c.opts.MaxEntryBytes)
	}

	return c.store.Put(cache.NewSnapshot(key, resp, body))
}
