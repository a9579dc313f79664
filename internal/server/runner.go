// Package server provides the background loops driving scheduled rescans
// and manifest cache maintenance.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vmunix/ytarr/internal/manifest"
	"github.com/vmunix/ytarr/internal/source"
	"github.com/vmunix/ytarr/internal/sync"
)

const (
	// pauseRecheck is how long the rescan loop waits before looking at the
	// pause flag again.
	pauseRecheck = 10 * time.Minute

	// sweepInterval is the fixed cadence of the cache-expiry sweep.
	sweepInterval = 30 * time.Minute

	// sweepWindow selects entries for refresh: anything expiring within it.
	sweepWindow = 30 * time.Minute

	// disabledRecheck is how long the sweep waits while maintenance is off
	// or nothing is tracked.
	disabledRecheck = 15 * time.Minute

	// refreshDelay spaces consecutive refreshes inside one sweep.
	refreshDelay = 15 * time.Second
)

// Runner manages the two background loops.
type Runner struct {
	registry *source.Registry
	engine   *sync.Engine
	resolver *manifest.Resolver
	log      *slog.Logger
}

// NewRunner creates a runner.
func NewRunner(registry *source.Registry, engine *sync.Engine, resolver *manifest.Resolver, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		registry: registry,
		engine:   engine,
		resolver: resolver,
		log:      log,
	}
}

// Run starts both loops and blocks until the context is canceled.
func (r *Runner) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.rescanLoop(ctx) })
	g.Go(func() error { return r.sweepLoop(ctx) })
	return g.Wait()
}

// rescanLoop drives full rescans of every tracked source, strictly
// sequentially: concurrent scans would multiply load on the upstream tool.
func (r *Runner) rescanLoop(ctx context.Context) error {
	log := r.log.With("component", "rescan")

	for {
		settings := r.registry.Settings()
		if settings.Paused {
			log.Info("background tasks paused")
			if err := sleep(ctx, pauseRecheck); err != nil {
				return err
			}
			continue
		}

		sources := r.registry.Snapshot()
		log.Info("rescan started", "sources", len(sources))

		for _, src := range sources {
			count, err := r.engine.Process(ctx, src)
			switch {
			case errors.Is(err, context.Canceled):
				return err
			case errors.Is(err, sync.ErrNoItems):
				log.Warn("no videos", "source", src.Descriptor.Name)
			case errors.Is(err, sync.ErrInFlight):
				log.Warn("skipping, sync already running", "source", src.Descriptor.Name)
			case err != nil:
				// Retried on the next scheduled cycle, never immediately.
				log.Error("sync failed", "source", src.Descriptor.Name, "error", err)
			case count > 0:
				log.Info("new videos", "source", src.Descriptor.Name, "count", count)
			}
		}

		interval := time.Duration(r.registry.Settings().CheckIntervalMinutes) * time.Minute
		if err := sleep(ctx, interval); err != nil {
			return err
		}
	}
}

// sweepLoop refreshes cached manifests that are about to expire, so
// playback rarely has to wait on a cold fetch.
func (r *Runner) sweepLoop(ctx context.Context) error {
	log := r.log.With("component", "sweep")

	for {
		settings := r.registry.Settings()
		if !settings.MaintainManifestCache || len(r.registry.Snapshot()) == 0 {
			if err := sleep(ctx, disabledRecheck); err != nil {
				return err
			}
			continue
		}

		r.sweep(ctx, log)

		if err := sleep(ctx, sweepInterval); err != nil {
			return err
		}
	}
}

func (r *Runner) sweep(ctx context.Context, log *slog.Logger) {
	store := r.resolver.Store()
	if err := store.Ensure(); err != nil {
		log.Error("cache dir unavailable", "error", err)
		return
	}

	ids, err := store.List()
	if err != nil {
		log.Error("cache enumeration failed", "error", err)
		return
	}

	refreshed := 0
	for _, id := range ids {
		entry, err := store.Load(id, time.Now())
		if err != nil {
			continue
		}
		if !entry.ExpiringWithin(time.Now(), sweepWindow) {
			continue
		}

		log.Info("refreshing manifest", "video", id)
		if _, err := r.resolver.Refresh(ctx, id); err != nil {
			log.Warn("refresh failed", "video", id, "error", err)
		}
		refreshed++

		if err := sleep(ctx, refreshDelay); err != nil {
			return
		}
	}

	log.Info("sweep finished", "checked", len(ids), "refreshed", refreshed)
}

// sleep waits for d or until the context is canceled.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
