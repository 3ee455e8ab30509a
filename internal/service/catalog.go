package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/roadwatch/backend/internal/domain"
	"github.com/roadwatch/backend/internal/metrics"
)

// HazardCatalog holds the current catalog snapshot. Snapshots are immutable and
// a reload swaps in a whole new one.
type HazardCatalog struct {
	provider HazardProvider
	timeout  time.Duration
	log      logrus.FieldLogger

	mu       sync.RWMutex
	snapshot *domain.Catalog
	subs     map[int]func(*domain.Catalog)
	nextSub  int
}

// NewHazardCatalog creates an empty catalog backed by provider. timeout bounds
// each Load (0 = caller's context only).
func NewHazardCatalog(provider HazardProvider, timeout time.Duration, log logrus.FieldLogger) *HazardCatalog {
	return &HazardCatalog{
		provider: provider,
		timeout:  timeout,
		log:      loggerOrDefault(log).WithField("component", "catalog"),
		snapshot: domain.EmptyCatalog(),
		subs:     make(map[int]func(*domain.Catalog)),
	}
}

// Load fetches zones and fixed hazards concurrently. A failed endpoint
// contributes nothing; the error returned then wraps ErrCatalogUnavailable.
// The new snapshot is installed even on partial failure. When every endpoint
// fails the previous non-empty snapshot is kept.
func (c *HazardCatalog) Load(ctx context.Context) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var (
		zones []domain.HazardZone
		fixed []domain.FixedHazard
		wg    sync.WaitGroup
		mu    sync.Mutex
		errs  []error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		z, err := c.provider.Zones(ctx)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			errs = append(errs, fmt.Errorf("zones: %w", err))
			return
		}
		zones = z
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		f, err := c.provider.FixedHazards(ctx)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			errs = append(errs, fmt.Errorf("fixed hazards: %w", err))
			return
		}
		fixed = f
	}()

	wg.Wait()
	metrics.CatalogLoads.Add(1)

	if len(errs) == 2 {
		if current := c.Snapshot(); !current.IsEmpty() {
			metrics.CatalogFailures.Add(1)
			err := fmt.Errorf("catalog: %w: %w", domain.ErrCatalogUnavailable, errors.Join(errs...))
			c.log.WithError(err).WithFields(logrus.Fields{
				"zones": current.ZoneCount(),
				"fixed": current.FixedCount(),
			}).Warn("Hazard provider unavailable, keeping last known catalog")
			return err
		}
	}

	catalog := domain.NewCatalog(c.validZones(zones), c.validFixed(fixed), time.Now())
	c.install(catalog)

	if len(errs) > 0 {
		metrics.CatalogFailures.Add(1)
		err := fmt.Errorf("catalog: %w: %w", domain.ErrCatalogUnavailable, errors.Join(errs...))
		c.log.WithError(err).WithFields(logrus.Fields{
			"zones": catalog.ZoneCount(),
			"fixed": catalog.FixedCount(),
		}).Warn("Hazard catalog loaded with failures, treating missing data as no known hazards")
		return err
	}

	c.log.WithFields(logrus.Fields{
		"zones": catalog.ZoneCount(),
		"fixed": catalog.FixedCount(),
	}).Info("Hazard catalog loaded")
	return nil
}

// Snapshot returns the current catalog; never nil.
func (c *HazardCatalog) Snapshot() *domain.Catalog {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// Subscribe registers fn for every installed snapshot.
func (c *HazardCatalog) Subscribe(fn func(*domain.Catalog)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Stats fetches the summary figures. Each figure is fetched independently and
// left nil when its endpoint fails.
func (c *HazardCatalog) Stats(ctx context.Context) domain.HazardStats {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	stats := domain.HazardStats{RiskAccidents: c.Snapshot().RiskAccidents()}
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		pct, err := c.provider.FatalityPercent(ctx)
		if err != nil {
			c.log.WithError(err).Warn("Fatality percentage unavailable")
			return
		}
		mu.Lock()
		stats.FatalityPercent = &pct
		mu.Unlock()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		deaths, accidents, err := c.provider.DeathCount(ctx)
		if err != nil {
			c.log.WithError(err).Warn("Death count unavailable")
			return
		}
		mu.Lock()
		stats.Deaths = &deaths
		stats.Accidents = &accidents
		mu.Unlock()
	}()

	wg.Wait()
	return stats
}

// StartRefresh reloads the catalog every interval until ctx is done.
func (c *HazardCatalog) StartRefresh(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_ = c.Load(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()

	c.log.WithField("interval", interval).Info("Catalog refresh started")
}

func (c *HazardCatalog) install(catalog *domain.Catalog) {
	c.mu.Lock()
	c.snapshot = catalog
	subs := make([]func(*domain.Catalog), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(catalog)
	}
}

func (c *HazardCatalog) validZones(in []domain.HazardZone) []domain.HazardZone {
	out := make([]domain.HazardZone, 0, len(in))
	for _, z := range in {
		if err := z.Location.Validate(); err != nil {
			c.log.WithError(err).Warn("Skipping hazard zone with invalid location")
			continue
		}
		if z.Severity < 0 {
			c.log.WithField("severity", z.Severity).Warn("Skipping hazard zone with negative severity")
			continue
		}
		out = append(out, z)
	}
	return out
}

func (c *HazardCatalog) validFixed(in []domain.FixedHazard) []domain.FixedHazard {
	out := make([]domain.FixedHazard, 0, len(in))
	for _, f := range in {
		if err := f.Location.Validate(); err != nil {
			c.log.WithError(err).Warn("Skipping fixed hazard with invalid location")
			continue
		}
		out = append(out, f)
	}
	return out
}
