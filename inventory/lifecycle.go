package inventory

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"github.com/jonwraymond/gridops/cache"
	"github.com/jonwraymond/gridops/health"
	"github.com/jonwraymond/gridops/observe"
	"github.com/jonwraymond/gridops/resilience"
	"github.com/jonwraymond/gridops/store"
)

// SystemStats aggregates the health-relevant counters of every layer.
type SystemStats struct {
	Cache       cache.Stats             `json:"cache"`
	Store       store.Stats             `json:"store"`
	RateLimiter resilience.LimiterStats `json:"rate_limiter"`
	Uptime      string                  `json:"uptime,omitempty"`
}

// Initialize prepares the service for traffic: it seeds the cache from the
// last snapshot if one exists, warms the metadata and row caches, and
// starts the background janitor. A failed warm-up is logged but does not
// abort startup, since every path recovers lazily on first use.
func (s *Service) Initialize(ctx context.Context) error {
	s.startedAt = time.Now()

	if s.config.SnapshotPath != "" {
		snap, err := cache.ReadSnapshotFile(s.config.SnapshotPath)
		switch {
		case err == nil:
			admitted := s.cache.Restore(snap)
			s.logger.Info(ctx, "cache restored from snapshot",
				observe.F("entries", admitted),
				observe.F("taken_at", snap.BackupTime.Format(time.RFC3339)),
			)
		case errors.Is(err, fs.ErrNotExist):
			// First run, nothing to restore.
		default:
			s.logger.Warn(ctx, "cache snapshot unusable, starting cold",
				observe.F("error", err.Error()),
			)
		}
	}

	if err := s.WarmDailyCaches(ctx); err != nil {
		s.logger.Warn(ctx, "cache warm-up failed, serving lazily",
			observe.F("error", err.Error()),
		)
	}

	s.janitor = cache.NewJanitor(s.cache, cache.JanitorConfig{
		SweepInterval:    s.config.SweepInterval,
		SnapshotInterval: s.config.SnapshotInterval,
		SnapshotPath:     s.config.SnapshotPath,
		OnSweep: func(removed int) {
			s.metrics.RecordEvictions(context.Background(), removed)
			if removed > 0 {
				s.logger.Debug(context.Background(), "cache swept",
					observe.F("removed", removed),
				)
			}
		},
		OnError: func(err error) {
			s.logger.Error(context.Background(), "cache snapshot failed",
				observe.F("error", err.Error()),
			)
		},
	})
	s.janitor.Start()

	s.logger.Info(ctx, "inventory service initialized")
	return nil
}

// WarmDailyCaches primes the long-lived metadata entries and the full row
// cache so the first user interactions after startup are all hits.
func (s *Service) WarmDailyCaches(ctx context.Context) error {
	if _, err := s.Metadata(ctx); err != nil {
		return err
	}
	if _, err := s.AdminID(ctx); err != nil {
		return err
	}
	if _, err := s.BatchUserData(ctx); err != nil {
		return err
	}
	return nil
}

// Shutdown stops the janitor, which writes a final snapshot before
// returning. Safe to call without a prior Initialize.
func (s *Service) Shutdown(ctx context.Context) {
	if s.janitor != nil {
		s.janitor.Stop()
	}
	s.logger.Info(ctx, "inventory service stopped")
}

// HealthAggregator builds the standard checker set over this service's
// components, suitable for the probe handlers in the health package.
func (s *Service) HealthAggregator() *health.Aggregator {
	agg := health.NewAggregator(health.AggregatorConfig{})

	agg.Register("cache", health.NewCacheChecker(
		health.CacheCheckerConfig{MaxSize: s.cache.Cap()},
		s.cache.Stats,
	))
	agg.Register("store", health.NewStoreChecker(
		health.StoreCheckerConfig{},
		s.store.Stats,
	))
	if s.config.Limiter != nil {
		agg.Register("rate_limiter", health.NewLimiterChecker(
			health.LimiterCheckerConfig{MaxCalls: s.config.Limiter.Config().MaxCalls},
			s.config.Limiter,
		))
	}
	if s.config.SnapshotPath != "" {
		agg.Register("snapshot", health.NewSnapshotChecker(health.SnapshotCheckerConfig{
			Path:   s.config.SnapshotPath,
			MaxAge: 3 * s.config.SnapshotInterval,
		}))
	}
	return agg
}

// Health runs the standard checker set once and folds the results into an
// overall status.
func (s *Service) Health(ctx context.Context) (health.Status, map[string]health.Result) {
	agg := s.HealthAggregator()
	results := agg.CheckAll(ctx)
	return agg.OverallStatus(results), results
}

// SystemStats reports the counters of the cache, store client, and rate
// limiter in one snapshot.
func (s *Service) SystemStats() SystemStats {
	stats := SystemStats{
		Cache: s.cache.Stats(),
		Store: s.store.Stats(),
	}
	if s.config.Limiter != nil {
		stats.RateLimiter = s.config.Limiter.Stats()
	}
	if !s.startedAt.IsZero() {
		stats.Uptime = time.Since(s.startedAt).Round(time.Second).String()
	}
	return stats
}
