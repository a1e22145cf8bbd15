package health

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jonwraymond/gridops/cache"
	"github.com/jonwraymond/gridops/resilience"
	"github.com/jonwraymond/gridops/store"
)

// CacheCheckerConfig configures the cache health checker.
type CacheCheckerConfig struct {
	// MaxSize is the cache's configured capacity, used to compute
	// occupancy. Required for occupancy checks; zero skips them.
	MaxSize int

	// OccupancyThreshold is the occupancy fraction above which the cache
	// is degraded. Default: 0.95
	OccupancyThreshold float64

	// MinRequests is how much traffic must accumulate before the hit rate
	// is judged. Default: 100
	MinRequests int64

	// MinHitRate is the hit rate below which the cache is degraded once
	// MinRequests have been served. Default: 0.2
	MinHitRate float64
}

// CacheChecker judges the cache by occupancy and hit rate. A full cache
// still serves, so it degrades rather than fails.
type CacheChecker struct {
	config CacheCheckerConfig
	stats  func() cache.Stats
}

// NewCacheChecker creates a cache checker reading stats through the given
// function.
func NewCacheChecker(config CacheCheckerConfig, stats func() cache.Stats) *CacheChecker {
	// Apply defaults
	if config.OccupancyThreshold <= 0 || config.OccupancyThreshold > 1 {
		config.OccupancyThreshold = 0.95
	}
	if config.MinRequests <= 0 {
		config.MinRequests = 100
	}
	if config.MinHitRate <= 0 || config.MinHitRate > 1 {
		config.MinHitRate = 0.2
	}

	return &CacheChecker{config: config, stats: stats}
}

func (c *CacheChecker) Name() string { return "cache" }

func (c *CacheChecker) Check(ctx context.Context) Result {
	stats := c.stats()
	details := map[string]any{
		"size":      stats.Size,
		"hit_rate":  stats.HitRate,
		"hits":      stats.Hits,
		"misses":    stats.Misses,
		"evictions": stats.Evictions,
	}

	if c.config.MaxSize > 0 {
		occupancy := float64(stats.Size) / float64(c.config.MaxSize)
		details["occupancy"] = occupancy
		if occupancy >= c.config.OccupancyThreshold {
			return Degraded(fmt.Sprintf("cache nearly full: %.0f%%", occupancy*100)).
				WithDetails(details)
		}
	}

	if total := stats.Hits + stats.Misses; total >= c.config.MinRequests && stats.HitRate < c.config.MinHitRate {
		return Degraded(fmt.Sprintf("cache hit rate low: %.1f%%", stats.HitRate*100)).
			WithDetails(details)
	}

	return Healthy("cache ok").WithDetails(details)
}

// StoreCheckerConfig configures the store health checker.
type StoreCheckerConfig struct {
	// MinCalls is how much traffic must accumulate before the failure
	// ratio is judged. Default: 10
	MinCalls int64

	// DegradedRatio is the failure ratio above which the store is
	// degraded. Default: 0.1
	DegradedRatio float64

	// UnhealthyRatio is the failure ratio above which the store is
	// unhealthy. Default: 0.5
	UnhealthyRatio float64
}

// StoreChecker judges the remote store by its cumulative failure ratio.
type StoreChecker struct {
	config StoreCheckerConfig
	stats  func() store.Stats
}

// NewStoreChecker creates a store checker reading stats through the given
// function.
func NewStoreChecker(config StoreCheckerConfig, stats func() store.Stats) *StoreChecker {
	// Apply defaults
	if config.MinCalls <= 0 {
		config.MinCalls = 10
	}
	if config.DegradedRatio <= 0 || config.DegradedRatio > 1 {
		config.DegradedRatio = 0.1
	}
	if config.UnhealthyRatio <= config.DegradedRatio || config.UnhealthyRatio > 1 {
		config.UnhealthyRatio = 0.5
	}

	return &StoreChecker{config: config, stats: stats}
}

func (c *StoreChecker) Name() string { return "store" }

func (c *StoreChecker) Check(ctx context.Context) Result {
	stats := c.stats()
	details := map[string]any{
		"api_calls":        stats.APICalls,
		"successful_calls": stats.SuccessfulCalls,
		"failed_calls":     stats.FailedCalls,
	}

	if stats.APICalls < c.config.MinCalls {
		return Healthy("store ok (low traffic)").WithDetails(details)
	}

	ratio := float64(stats.FailedCalls) / float64(stats.APICalls)
	details["failure_ratio"] = ratio

	switch {
	case ratio >= c.config.UnhealthyRatio:
		return Unhealthy(fmt.Sprintf("store failing: %.0f%% of calls", ratio*100), ErrCheckFailed).
			WithDetails(details)
	case ratio >= c.config.DegradedRatio:
		return Degraded(fmt.Sprintf("store errors elevated: %.0f%% of calls", ratio*100)).
			WithDetails(details)
	default:
		return Healthy("store ok").WithDetails(details)
	}
}

// LimiterCheckerConfig configures the rate-limiter health checker.
type LimiterCheckerConfig struct {
	// MaxCalls is the limiter's window capacity. Required; zero makes the
	// checker report healthy unconditionally.
	MaxCalls int

	// SaturationThreshold is the window occupancy fraction above which the
	// limiter is degraded. Default: 0.9
	SaturationThreshold float64
}

// LimiterChecker judges the rate limiter by window saturation. A saturated
// window means callers are queueing behind the admission controller.
type LimiterChecker struct {
	config  LimiterCheckerConfig
	limiter *resilience.Limiter
}

// NewLimiterChecker creates a limiter checker.
func NewLimiterChecker(config LimiterCheckerConfig, limiter *resilience.Limiter) *LimiterChecker {
	if config.SaturationThreshold <= 0 || config.SaturationThreshold > 1 {
		config.SaturationThreshold = 0.9
	}
	return &LimiterChecker{config: config, limiter: limiter}
}

func (c *LimiterChecker) Name() string { return "rate_limiter" }

func (c *LimiterChecker) Check(ctx context.Context) Result {
	pending := c.limiter.Pending()
	stats := c.limiter.Stats()
	details := map[string]any{
		"pending":     pending,
		"total_calls": stats.TotalCalls,
		"waits":       stats.Waits,
		"avg_wait":    stats.AvgWait.String(),
	}

	if c.config.MaxCalls > 0 {
		saturation := float64(pending) / float64(c.config.MaxCalls)
		details["saturation"] = saturation
		if saturation >= c.config.SaturationThreshold {
			return Degraded(fmt.Sprintf("rate limit window saturated: %.0f%%", saturation*100)).
				WithDetails(details)
		}
	}

	return Healthy("rate limiter ok").WithDetails(details)
}

// SnapshotCheckerConfig configures the snapshot freshness checker.
type SnapshotCheckerConfig struct {
	// Path is the snapshot file location. Required.
	Path string

	// MaxAge is how stale the snapshot may be before the checker degrades.
	// Default: 3 hours
	MaxAge time.Duration
}

// SnapshotChecker judges crash-recovery readiness by the age of the last
// cache snapshot. A missing snapshot only degrades, since the snapshot is
// an optimization, not a source of truth.
type SnapshotChecker struct {
	config SnapshotCheckerConfig
}

// NewSnapshotChecker creates a snapshot freshness checker.
func NewSnapshotChecker(config SnapshotCheckerConfig) *SnapshotChecker {
	if config.MaxAge <= 0 {
		config.MaxAge = 3 * time.Hour
	}
	return &SnapshotChecker{config: config}
}

func (c *SnapshotChecker) Name() string { return "snapshot" }

func (c *SnapshotChecker) Check(ctx context.Context) Result {
	info, err := os.Stat(c.config.Path)
	if err != nil {
		return Degraded("no snapshot on disk").WithDetails(map[string]any{
			"path": c.config.Path,
		})
	}

	age := time.Since(info.ModTime())
	details := map[string]any{
		"path":       c.config.Path,
		"age":        age.Round(time.Second).String(),
		"size_bytes": info.Size(),
	}

	if age > c.config.MaxAge {
		return Degraded(fmt.Sprintf("snapshot stale: %s old", age.Round(time.Minute))).
			WithDetails(details)
	}
	return Healthy("snapshot fresh").WithDetails(details)
}
