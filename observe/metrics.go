package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records cache, store, and rate-limiter activity.
//
// A nil *Metrics is valid and records nothing, so components can hold one
// without null checks at every call site.
type Metrics struct {
	storeCalls    metric.Int64Counter
	storeDuration metric.Float64Histogram
	cacheRequests metric.Int64Counter
	cacheEvicted  metric.Int64Counter
	rateWaits     metric.Int64Counter
	rateWaitTime  metric.Float64Histogram
}

// NewMetrics creates the domain instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	storeCalls, err := meter.Int64Counter(
		"grid.store.calls",
		metric.WithDescription("Outbound calls to the remote grid store"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	storeDuration, err := meter.Float64Histogram(
		"grid.store.call_duration_ms",
		metric.WithDescription("Remote store call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	cacheRequests, err := meter.Int64Counter(
		"grid.cache.requests",
		metric.WithDescription("Cache lookups by result"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	cacheEvicted, err := meter.Int64Counter(
		"grid.cache.evictions",
		metric.WithDescription("Entries removed by eviction or expiry sweep"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	rateWaits, err := meter.Int64Counter(
		"grid.ratelimit.waits",
		metric.WithDescription("Acquisitions that had to block for a window slot"),
		metric.WithUnit("{wait}"),
	)
	if err != nil {
		return nil, err
	}

	rateWaitTime, err := meter.Float64Histogram(
		"grid.ratelimit.wait_ms",
		metric.WithDescription("Time spent blocked waiting for a window slot"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		storeCalls:    storeCalls,
		storeDuration: storeDuration,
		cacheRequests: cacheRequests,
		cacheEvicted:  cacheEvicted,
		rateWaits:     rateWaits,
		rateWaitTime:  rateWaitTime,
	}, nil
}

// RecordStoreCall records one outbound store call and its outcome.
func (m *Metrics) RecordStoreCall(ctx context.Context, op string, duration time.Duration, err error) {
	if m == nil {
		return
	}

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	opt := metric.WithAttributes(
		attribute.String("grid.op", op),
		attribute.String("grid.outcome", outcome),
	)

	m.storeCalls.Add(ctx, 1, opt)
	m.storeDuration.Record(ctx, float64(duration.Milliseconds()), opt)
}

// RecordCacheAccess records one cache lookup.
func (m *Metrics) RecordCacheAccess(ctx context.Context, hit bool) {
	if m == nil {
		return
	}

	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheRequests.Add(ctx, 1, metric.WithAttributes(attribute.String("grid.result", result)))
}

// RecordEvictions records entries removed by eviction or sweep.
func (m *Metrics) RecordEvictions(ctx context.Context, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.cacheEvicted.Add(ctx, int64(n))
}

// RecordRateWait records one blocked acquisition and how long it waited.
func (m *Metrics) RecordRateWait(ctx context.Context, wait time.Duration) {
	if m == nil {
		return
	}
	m.rateWaits.Add(ctx, 1)
	m.rateWaitTime.Record(ctx, float64(wait.Milliseconds()))
}
