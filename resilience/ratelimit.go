package resilience

import (
	"context"
	"sync"
	"time"
)

// LimiterConfig configures the sliding-window rate limiter.
type LimiterConfig struct {
	// MaxCalls is the maximum number of grants within any trailing Window.
	// Default: 100
	MaxCalls int

	// Window is the length of the sliding window.
	// Default: 1 minute
	Window time.Duration

	// Epsilon is slack added to computed waits so a re-check after sleeping
	// lands strictly past the oldest grant's expiry.
	// Default: 100ms
	Epsilon time.Duration
}

// LimiterStats reports cumulative limiter activity.
type LimiterStats struct {
	// TotalCalls is the number of grants handed out.
	TotalCalls int64

	// Waits is the number of Acquire calls that had to block.
	Waits int64

	// AvgWait is the running average time blocked callers waited.
	AvgWait time.Duration
}

// Limiter is a sliding-window admission controller. Every outbound call to
// the remote store must acquire a slot before going on the wire.
//
// Contract:
// - Concurrency: safe for concurrent use; grant bookkeeping is serialized.
// - Blocking: Acquire blocks until a grant is legal; it fails only when the
//   context is canceled. Starvation is bounded by Window.
// - Invariant: no trailing window of length Window ever holds more than
//   MaxCalls grants.
type Limiter struct {
	config LimiterConfig

	mu     sync.Mutex
	grants []time.Time

	totalCalls int64
	waits      int64
	totalWait  time.Duration
}

// NewLimiter creates a new sliding-window rate limiter.
func NewLimiter(config LimiterConfig) *Limiter {
	// Apply defaults
	if config.MaxCalls <= 0 {
		config.MaxCalls = 100
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}
	if config.Epsilon <= 0 {
		config.Epsilon = 100 * time.Millisecond
	}

	return &Limiter{
		config: config,
		grants: make([]time.Time, 0, config.MaxCalls),
	}
}

// Acquire blocks until a call can legally be made without exceeding
// MaxCalls within the trailing Window, then records the grant and returns
// its timestamp.
//
// Multiple callers may be queued; each wakes, re-prunes, and re-checks the
// window rather than assuming the slot it slept for is still free.
func (l *Limiter) Acquire(ctx context.Context) (time.Time, error) {
	waited := time.Duration(0)
	hadToWait := false

	for {
		if err := ctx.Err(); err != nil {
			return time.Time{}, err
		}

		l.mu.Lock()
		now := time.Now()
		l.pruneLocked(now)

		if len(l.grants) < l.config.MaxCalls {
			l.grants = append(l.grants, now)
			l.totalCalls++
			if hadToWait {
				l.waits++
				l.totalWait += waited
			}
			l.mu.Unlock()
			return now, nil
		}

		oldest := l.grants[0]
		wait := l.config.Window - now.Sub(oldest) + l.config.Epsilon
		l.mu.Unlock()

		if wait < l.config.Epsilon {
			wait = l.config.Epsilon
		}
		hadToWait = true

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return time.Time{}, ctx.Err()
		case <-timer.C:
			waited += wait
		}
	}
}

// pruneLocked drops grants older than the window. Callers hold l.mu.
func (l *Limiter) pruneLocked(now time.Time) {
	cutoff := now.Add(-l.config.Window)
	i := 0
	for i < len(l.grants) && !l.grants[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.grants = append(l.grants[:0], l.grants[i:]...)
	}
}

// Config returns the limiter configuration.
func (l *Limiter) Config() LimiterConfig {
	return l.config
}

// Pending returns the number of grants currently inside the window.
func (l *Limiter) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked(time.Now())
	return len(l.grants)
}

// Stats returns cumulative limiter statistics.
func (l *Limiter) Stats() LimiterStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := LimiterStats{
		TotalCalls: l.totalCalls,
		Waits:      l.waits,
	}
	if l.waits > 0 {
		stats.AvgWait = l.totalWait / time.Duration(l.waits)
	}
	return stats
}
