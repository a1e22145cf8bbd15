package cache

import "time"

// TTLPolicy holds the entry lifetimes used across the data layer.
//
// Row data changes often and gets the short TTL; the id-to-row metadata
// mapping and the administrator id change rarely and get the long TTL.
type TTLPolicy struct {
	// Default is the TTL used when no explicit lifetime applies.
	// Default: 1 hour
	Default time.Duration

	// Short is the TTL for frequently-changing row data.
	// Default: 5 minutes
	Short time.Duration

	// Long is the TTL for rarely-changing metadata.
	// Default: 24 hours
	Long time.Duration

	// Max caps every TTL. If zero, no maximum is enforced.
	Max time.Duration
}

// DefaultTTLPolicy returns the standard lifetimes.
func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		Default: time.Hour,
		Short:   5 * time.Minute,
		Long:    24 * time.Hour,
	}
}

// Effective returns the TTL to use, applying the default and clamping.
func (p TTLPolicy) Effective(override time.Duration) time.Duration {
	ttl := override
	if ttl <= 0 {
		ttl = p.Default
	}
	if p.Max > 0 && ttl > p.Max {
		ttl = p.Max
	}
	return ttl
}
