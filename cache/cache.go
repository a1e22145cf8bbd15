package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrNilCache        = errors.New("cache: cache is nil")
	ErrInvalidKey      = errors.New("cache: key is invalid")
	ErrKeyTooLong      = errors.New("cache: key exceeds max length")
	ErrSnapshotCorrupt = errors.New("cache: snapshot checksum mismatch")
)

// Cache is the interface for the data layer's key/value cache.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Get never errors; it returns (nil, false) on miss or expiry.
// - Absence: an entry past its TTL is logically absent even while still
//   physically resident until the next sweep.
type Cache interface {
	// Get retrieves a cached value, updating access statistics on a hit.
	// Returns (nil, false) on miss.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a value with the given TTL, evicting first when the cache
	// is at capacity. TTL=0 means no caching.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a cached value. Idempotent - no error on miss.
	Delete(ctx context.Context, key string) error

	// DeletePattern removes every entry whose key contains the substring
	// and returns the number removed.
	DeletePattern(ctx context.Context, substring string) int

	// Len returns the number of physically resident entries.
	Len() int

	// Stats returns cumulative cache statistics.
	Stats() Stats
}

// Stats reports cache occupancy and cumulative activity.
type Stats struct {
	Size      int     `json:"size"`
	HitRate   float64 `json:"hitRate"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	Sweeps    int64   `json:"sweeps"`
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	// Reject keys with newlines or carriage returns
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
