// Package cache provides the bounded in-process cache backing the data
// layer: per-entry TTLs, least-frequently/least-recently-used eviction,
// access statistics, a periodic expiry sweep, and snapshot-to-disk
// persistence so a restart begins warm instead of cold.
//
// The snapshot is a seeding aid, not a source of truth; discarding it loses
// performance, never correctness.
package cache
