// Package health reports the operational state of the data layer: cache
// occupancy and hit rate, remote store failure ratio, rate-limiter
// saturation, and snapshot freshness.
//
// Each concern is a Checker producing a Result; an Aggregator combines
// them into one composite status exposed over HTTP for liveness and
// readiness probes.
package health
