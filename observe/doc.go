// Package observe provides observability primitives for the grid store
// data layer: structured logging, OpenTelemetry metrics for cache, store,
// and rate-limiter activity, and spans around batched store calls.
//
// It is pure instrumentation: no execution, no transport, no I/O beyond
// exporter setup. Consumers construct one Observer at process start and
// hand its logger, meter, and tracer to each component.
package observe
