// Package store wraps the remote grid store's network API: session
// establishment and timed refresh, batched multi-range reads, batched
// multi-row writes, and a narrow single-cell accessor.
//
// Every outbound call first acquires a slot from the rate limiter, and a
// connect-then-call unit is retried with exponential backoff before a
// failure is allowed to propagate. Many logical reads or writes amortize
// into one rate-limited network call via the batch endpoints.
package store
