// Package resilience provides the admission-control and retry primitives
// used on every outbound call to the remote grid store.
//
// Limiter is a sliding-window rate limiter: it admits at most MaxCalls
// grants within any trailing Window, blocking callers until a grant is
// legal. Rate pressure is absorbed as waiting, never surfaced as an error.
//
// Retry wraps an operation with exponential backoff. The store client uses
// it around session establishment plus the network call so transient
// failures stay invisible to the data layer until the budget is exhausted.
package resilience
