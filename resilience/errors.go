package resilience

import "errors"

// Sentinel errors for resilience operations.
var (
	// ErrRetriesExhausted is returned when max retry attempts are exhausted.
	ErrRetriesExhausted = errors.New("resilience: retries exhausted")
)
