package inventory

import "errors"

var (
	// ErrNotFound indicates the user id has no metadata entry or no
	// matching row. Lookups for unknown users fail fast without touching
	// the remote store.
	ErrNotFound = errors.New("inventory: user not found")

	// ErrMissingStore indicates the service was built without a store
	// client.
	ErrMissingStore = errors.New("inventory: missing store client")

	// ErrMissingCache indicates the service was built without a cache.
	ErrMissingCache = errors.New("inventory: missing cache")
)
