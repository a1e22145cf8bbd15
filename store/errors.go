package store

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMissingSpreadsheetID indicates the client was built without an
	// inventory spreadsheet id.
	ErrMissingSpreadsheetID = errors.New("store: missing spreadsheet id")

	// ErrMissingCredentials indicates the client was built without
	// service-account credentials.
	ErrMissingCredentials = errors.New("store: missing credentials")

	// ErrInvalidCredentials indicates the service-account key could not be
	// parsed.
	ErrInvalidCredentials = errors.New("store: invalid credentials")

	// ErrSessionFailed indicates the token exchange with the auth endpoint
	// failed.
	ErrSessionFailed = errors.New("store: session establishment failed")
)

// StatusError is a non-2xx response from the store's values API.
type StatusError struct {
	Op   string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("store %s: status %d", e.Op, e.Code)
}

// Unauthorized reports whether the status indicates a stale or rejected
// session, in which case the cached token must be discarded.
func (e *StatusError) Unauthorized() bool {
	return e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden
}
