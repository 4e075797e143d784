package repositories

import "errors"

// Store error kinds. Callers branch with errors.Is; handlers map them to
// HTTP status codes.
var (
	// ErrNotFound means the requested user file or index row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrCorrupt means a file exists but could not be decoded.
	ErrCorrupt = errors.New("corrupt data")
)
