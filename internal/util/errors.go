package util

import "errors"

// Sentinel errors for common failure modes
var (
	// ErrNotFound indicates an operation targeted an absent key
	ErrNotFound = errors.New("not found")

	// ErrStorageUnavailable indicates the underlying storage layer failed
	// (database file cannot be opened, quota exceeded, disk full)
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrMalformedSnapshot indicates a vault snapshot failed structural
	// validation before integrity checking even ran
	ErrMalformedSnapshot = errors.New("malformed snapshot")
)
