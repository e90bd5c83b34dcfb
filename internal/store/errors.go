package store

import "errors"

var (
	// ErrNotFound means the URI is absent from the resource index.
	ErrNotFound = errors.New("resource not found")

	// ErrPayloadMissing means the index entry exists but its backing
	// payload file does not. Callers should treat this as a user-visible
	// "not found" variant.
	ErrPayloadMissing = errors.New("resource payload missing")
)
