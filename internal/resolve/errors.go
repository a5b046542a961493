package resolve

import "errors"

// Sentinel errors for resolution.
var (
	// ErrFetch indicates a referenced resource could not be fetched.
	ErrFetch = errors.New("failed to fetch resource")

	// ErrReference indicates a relative reference that does not name a
	// package resource (empty after decoding or escaping the root).
	ErrReference = errors.New("invalid resource reference")

	// ErrHandle indicates a handle could not be allocated for a resource.
	ErrHandle = errors.New("failed to allocate handle")
)
