package domain

import "errors"

// Sentinel errors surfaced to callers of the extraction interface.
// Lookup and index errors indicate caller mistakes (bad job ID, stale
// index) and are never absorbed by the pipeline.
var (
	// ErrJobNotFound is returned when a job ID is unknown or the job
	// has been evicted from the store.
	ErrJobNotFound = errors.New("job not found")

	// ErrItemIndexOutOfRange is returned by positional item operations
	// when the index does not address an existing item.
	ErrItemIndexOutOfRange = errors.New("item index out of range")
)
