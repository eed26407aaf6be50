package field

import "errors"

var (
	// ErrDimensionMismatch indicates aligned fields with differing sizes.
	// This is a configuration bug, never a transient condition.
	ErrDimensionMismatch = errors.New("field dimensions mismatch")

	// ErrIndexOutOfRange indicates an index-field entry outside the valid
	// range for the gather it feeds.
	ErrIndexOutOfRange = errors.New("index entry out of range")

	// ErrDegenerateInput indicates an input too small for the requested
	// reduction or transform.
	ErrDegenerateInput = errors.New("degenerate input")
)
