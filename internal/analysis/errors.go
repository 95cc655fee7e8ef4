package analysis

import "errors"

// Analysis errors. All failures here are deterministic given their inputs,
// so none of them are retryable.
var (
	// ErrInvalidParameter indicates malformed numeric or enum configuration
	// (non-positive window/step, degenerate log base, unknown mode or
	// compression algorithm).
	ErrInvalidParameter = errors.New("analysis: invalid parameter")

	// ErrMissingReference indicates diff mode invoked without a reference
	// table.
	ErrMissingReference = errors.New("analysis: diff mode requires a reference table")
)
