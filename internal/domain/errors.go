package domain

import "errors"

// Error kinds for lifecycle operations. Callers branch with errors.Is; the
// wrapped message names the specific business rule that was violated.
var (
	// ErrValidation covers bad input: negative quantities, empty cart at
	// checkout, missing required fields. No side effects have occurred.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidState covers operations that are illegal for the current
	// status, such as adding items to a COMPLETED order or closing a shift
	// that is not open. The caller should re-query state before retrying.
	ErrInvalidState = errors.New("invalid state")

	// ErrConcurrency means a check-then-act transaction found the state
	// changed underneath it. Refresh and retry once, do not loop.
	ErrConcurrency = errors.New("concurrent modification")

	// ErrPersistence wraps commit, scan and driver failures. The operation
	// was rolled back in full.
	ErrPersistence = errors.New("persistence failure")
)
