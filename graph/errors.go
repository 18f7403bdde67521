package graph

import "errors"

// Common store errors.
var (
	// ErrNotFound is returned when an entity or relationship id does not
	// resolve. Absence is an expected outcome for callers, not an
	// exceptional one.
	ErrNotFound = errors.New("not found")

	// ErrDanglingReference is returned when a relationship endpoint does
	// not reference an entity present in the store.
	ErrDanglingReference = errors.New("relationship endpoint not found")

	// ErrIntegrityViolation indicates corruption of the store's own
	// invariants. It is a programming error, not an input error, and is
	// the only condition that fails a load run.
	ErrIntegrityViolation = errors.New("store integrity violation")
)
