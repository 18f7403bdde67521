package source

import (
	"errors"
	"fmt"
)

// Common loader errors.
var (
	// ErrDependencyMissing is returned by an annotation loader when
	// annotation support is disabled or its parsing capability is
	// unavailable. The caller skips the annotation phase; the ontology
	// graph remains fully usable.
	ErrDependencyMissing = errors.New("annotation parsing capability unavailable")
)

// ParseError reports a structurally malformed source file. The caller
// skips the file and continues the run.
type ParseError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError wraps err as a ParseError for the given file.
func NewParseError(path string, err error) *ParseError {
	return &ParseError{Path: path, Err: err}
}

// IsParseError reports whether err is (or wraps) a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
