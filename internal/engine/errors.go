package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable means the backend could not be reached or answered with
	// a server-side failure.
	ErrUnavailable = errors.New("search engine unavailable")

	// ErrDocumentMissing means a partial update targeted an absent document.
	ErrDocumentMissing = errors.New("document not found in index")
)

// IndexProvisionError reports a failure to create the index.
type IndexProvisionError struct {
	Index string
	Err   error
}

func (e *IndexProvisionError) Error() string {
	return fmt.Sprintf("provision index %q: %v", e.Index, e.Err)
}

func (e *IndexProvisionError) Unwrap() error {
	return e.Err
}

// Unavailable wraps err so that errors.Is(err, ErrUnavailable) holds.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

// IsUnavailable reports whether err was caused by an unreachable backend.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
