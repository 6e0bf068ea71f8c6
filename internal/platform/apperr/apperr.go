// Package apperr defines the shared error taxonomy for core operations.
// Callers discriminate with errors.Is against the sentinel values.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState indicates an operation is not valid for the entity's
	// current lifecycle state.
	ErrInvalidState = errors.New("invalid state")

	// ErrUnauthorized indicates the caller fails an ownership or role check.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation indicates malformed or missing input.
	ErrValidation = errors.New("validation failed")
)

// NotFound wraps ErrNotFound with the entity kind and ID.
func NotFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}

// InvalidState wraps ErrInvalidState with a description of the conflict.
func InvalidState(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInvalidState)...)
}

// Validation wraps ErrValidation with a description of the bad input.
func Validation(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrValidation)...)
}
