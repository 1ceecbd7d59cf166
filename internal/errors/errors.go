// Package errors defines the error taxonomy shared by all bounded contexts.
// Use cases return these sentinels (usually wrapped with context) and the
// HTTP layer maps them to status codes.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates the write collides with existing data, such as a
	// duplicate business id or version.
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates the input failed validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidState indicates the operation is not allowed in the resource's
	// current state (e.g., rotating a revoked key).
	ErrInvalidState = errors.New("invalid state")

	// ErrUnauthorized indicates the request lacks valid credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the caller doesn't have permission.
	ErrForbidden = errors.New("forbidden")

	// ErrUnavailable indicates a required backend (e.g., the KMS) rejected or
	// cannot serve the operation.
	ErrUnavailable = errors.New("unavailable")
)

// New returns an error with the given message.
func New(message string) error {
	return errors.New(message)
}

// Wrap adds context to err while keeping the sentinel matchable with Is.
// A nil err returns nil so call sites can wrap unconditionally.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}
