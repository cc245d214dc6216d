// Package apperr defines the error kinds shared by the shop domain packages.
//
// Validation errors are caught at the boundary and reported to the user with
// no state mutation. Conflict errors signal a uniqueness violation that
// survived retries. Transport errors wrap a collaborator that could not be
// reached.
package apperr

import (
	"fmt"

	"github.com/go-faster/errors"
)

// ValidationError indicates user input that violates a domain rule.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Invalid returns a ValidationError for field.
func Invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// Invalidf is like Invalid with a formatted reason.
func Invalidf(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ConflictError indicates that a resource with the same identity already
// exists or was changed concurrently.
type ConflictError struct {
	Resource string
	ID       string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s: conflict", e.Resource, e.ID)
}

// TransportError indicates that a collaborator (store, remote API) was
// unreachable while performing Op.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsConflict reports whether err wraps a ConflictError.
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

// IsTransport reports whether err wraps a TransportError.
func IsTransport(err error) bool {
	var t *TransportError
	return errors.As(err, &t)
}
