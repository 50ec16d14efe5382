/*
errors.go - Error types for the rental domain

PURPOSE:
  All error types in one place. The API layer maps them to HTTP statuses
  with the helper predicates at the bottom of this file.

ERROR CATEGORIES:
  1. Lookup errors - Missing users, properties, bookings
  2. Permission errors - Acting outside one's role or ownership
  3. Validation errors - Bad input, carries per-field messages
  4. Store errors - Uniqueness and optimistic-locking conflicts

SEE ALSO:
  - store/sqlite/sqlite.go: Returns ErrNotFound, ErrDuplicate, ErrConcurrentModification
  - api/handlers.go: statusFor() maps these to HTTP codes
*/
package rental

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the caller's role or ownership does not
	// allow the action.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidInput is returned for malformed or inconsistent input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when the action does not fit the record's
	// current state (approving a declined booking, booking a rented property).
	ErrConflict = errors.New("conflict")

	// ErrDuplicate is returned when a uniqueness rule is violated
	// (username, email, one review per property).
	ErrDuplicate = errors.New("already exists")

	// ErrConcurrentModification is returned when a booking was changed by
	// another writer between read and write.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ValidationError collects messages per input field.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError returns an empty validation error.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// Invalid is shorthand for a single-field validation error.
func Invalid(field, msg string) *ValidationError {
	e := NewValidationError()
	e.Add(field, msg)
	return e
}

// Add records a message for field.
func (e *ValidationError) Add(field, msg string) {
	e.Fields[field] = append(e.Fields[field], msg)
}

// HasErrors reports whether any field failed.
func (e *ValidationError) HasErrors() bool { return len(e.Fields) > 0 }

// OrNil returns e when it holds messages and nil otherwise.
func (e *ValidationError) OrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], "; ")))
	}
	return "invalid input: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrDuplicate)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsForbidden returns true if the caller may not perform the action.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}
