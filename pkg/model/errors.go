package model

import "errors"

// Error taxonomy shared across the Document Model, Change Engine, and API
// boundary (spec §7). Each sentinel is matched with errors.Is; ValidationError
// additionally carries detail for the response envelope.
var (
	// ErrValidation marks a malformed request or document: unknown op verb,
	// missing reference, illegal status transition, out-of-range coordinate.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks an unknown itinerary, node, or revision.
	ErrNotFound = errors.New("not found")

	// ErrConflict is reserved for future multi-master writers; no code path
	// in this implementation returns it today (spec §4.3).
	ErrConflict = errors.New("conflict")
)

// ValidationError carries field-level detail for a failed validation,
// matching the teacher corpus's typed-error-plus-sentinel pattern
// (errors.Is(err, ErrValidation) still succeeds via Unwrap).
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError builds a field-tagged ValidationError.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError names the missing entity kind and id.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return e.Kind + " not found: " + e.ID
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFoundError builds a kind-tagged NotFoundError.
func NewNotFoundError(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}
