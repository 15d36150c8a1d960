// Package errs defines the error taxonomy shared by the comparison engine and its stores.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors. Use errors.Is() to check for these in calling code.
var (
	// ErrNotFound indicates a material or preset does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates malformed input: bad weights, unknown material
	// types, too few ids for a multi-compare.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidEntityShape indicates a property bag that is not a tree
	// (cycles, unsupported value types, excessive depth).
	ErrInvalidEntityShape = errors.New("invalid entity shape")

	// ErrPersist indicates a comparison result could not be saved.
	// It is never returned from a comparison call; it is logged.
	ErrPersist = errors.New("persist comparison result")
)

// NotFoundError names the missing resource.
type NotFoundError struct {
	Resource string // "material" or "preset"
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NotFound returns a NotFoundError for the given resource kind and id.
func NotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError describes a single rejected field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid returns a ValidationError for field.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ShapeError reports where a property bag stopped being a tree.
type ShapeError struct {
	Path   string
	Reason string
}

func (e *ShapeError) Error() string {
	if e.Path == "" {
		return "invalid entity shape: " + e.Reason
	}
	return fmt.Sprintf("invalid entity shape at %q: %s", e.Path, e.Reason)
}

func (e *ShapeError) Unwrap() error { return ErrInvalidEntityShape }

// PersistError wraps a downstream save failure.
type PersistError struct {
	ResultID string
	Err      error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist comparison result %s: %v", e.ResultID, e.Err)
}

// Unwrap exposes both the sentinel and the underlying store error.
func (e *PersistError) Unwrap() []error { return []error{ErrPersist, e.Err} }
