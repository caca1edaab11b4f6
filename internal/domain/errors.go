package domain

import (
	"errors"
	"fmt"
)

// Common domain errors that can occur during explanation and metrics
// operations.
var (
	// ErrInvalidShape indicates a heatmap or mask whose buffer does not
	// match its declared resolution, or a resolution mismatch between
	// inputs that must be compared pixel-by-pixel.
	ErrInvalidShape = errors.New("invalid spatial shape")

	// ErrNoMethods indicates that aggregation was invoked with zero
	// usable attribution maps.
	ErrNoMethods = errors.New("no usable attribution methods")

	// ErrInsufficientData indicates that calibration or metrics
	// computation was invoked with zero usable records. It is always
	// propagated to the caller, never silently defaulted.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrStochasticUnsupported indicates that a model offered to the
	// uncertainty estimator does not expose stochastic inference.
	// This is a contract violation, not something to approximate around.
	ErrStochasticUnsupported = errors.New("model does not support stochastic inference")

	// ErrInvalidConfiguration indicates that configuration is invalid or
	// incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// ValidationError represents a fatal, caller's-fault input error at a
// subsystem boundary. It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string, msgs ...string) *ValidationError {
	return &ValidationError{Entity: entity, Errors: msgs}
}
