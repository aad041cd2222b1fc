package domain

import (
	"errors"
	"fmt"
)

// ErrValidation is the class of every input rejected before a state mutation.
var ErrValidation = errors.New("validation failed")

var (
	// ErrEmptySelection is returned when a multi-select submission has no values.
	ErrEmptySelection = errors.New("at least one option must be selected")

	// ErrInvalidEmail is returned when an email does not look like local@domain.tld.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrUnknownStep is returned when a step ID is not part of the catalog.
	ErrUnknownStep = errors.New("unknown step")

	// ErrInvalidPosition is returned when a navigation target is outside the catalog.
	ErrInvalidPosition = errors.New("position out of range")

	// ErrInvalidUnit is returned for a unit system other than imperial or metric.
	ErrInvalidUnit = errors.New("invalid unit system")

	// ErrUnknownChoice is returned when a selection names no choice of the step.
	ErrUnknownChoice = errors.New("unknown choice")

	// ErrMissingField is returned when an input answer leaves a field blank.
	ErrMissingField = errors.New("field is required")

	// ErrAnswerKind is returned when an answer's shape does not match its step kind.
	ErrAnswerKind = errors.New("answer does not match step kind")

	// ErrUnknownPlan is returned when a checkout names a plan that is not offered.
	ErrUnknownPlan = errors.New("unknown plan")
)

// ErrSessionNotFound is returned when a remote session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ValidationError wraps a validation sentinel with the offending field.
// It matches both ErrValidation and the wrapped sentinel with errors.Is.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrValidation, e.Err}
}

// Invalid builds a ValidationError for field.
func Invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// IsValidation reports whether err is a validation rejection.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
