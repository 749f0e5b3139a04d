package util

import (
	"errors"
	"fmt"
	"strings"
)

// Error classes for threader. Every fatal error returned by the harvesting and
// statistics packages wraps exactly one of these.
var (
	// ErrInputMissing indicates a required file, binary or output set is absent
	ErrInputMissing = errors.New("input missing")

	// ErrMalformedValue indicates a parsed field is absent or numerically nonsensical
	ErrMalformedValue = errors.New("malformed value")

	// ErrPreconditionUnmet indicates the estimator cannot run on the harvested data
	ErrPreconditionUnmet = errors.New("precondition unmet")

	// ErrJobFailed indicates an external program exited with an error
	ErrJobFailed = errors.New("job failed")

	// ErrCancelled indicates an operation was cancelled
	ErrCancelled = errors.New("operation cancelled")

	// ErrInvalidConfig indicates a configuration error
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UnexpectedValueError reports a field in an output file that could not be
// used. The remedy is always to discard the file and re-run that K.
type UnexpectedValueError struct {
	File  string
	Field string
	Value string
}

// Error implements the error interface
func (e *UnexpectedValueError) Error() string {
	return fmt.Sprintf("%s contains an unexpected value: %s = %q; "+
		"generally this is resolved by discarding the file and re-running the program for this value of K",
		e.File, e.Field, e.Value)
}

// Unwrap returns ErrMalformedValue for errors.Is compatibility
func (e *UnexpectedValueError) Unwrap() error {
	return ErrMalformedValue
}

// NewUnexpectedValue creates an UnexpectedValueError
func NewUnexpectedValue(file, field, value string) *UnexpectedValueError {
	return &UnexpectedValueError{File: file, Field: field, Value: value}
}

// PreconditionError lists every unmet condition of a best-K estimator
type PreconditionError struct {
	Method  string
	Reasons []string
}

// Error implements the error interface
func (e *PreconditionError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("unable to perform %s for the following reason(s):", e.Method))
	for _, r := range e.Reasons {
		sb.WriteString("\n  * ")
		sb.WriteString(r)
	}
	return sb.String()
}

// Unwrap returns ErrPreconditionUnmet
func (e *PreconditionError) Unwrap() error {
	return ErrPreconditionUnmet
}

// JobError wraps a job failure with its grid position
type JobError struct {
	K          int
	Replicate  int
	OutputPath string
	Err        error
}

// Error implements the error interface
func (e *JobError) Error() string {
	return fmt.Sprintf("K=%d replicate=%d (%s): %v", e.K, e.Replicate, e.OutputPath, e.Err)
}

// Unwrap returns the wrapped error for errors.Is/As compatibility
func (e *JobError) Unwrap() error {
	return e.Err
}

// WrapJobError wraps an error with job context
func WrapJobError(k, replicate int, outputPath string, err error) error {
	if err == nil {
		return nil
	}
	return &JobError{
		K:          k,
		Replicate:  replicate,
		OutputPath: outputPath,
		Err:        err,
	}
}

// MultiError aggregates multiple errors
type MultiError struct {
	Errors []error
}

// Error implements the error interface
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d errors occurred:", len(m.Errors)))
	for i, err := range m.Errors {
		if i < 10 {
			sb.WriteString(fmt.Sprintf("\n  %d. %v", i+1, err))
		} else if i == 10 {
			sb.WriteString(fmt.Sprintf("\n  ... and %d more errors", len(m.Errors)-10))
			break
		}
	}
	return sb.String()
}

// Unwrap returns the errors for errors.Is/As compatibility
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Add adds an error to the multi-error
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// ErrorOrNil returns nil if no errors were added, otherwise returns the MultiError
func (m *MultiError) ErrorOrNil() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	if v.Value != nil {
		return fmt.Sprintf("validation failed for field %q (value: %v): %s", v.Field, v.Value, v.Message)
	}
	return fmt.Sprintf("validation failed for field %q: %s", v.Field, v.Message)
}

// Unwrap returns ErrInvalidConfig
func (v *ValidationError) Unwrap() error {
	return ErrInvalidConfig
}

// NewValidationError creates a new validation error
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// IsCancelled checks if an error is a cancellation error
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// IsInputMissing checks if an error is an input-missing error
func IsInputMissing(err error) bool {
	return errors.Is(err, ErrInputMissing)
}

// IsMalformed checks if an error is a malformed-value error
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedValue)
}

// FriendlyError converts technical errors to operator-facing messages
func FriendlyError(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case IsCancelled(err):
		return "Operation was cancelled. No results were harvested."
	case errors.Is(err, ErrPreconditionUnmet):
		return err.Error()
	case IsMalformed(err):
		return err.Error()
	case IsInputMissing(err):
		return fmt.Sprintf("%v. Please check the input, output and binary paths.", err)
	case errors.Is(err, ErrInvalidConfig):
		return fmt.Sprintf("%v. Please check your config file and command-line flags.", err)
	default:
		return err.Error()
	}
}

// CombineErrors combines multiple errors into a single error
// Returns nil if all errors are nil
func CombineErrors(errs ...error) error {
	m := &MultiError{}
	for _, err := range errs {
		m.Add(err)
	}
	return m.ErrorOrNil()
}
