package reduce

import (
	"errors"
	"fmt"
)

// InternalError reports an invariant violation inside the reducer: row
// accounting that does not tile, a coefficient outside the matrix, a
// rewrite that produced the wrong number of rows. These are bugs in the
// reduction, never user errors, and the message says which stage broke.
type InternalError struct {
	// Stage names the reduction phase: "walk", "rewrite", "stack",
	// "assemble".
	Stage string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *InternalError) Error() string {
	return fmt.Sprintf("internal reduction error [%s]: %s", e.Stage, e.Message)
}

// IsInternalError reports whether err is an internal reduction error.
// Uses errors.As to handle wrapped errors.
func IsInternalError(err error) bool {
	var ie *InternalError
	return errors.As(err, &ie)
}

func internalf(stage, format string, args ...any) *InternalError {
	return &InternalError{Stage: stage, Message: fmt.Sprintf(format, args...)}
}

// UnvaluedParameterError reports a parameter leaf reached during reduction
// with no value supplied.
type UnvaluedParameterError struct {
	Name string
}

// Error implements the error interface.
func (e *UnvaluedParameterError) Error() string {
	return fmt.Sprintf("parameter %q has no value; set one before reducing", e.Name)
}

// IsUnvaluedParameterError reports whether err is an unvalued parameter
// error. Uses errors.As to handle wrapped errors.
func IsUnvaluedParameterError(err error) bool {
	var pe *UnvaluedParameterError
	return errors.As(err, &pe)
}
