package solver

import (
	"errors"
	"fmt"
)

// Domain errors for solve operations.
var (
	// ErrInvalidInput indicates inconsistent shapes or non-positive parameters.
	ErrInvalidInput = errors.New("solver: invalid input")

	// ErrSingular indicates the pseudoinverse of the reduced measurement
	// matrix could not be computed to the requested precision.
	ErrSingular = errors.New("solver: measurement matrix is numerically singular")

	// ErrCanceled indicates the solve was interrupted through its context.
	ErrCanceled = errors.New("solver: solve canceled by context")
)

// InputError names the offending argument of a rejected solve.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidInput, e.Field, e.Reason)
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

func invalid(field, format string, args ...any) error {
	return &InputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// SingularityError carries the spectrum that made the projector unusable.
type SingularityError struct {
	Rows, Cols int
	// Condition is the ratio of the largest to the smallest singular value.
	// It is +Inf for rank-deficient or empty matrices.
	Condition float64
	Limit     float64
	Reason    string
}

func (e *SingularityError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s (%dx%d): %s", ErrSingular, e.Rows, e.Cols, e.Reason)
	}
	return fmt.Sprintf("%s (%dx%d): condition %.3g exceeds %.3g", ErrSingular, e.Rows, e.Cols, e.Condition, e.Limit)
}

func (e *SingularityError) Unwrap() error { return ErrSingular }

// CancelError records how far a canceled solve got.
type CancelError struct {
	Iteration int
	Cause     error
}

func (e *CancelError) Error() string {
	return fmt.Sprintf("%s at iteration %d: %v", ErrCanceled, e.Iteration, e.Cause)
}

func (e *CancelError) Unwrap() []error { return []error{ErrCanceled, e.Cause} }
