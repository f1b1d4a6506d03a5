package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrEmptyInput is matched by EmptyInputError.
	ErrEmptyInput = errors.New("no scenes match the collection filter")
	// ErrGridMismatch is matched by GridMismatchError.
	ErrGridMismatch = errors.New("rasters do not share a grid")
	// ErrBudgetExceeded is matched by BudgetExceededError.
	ErrBudgetExceeded = errors.New("pixel budget exceeded")
	// ErrInvalidThreshold is matched by InvalidThresholdError.
	ErrInvalidThreshold = errors.New("invalid threshold")
	// ErrInvalidRequest is matched by ValidationError.
	ErrInvalidRequest = errors.New("invalid analysis request")
	// ErrNotFound is returned by result stores for unknown analysis IDs.
	ErrNotFound = errors.New("analysis not found")
)

// EmptyInputError reports a period for which no scene passed the collection filter.
type EmptyInputError struct {
	Period string
	Start  time.Time
	End    time.Time
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("%s period %s..%s: %v",
		e.Period, e.Start.Format(time.DateOnly), e.End.Format(time.DateOnly), ErrEmptyInput)
}

func (e *EmptyInputError) Unwrap() error { return ErrEmptyInput }

// GridMismatchError reports two rasters combined without a shared grid while
// resampling is disabled.
type GridMismatchError struct {
	Left  string
	Right string
}

func (e *GridMismatchError) Error() string {
	return fmt.Sprintf("%v: %s vs %s", ErrGridMismatch, e.Left, e.Right)
}

func (e *GridMismatchError) Unwrap() error { return ErrGridMismatch }

// BudgetExceededError reports a zonal working set larger than the configured budget.
type BudgetExceededError struct {
	Pixels int64
	Budget int64
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("%v: %d pixels > %d", ErrBudgetExceeded, e.Pixels, e.Budget)
}

func (e *BudgetExceededError) Unwrap() error { return ErrBudgetExceeded }

// InvalidThresholdError reports a configuration value outside its domain.
type InvalidThresholdError struct {
	Name   string
	Value  float64
	Reason string
}

func (e *InvalidThresholdError) Error() string {
	return fmt.Sprintf("%v: %s=%g %s", ErrInvalidThreshold, e.Name, e.Value, e.Reason)
}

func (e *InvalidThresholdError) Unwrap() error { return ErrInvalidThreshold }

// ValidationError reports a malformed analysis request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s %s", ErrInvalidRequest, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidRequest }

// Error kinds reported on failed results.
const (
	KindEmptyInput       = "empty_input"
	KindGridMismatch     = "grid_mismatch"
	KindBudgetExceeded   = "budget_exceeded"
	KindInvalidThreshold = "invalid_threshold"
	KindInvalidRequest   = "invalid_request"
	KindInternal         = "internal"
)

// ErrorKind maps an error to a stable identifier for consumers of failed
// results. Unknown errors map to KindInternal; nil maps to "".
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyInput):
		return KindEmptyInput
	case errors.Is(err, ErrGridMismatch):
		return KindGridMismatch
	case errors.Is(err, ErrBudgetExceeded):
		return KindBudgetExceeded
	case errors.Is(err, ErrInvalidThreshold):
		return KindInvalidThreshold
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	default:
		return KindInternal
	}
}

// IsRecoverable reports whether err is a domain error the caller can fix by
// changing parameters. Anything else is an infrastructure failure.
func IsRecoverable(err error) bool {
	kind := ErrorKind(err)
	return kind != "" && kind != KindInternal
}
