package executor

import (
	"context"
	"errors"
	"fmt"
)

// GenerationError reports a failed external generation call (network,
// rate limit, provider rejection). Retryable distinguishes transient
// failures from permanent ones.
type GenerationError struct {
	Stage     string
	Err       error
	Retryable bool
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("stage %s: generation failed: %v", e.Stage, e.Err)
}
func (e *GenerationError) Unwrap() error { return e.Err }

// TimeoutError marks a stage call that exceeded its deadline. It unwraps to
// a GenerationError, so errors.As with either type matches.
type TimeoutError struct {
	GenerationError
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("stage %s: generation timed out: %v", e.Stage, e.Err)
}
func (e *TimeoutError) Unwrap() error { return &e.GenerationError }

// MalformedResultError reports a response that could not be coerced into
// structured data. Raw carries the normalized text for diagnostics.
type MalformedResultError struct {
	Stage string
	Raw   string
	Err   error
}

func (e *MalformedResultError) Error() string {
	return fmt.Sprintf("stage %s: malformed result: %v", e.Stage, e.Err)
}
func (e *MalformedResultError) Unwrap() error { return e.Err }

// ValidationError reports a well-formed result that is missing a required
// sub-field. Callers can distinguish it from parse failure.
type ValidationError struct {
	Stage      string
	MissingKey string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("stage %s: result is missing required key %q", e.Stage, e.MissingKey)
}

// ErrKind names the failure class of a stage error for callers that only
// need a label (progress records, API responses).
func ErrKind(err error) string {
	var timeoutErr *TimeoutError
	var genErr *GenerationError
	var malformedErr *MalformedResultError
	var validationErr *ValidationError
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &timeoutErr):
		return "timeout"
	case errors.As(err, &genErr):
		return "generation"
	case errors.As(err, &malformedErr):
		return "malformed_result"
	case errors.As(err, &validationErr):
		return "validation"
	default:
		return "internal"
	}
}
