// Package outcome provides the immutable result of a single invocation.
//
// An Outcome is either a Success carrying a value or a Failure carrying
// ErrorInfo. Outcomes are plain values: interceptors that want a different
// result build a new Outcome instead of editing the one they received.
package outcome

import "fmt"

// Status is the tag of an Outcome.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Outcome is the tagged Success/Failure result of an invocation.
// The zero value is a Success with a nil value.
type Outcome struct {
	value any
	err   *ErrorInfo
}

// Success creates a successful outcome carrying v.
func Success(v any) Outcome {
	return Outcome{value: v}
}

// Failure creates a failed outcome carrying info.
func Failure(info ErrorInfo) Outcome {
	return Outcome{err: &info}
}

// FailureFromError creates a failed outcome by classifying err.
// A nil err yields a Success with a nil value.
func FailureFromError(err error) Outcome {
	if err == nil {
		return Success(nil)
	}
	return Failure(FromError(err))
}

// Status returns the outcome tag.
func (o Outcome) Status() Status {
	if o.err != nil {
		return StatusFailure
	}
	return StatusSuccess
}

// IsSuccess reports whether the outcome is a Success.
func (o Outcome) IsSuccess() bool {
	return o.err == nil
}

// IsFailure reports whether the outcome is a Failure.
func (o Outcome) IsFailure() bool {
	return o.err != nil
}

// Value returns the success value. It is nil for failures.
func (o Outcome) Value() any {
	if o.err != nil {
		return nil
	}
	return o.value
}

// Err returns a copy of the failure info, or nil for successes.
func (o Outcome) Err() *ErrorInfo {
	if o.err == nil {
		return nil
	}
	info := *o.err
	return &info
}

// Unwrap converts the outcome to ordinary Go return values.
func (o Outcome) Unwrap() (any, error) {
	if o.err != nil {
		return nil, o.Err()
	}
	return o.value, nil
}

func (o Outcome) String() string {
	if o.err != nil {
		return fmt.Sprintf("Failure(%s)", o.err.Error())
	}
	return fmt.Sprintf("Success(%v)", o.value)
}
