package outcome

import (
	"context"
	"errors"
	"fmt"
)

// Failure kinds assigned by FromError and the pipeline.
const (
	KindError            = "error"
	KindPanic            = "panic"
	KindCanceled         = "canceled"
	KindDeadlineExceeded = "deadline_exceeded"
	KindNoMethod         = "no_method"
	KindArgument         = "argument"
	KindInvalid          = "invalid_invocation"
)

// ErrorInfo describes a failed invocation: a category and a readable message.
type ErrorInfo struct {
	Kind    string
	Message string
	Cause   error
}

func (e *ErrorInfo) Error() string {
	if e.Kind == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ErrorInfo) Unwrap() error {
	return e.Cause
}

// Kinded is implemented by errors that carry their own failure kind.
type Kinded interface {
	error
	Kind() string
}

// TargetError is a categorized failure raised by a target method.
type TargetError struct {
	kind    string
	Message string
}

// NewTargetError creates a new TargetError.
func NewTargetError(kind, message string) *TargetError {
	return &TargetError{kind: kind, Message: message}
}

func (e *TargetError) Error() string {
	return e.Message
}

// Kind returns the failure category.
func (e *TargetError) Kind() string {
	return e.kind
}

// FromError classifies err into ErrorInfo. The kind comes from the first
// categorized error in the chain; the message is always err's full text and
// err is kept as Cause.
func FromError(err error) ErrorInfo {
	if err == nil {
		return ErrorInfo{}
	}

	var existing *ErrorInfo
	if errors.As(err, &existing) {
		if err == error(existing) {
			return *existing
		}
		return ErrorInfo{Kind: existing.Kind, Message: err.Error(), Cause: err}
	}

	var kinded Kinded
	if errors.As(err, &kinded) {
		return ErrorInfo{Kind: kinded.Kind(), Message: err.Error(), Cause: err}
	}

	switch {
	case errors.Is(err, context.Canceled):
		return ErrorInfo{Kind: KindCanceled, Message: err.Error(), Cause: err}
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorInfo{Kind: KindDeadlineExceeded, Message: err.Error(), Cause: err}
	}

	return ErrorInfo{Kind: KindError, Message: err.Error(), Cause: err}
}

// FromPanic converts a recovered panic value into ErrorInfo.
func FromPanic(p any) ErrorInfo {
	if err, ok := p.(error); ok {
		return ErrorInfo{Kind: KindPanic, Message: err.Error(), Cause: err}
	}
	return ErrorInfo{Kind: KindPanic, Message: fmt.Sprintf("%v", p)}
}
