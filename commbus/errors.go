package commbus

import (
	"fmt"
)

// SubscriberPanicError is reported when a subscriber panics during delivery.
type SubscriberPanicError struct {
	MessageType string
	Value       any
}

func (e *SubscriberPanicError) Error() string {
	return fmt.Sprintf("subscriber for %s panicked: %v", e.MessageType, e.Value)
}

// NewSubscriberPanicError creates a new SubscriberPanicError.
func NewSubscriberPanicError(messageType string, value any) *SubscriberPanicError {
	return &SubscriberPanicError{MessageType: messageType, Value: value}
}

// NilMessageError is returned when a nil message is published.
type NilMessageError struct{}

func (e *NilMessageError) Error() string {
	return "cannot publish a nil message"
}
