package commbus

import (
	"reflect"
	"time"
)

// MessageCategory represents message routing categories.
type MessageCategory string

const (
	// MessageCategoryEvent represents fire-and-forget, fan-out to all subscribers.
	MessageCategoryEvent MessageCategory = "event"
)

// =============================================================================
// FAILURE EVENTS
// =============================================================================

// FailureRecorded is emitted when a failing invocation's policy asks for it
// to be recorded.
// Subscribers: log sinks, metrics, test recorders.
type FailureRecorded struct {
	Message    string    `json:"message"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Category implements the Message interface.
func (m *FailureRecorded) Category() string { return string(MessageCategoryEvent) }

// GetMessageType returns the routing name of a message: its struct type name.
func GetMessageType(message Message) string {
	if message == nil {
		return ""
	}
	t := reflect.TypeOf(message)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
