// Package commbus provides the in-process communication bus used to fan out
// failure records.
//
// Protocol Categories:
//   - Message: anything routed over the bus
//   - Middleware: Before/After hooks around every publish
//   - CommBus: publish/subscribe surface
package commbus

import (
	"context"
)

// =============================================================================
// COMMBUS PROTOCOLS
// =============================================================================

// Message is the protocol for all commbus messages.
type Message interface {
	// Category returns the message category, e.g. "event".
	Category() string
}

// HandlerFunc processes a message delivered to a subscriber.
type HandlerFunc func(ctx context.Context, message Message) error

// Middleware is the protocol for commbus middleware.
// Middleware can intercept messages before/after delivery.
type Middleware interface {
	// Before is called before the message is delivered.
	// Returns modified message, or nil to abort delivery.
	Before(ctx context.Context, message Message) (Message, error)

	// After is called once every subscriber has returned.
	// err is the first subscriber error, if any.
	After(ctx context.Context, message Message, err error) error
}

// CommBus is the protocol for the communication bus.
type CommBus interface {
	// Publish delivers an event to every subscriber of its type.
	Publish(ctx context.Context, event Message) error

	// Subscribe subscribes to an event type.
	// Returns an unsubscribe function.
	Subscribe(eventType string, handler HandlerFunc) func()

	// AddMiddleware adds middleware to the bus.
	// Middleware is executed in registration order.
	AddMiddleware(middleware Middleware)

	// HasSubscribers checks if anything is subscribed to an event type.
	HasSubscribers(eventType string) bool

	// Clear removes all subscribers and middleware.
	Clear()
}

// Logger is the structured logging protocol used by the bus.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}
