package commbus

import (
	"context"
	"sync"
)

type subscription struct {
	id      uint64
	handler HandlerFunc
}

// InMemoryCommBus is an in-memory implementation of CommBus.
//
// Thread-safe message bus for single-process deployments. Events fan out
// concurrently to every subscriber; subscriber errors and panics are logged
// and never returned to the publisher.
//
// Usage:
//
//	bus := NewInMemoryCommBus(logger)
//	unsubscribe := bus.Subscribe("FailureRecorded", handler)
//	defer unsubscribe()
//	bus.Publish(ctx, &FailureRecorded{Message: "..."})
type InMemoryCommBus struct {
	subscribers map[string][]subscription
	middleware  []Middleware
	nextID      uint64
	logger      Logger
	mu          sync.RWMutex
}

// NewInMemoryCommBus creates a new InMemoryCommBus. logger may be nil.
func NewInMemoryCommBus(logger Logger) *InMemoryCommBus {
	return &InMemoryCommBus{
		subscribers: make(map[string][]subscription),
		middleware:  make([]Middleware, 0),
		logger:      logger,
	}
}

// =============================================================================
// MESSAGING
// =============================================================================

// Publish publishes an event to all subscribers and waits for them to return.
// Only middleware errors are returned.
func (b *InMemoryCommBus) Publish(ctx context.Context, event Message) error {
	if event == nil {
		return &NilMessageError{}
	}
	eventType := GetMessageType(event)

	processed, err := b.runMiddlewareBefore(ctx, event)
	if err != nil {
		return err
	}
	if processed == nil {
		b.debug("commbus_event_aborted", "type", eventType)
		return nil
	}

	b.mu.RLock()
	subs := make([]subscription, len(b.subscribers[eventType]))
	copy(subs, b.subscribers[eventType])
	b.mu.RUnlock()

	if len(subs) == 0 {
		b.debug("commbus_no_subscribers", "type", eventType)
		return b.runMiddlewareAfter(ctx, event, nil)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(subs))

	for i, sub := range subs {
		wg.Add(1)
		go func(idx int, h HandlerFunc) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[idx] = NewSubscriberPanicError(eventType, r)
				}
			}()
			errs[idx] = h(ctx, processed)
		}(i, sub.handler)
	}

	wg.Wait()

	var firstErr error
	for idx, e := range errs {
		if e == nil {
			continue
		}
		b.warn("commbus_subscriber_failed", "type", eventType, "subscriber", idx, "error", e.Error())
		if firstErr == nil {
			firstErr = e
		}
	}

	return b.runMiddlewareAfter(ctx, event, firstErr)
}

// =============================================================================
// REGISTRATION
// =============================================================================

// Subscribe subscribes to an event type.
// Returns an unsubscribe function; calling it more than once is a no-op.
func (b *InMemoryCommBus) Subscribe(eventType string, handler HandlerFunc) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subscribers[eventType] = append(b.subscribers[eventType], subscription{id: id, handler: handler})
	b.mu.Unlock()

	b.debug("commbus_subscribed", "type", eventType)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			subs := b.subscribers[eventType]
			for i, s := range subs {
				if s.id == id {
					b.subscribers[eventType] = append(subs[:i:i], subs[i+1:]...)
					break
				}
			}
			if len(b.subscribers[eventType]) == 0 {
				delete(b.subscribers, eventType)
			}
		})
	}
}

// AddMiddleware adds middleware to the bus.
// Middleware is executed in registration order.
func (b *InMemoryCommBus) AddMiddleware(middleware Middleware) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.middleware = append(b.middleware, middleware)
}

// =============================================================================
// INTROSPECTION
// =============================================================================

// HasSubscribers checks if anything is subscribed to an event type.
func (b *InMemoryCommBus) HasSubscribers(eventType string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subscribers[eventType]) > 0
}

// SubscriberCount returns the number of subscribers for an event type.
func (b *InMemoryCommBus) SubscriberCount(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subscribers[eventType])
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Clear clears all subscribers and middleware.
// Useful for testing.
func (b *InMemoryCommBus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscribers = make(map[string][]subscription)
	b.middleware = make([]Middleware, 0)
}

// =============================================================================
// INTERNAL HELPERS
// =============================================================================

func (b *InMemoryCommBus) middlewareSnapshot() []Middleware {
	b.mu.RLock()
	defer b.mu.RUnlock()

	snapshot := make([]Middleware, len(b.middleware))
	copy(snapshot, b.middleware)
	return snapshot
}

// runMiddlewareBefore runs middleware before chain.
func (b *InMemoryCommBus) runMiddlewareBefore(ctx context.Context, message Message) (Message, error) {
	current := message
	for _, mw := range b.middlewareSnapshot() {
		result, err := mw.Before(ctx, current)
		if err != nil {
			return nil, err
		}
		if result == nil {
			return nil, nil
		}
		current = result
	}
	return current, nil
}

// runMiddlewareAfter runs middleware after chain (reverse order).
func (b *InMemoryCommBus) runMiddlewareAfter(ctx context.Context, message Message, err error) error {
	chain := b.middlewareSnapshot()

	var firstErr error
	for i := len(chain) - 1; i >= 0; i-- {
		if afterErr := chain[i].After(ctx, message, err); afterErr != nil && firstErr == nil {
			firstErr = afterErr
		}
	}
	return firstErr
}

func (b *InMemoryCommBus) debug(msg string, keysAndValues ...any) {
	if b.logger != nil {
		b.logger.Debug(msg, keysAndValues...)
	}
}

func (b *InMemoryCommBus) warn(msg string, keysAndValues ...any) {
	if b.logger != nil {
		b.logger.Warn(msg, keysAndValues...)
	}
}

// Ensure InMemoryCommBus implements CommBus interface.
var _ CommBus = (*InMemoryCommBus)(nil)
