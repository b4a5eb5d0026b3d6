package commbus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type testLogger struct {
	mu    sync.Mutex
	debug []string
	warn  []string
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debug = append(l.debug, msg)
}

func (l *testLogger) Info(msg string, keysAndValues ...any) {}

func (l *testLogger) Warn(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warn = append(l.warn, msg)
}

func (l *testLogger) Error(msg string, keysAndValues ...any) {}

func (l *testLogger) warnings() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.warn...)
}

// countingHandler returns handler that counts calls
func countingHandler(counter *int32) HandlerFunc {
	return func(ctx context.Context, msg Message) error {
		atomic.AddInt32(counter, 1)
		return nil
	}
}

type abortMiddleware struct{}

func (abortMiddleware) Before(ctx context.Context, message Message) (Message, error) {
	return nil, nil
}

func (abortMiddleware) After(ctx context.Context, message Message, err error) error {
	return nil
}

type recordingMiddleware struct {
	name  string
	order *[]string
	mu    *sync.Mutex
	seen  error
}

func (m *recordingMiddleware) Before(ctx context.Context, message Message) (Message, error) {
	m.mu.Lock()
	*m.order = append(*m.order, "before:"+m.name)
	m.mu.Unlock()
	return message, nil
}

func (m *recordingMiddleware) After(ctx context.Context, message Message, err error) error {
	m.mu.Lock()
	*m.order = append(*m.order, "after:"+m.name)
	m.seen = err
	m.mu.Unlock()
	return nil
}

// =============================================================================
// PUBLISH TESTS
// =============================================================================

func TestPublish_FanOut(t *testing.T) {
	bus := NewInMemoryCommBus(nil)
	var count int32

	bus.Subscribe("FailureRecorded", countingHandler(&count))
	bus.Subscribe("FailureRecorded", countingHandler(&count))
	bus.Subscribe("SomethingElse", countingHandler(&count))

	err := bus.Publish(context.Background(), &FailureRecorded{Message: "boom"})

	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&count))
}

func TestPublish_DeliversPayload(t *testing.T) {
	bus := NewInMemoryCommBus(nil)
	var got string

	bus.Subscribe("FailureRecorded", func(ctx context.Context, msg Message) error {
		got = msg.(*FailureRecorded).Message
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), &FailureRecorded{Message: "Exception thrown"}))
	assert.Equal(t, "Exception thrown", got)
}

func TestPublish_NoSubscribers(t *testing.T) {
	logger := &testLogger{}
	bus := NewInMemoryCommBus(logger)

	err := bus.Publish(context.Background(), &FailureRecorded{})

	assert.NoError(t, err)
	assert.Contains(t, logger.debug, "commbus_no_subscribers")
}

func TestPublish_NilMessage(t *testing.T) {
	bus := NewInMemoryCommBus(nil)

	err := bus.Publish(context.Background(), nil)

	var nilErr *NilMessageError
	assert.ErrorAs(t, err, &nilErr)
}

func TestPublish_SubscriberErrorNotReturned(t *testing.T) {
	logger := &testLogger{}
	bus := NewInMemoryCommBus(logger)
	var count int32

	bus.Subscribe("FailureRecorded", func(ctx context.Context, msg Message) error {
		return errors.New("sink down")
	})
	bus.Subscribe("FailureRecorded", countingHandler(&count))

	err := bus.Publish(context.Background(), &FailureRecorded{})

	assert.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&count))
	assert.Contains(t, logger.warnings(), "commbus_subscriber_failed")
}

func TestPublish_SubscriberPanicRecovered(t *testing.T) {
	bus := NewInMemoryCommBus(&testLogger{})
	var count int32

	bus.Subscribe("FailureRecorded", func(ctx context.Context, msg Message) error {
		panic("subscriber exploded")
	})
	bus.Subscribe("FailureRecorded", countingHandler(&count))

	assert.NotPanics(t, func() {
		assert.NoError(t, bus.Publish(context.Background(), &FailureRecorded{}))
	})
	assert.Equal(t, int32(1), atomic.LoadInt32(&count))
}

// =============================================================================
// SUBSCRIPTION TESTS
// =============================================================================

func TestUnsubscribe(t *testing.T) {
	bus := NewInMemoryCommBus(nil)
	var first, second int32

	unsubscribe := bus.Subscribe("FailureRecorded", countingHandler(&first))
	bus.Subscribe("FailureRecorded", countingHandler(&second))
	assert.Equal(t, 2, bus.SubscriberCount("FailureRecorded"))

	unsubscribe()
	unsubscribe()

	require.NoError(t, bus.Publish(context.Background(), &FailureRecorded{}))
	assert.Equal(t, int32(0), atomic.LoadInt32(&first))
	assert.Equal(t, int32(1), atomic.LoadInt32(&second))
	assert.Equal(t, 1, bus.SubscriberCount("FailureRecorded"))
}

func TestUnsubscribe_LastRemovesType(t *testing.T) {
	bus := NewInMemoryCommBus(nil)
	var count int32

	unsubscribe := bus.Subscribe("FailureRecorded", countingHandler(&count))
	assert.True(t, bus.HasSubscribers("FailureRecorded"))

	unsubscribe()
	assert.False(t, bus.HasSubscribers("FailureRecorded"))
}

func TestClear(t *testing.T) {
	bus := NewInMemoryCommBus(nil)
	var count int32
	bus.Subscribe("FailureRecorded", countingHandler(&count))
	bus.AddMiddleware(abortMiddleware{})

	bus.Clear()

	assert.False(t, bus.HasSubscribers("FailureRecorded"))
	assert.Empty(t, bus.middlewareSnapshot())
}

// =============================================================================
// MIDDLEWARE TESTS
// =============================================================================

func TestMiddleware_Order(t *testing.T) {
	bus := NewInMemoryCommBus(nil)
	var order []string
	var mu sync.Mutex

	first := &recordingMiddleware{name: "first", order: &order, mu: &mu}
	second := &recordingMiddleware{name: "second", order: &order, mu: &mu}
	bus.AddMiddleware(first)
	bus.AddMiddleware(second)
	bus.Subscribe("FailureRecorded", func(ctx context.Context, msg Message) error {
		return errors.New("subscriber failed")
	})

	require.NoError(t, bus.Publish(context.Background(), &FailureRecorded{}))

	assert.Equal(t, []string{"before:first", "before:second", "after:second", "after:first"}, order)
	assert.EqualError(t, first.seen, "subscriber failed")
}

func TestMiddleware_Abort(t *testing.T) {
	bus := NewInMemoryCommBus(nil)
	var count int32
	bus.AddMiddleware(abortMiddleware{})
	bus.Subscribe("FailureRecorded", countingHandler(&count))

	require.NoError(t, bus.Publish(context.Background(), &FailureRecorded{}))
	assert.Equal(t, int32(0), atomic.LoadInt32(&count))
}

func TestLoggingMiddleware(t *testing.T) {
	logger := &testLogger{}
	bus := NewInMemoryCommBus(nil)
	bus.AddMiddleware(NewLoggingMiddleware(logger))
	bus.Subscribe("FailureRecorded", func(ctx context.Context, msg Message) error {
		return errors.New("nope")
	})

	require.NoError(t, bus.Publish(context.Background(), &FailureRecorded{}))

	assert.Contains(t, logger.debug, "commbus_message_received")
	assert.Contains(t, logger.warnings(), "commbus_message_failed")
}

func TestGetMessageType(t *testing.T) {
	assert.Equal(t, "FailureRecorded", GetMessageType(&FailureRecorded{}))
	assert.Equal(t, "", GetMessageType(nil))
	assert.Equal(t, "event", (&FailureRecorded{}).Category())
}

// =============================================================================
// CONCURRENCY TESTS
// =============================================================================

func TestConcurrentPublishAndSubscribe(t *testing.T) {
	bus := NewInMemoryCommBus(nil)
	var count int32
	bus.Subscribe("FailureRecorded", countingHandler(&count))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = bus.Publish(context.Background(), &FailureRecorded{})
		}()
		go func() {
			defer wg.Done()
			unsubscribe := bus.Subscribe("FailureRecorded", func(ctx context.Context, msg Message) error { return nil })
			unsubscribe()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(20), atomic.LoadInt32(&count))
}
