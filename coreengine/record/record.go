// Package record provides the sinks that receive recorded failures.
//
// Recording is fire-and-forget: callers ignore what Record returns beyond
// logging it, and a broken sink never changes the outcome of a call.
package record

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jeeves-cluster-organization/callguard/commbus"
)

// Recorder receives the text of a recorded failure.
type Recorder interface {
	Record(message string) error
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(message string) error

// Record implements Recorder.
func (f RecorderFunc) Record(message string) error {
	return f(message)
}

// Logger is the structured logging protocol used by the sinks.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// =============================================================================
// LOG RECORDER
// =============================================================================

// LogRecorder writes each record to a structured logger at error level.
type LogRecorder struct {
	logger Logger
	source string
}

// NewLogRecorder creates a LogRecorder. source is attached to each entry.
func NewLogRecorder(logger Logger, source string) *LogRecorder {
	return &LogRecorder{logger: logger, source: source}
}

// Record implements Recorder.
func (r *LogRecorder) Record(message string) error {
	if r.logger == nil {
		return errors.New("record: log recorder has no logger")
	}
	r.logger.Error("failure_recorded", "source", r.source, "message", message)
	return nil
}

// =============================================================================
// MEMORY RECORDER
// =============================================================================

// MemoryRecorder keeps records in memory. Safe for concurrent use.
type MemoryRecorder struct {
	entries []string
	mu      sync.Mutex
}

// NewMemoryRecorder creates an empty MemoryRecorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

// Record implements Recorder.
func (r *MemoryRecorder) Record(message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, message)
	return nil
}

// Entries returns a copy of the recorded messages in arrival order.
func (r *MemoryRecorder) Entries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of records.
func (r *MemoryRecorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Reset drops all records.
func (r *MemoryRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
}

// =============================================================================
// BUS RECORDER
// =============================================================================

// BusRecorder publishes every record as a commbus.FailureRecorded event.
type BusRecorder struct {
	bus commbus.CommBus
	now func() time.Time
}

// NewBusRecorder creates a BusRecorder publishing on bus.
func NewBusRecorder(bus commbus.CommBus) *BusRecorder {
	return &BusRecorder{bus: bus, now: time.Now}
}

// Record implements Recorder.
func (r *BusRecorder) Record(message string) error {
	return r.bus.Publish(context.Background(), &commbus.FailureRecorded{
		Message:    message,
		RecordedAt: r.now(),
	})
}

// Subscribe adapts a Recorder into a commbus subscriber for FailureRecorded.
func Subscribe(bus commbus.CommBus, sink Recorder) func() {
	return bus.Subscribe("FailureRecorded", func(ctx context.Context, msg commbus.Message) error {
		ev, ok := msg.(*commbus.FailureRecorded)
		if !ok {
			return nil
		}
		return sink.Record(ev.Message)
	})
}

// =============================================================================
// MULTI RECORDER
// =============================================================================

// MultiRecorder fans out each record to several sinks. Every sink is called
// even when an earlier one fails; the errors are joined.
type MultiRecorder []Recorder

// Record implements Recorder.
func (m MultiRecorder) Record(message string) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Record(message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// =============================================================================
// ASYNC RECORDER
// =============================================================================

// ErrRecorderClosed is returned by AsyncRecorder after Close.
var ErrRecorderClosed = errors.New("record: recorder closed")

// ErrBufferFull is returned when an AsyncRecorder drops a record.
var ErrBufferFull = errors.New("record: buffer full, record dropped")

// AsyncRecorder hands records to a background worker so Record never blocks.
// When the buffer is full the record is dropped and counted.
type AsyncRecorder struct {
	next    Recorder
	logger  Logger
	queue   chan string
	done    chan struct{}
	dropped atomic.Int64
	onDrop  func()

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewAsyncRecorder starts a worker that forwards records to next.
// bufferSize below 1 is treated as 1.
func NewAsyncRecorder(next Recorder, bufferSize int, logger Logger) *AsyncRecorder {
	if bufferSize < 1 {
		bufferSize = 1
	}
	r := &AsyncRecorder{
		next:   next,
		logger: logger,
		queue:  make(chan string, bufferSize),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

// OnDrop registers a callback invoked for every dropped record.
// It must be set before the recorder is shared.
func (r *AsyncRecorder) OnDrop(fn func()) {
	r.onDrop = fn
}

// Record implements Recorder. It never blocks.
func (r *AsyncRecorder) Record(message string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return ErrRecorderClosed
	}

	select {
	case r.queue <- message:
		return nil
	default:
		r.dropped.Add(1)
		if r.onDrop != nil {
			r.onDrop()
		}
		return ErrBufferFull
	}
}

// Dropped returns how many records were dropped because the buffer was full.
func (r *AsyncRecorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close stops accepting records and waits for queued ones to be written.
func (r *AsyncRecorder) Close() error {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.queue)
		r.mu.Unlock()
	})
	<-r.done
	return nil
}

func (r *AsyncRecorder) run() {
	defer close(r.done)
	for message := range r.queue {
		r.forward(message)
	}
}

func (r *AsyncRecorder) forward(message string) {
	defer func() {
		if p := recover(); p != nil && r.logger != nil {
			r.logger.Warn("record_sink_panic", "panic", p)
		}
	}()
	if err := r.next.Record(message); err != nil && r.logger != nil {
		r.logger.Warn("record_sink_failed", "error", err.Error())
	}
}

var (
	_ Recorder = (*LogRecorder)(nil)
	_ Recorder = (*MemoryRecorder)(nil)
	_ Recorder = (*BusRecorder)(nil)
	_ Recorder = (*AsyncRecorder)(nil)
	_ Recorder = MultiRecorder(nil)
)
