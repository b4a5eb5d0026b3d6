// Package testutil provides shared test doubles for packages built on the
// pipeline: a capturing logger and a scriptable target.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/jeeves-cluster-organization/callguard/coreengine/policy"
)

// =============================================================================
// MOCK TARGET
// =============================================================================

// MockTarget is a scriptable pipeline target. Unscripted keys return
// DefaultErr when set, otherwise a nil value.
type MockTarget struct {
	// Results maps method keys to the values they return.
	Results map[policy.MethodKey]any

	// Errors maps method keys to the errors they return.
	Errors map[policy.MethodKey]error

	// DefaultErr is returned for keys without a result or error.
	DefaultErr error

	// Delay simulates target latency.
	Delay time.Duration

	// Calls records all calls for assertion.
	Calls []TargetCall

	mu sync.Mutex
}

// TargetCall records a single target invocation.
type TargetCall struct {
	Key  policy.MethodKey
	Args []any
}

// NewMockTarget creates a MockTarget.
func NewMockTarget() *MockTarget {
	return &MockTarget{
		Results: make(map[policy.MethodKey]any),
		Errors:  make(map[policy.MethodKey]error),
	}
}

// Invoke implements intercept.Target.
func (m *MockTarget) Invoke(ctx context.Context, key policy.MethodKey, args []any) (any, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, TargetCall{Key: key, Args: args})
	delay := m.Delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err, exists := m.Errors[key]; exists {
		return nil, err
	}
	if result, exists := m.Results[key]; exists {
		return result, nil
	}
	return nil, m.DefaultErr
}

// WithResult scripts key to return v.
func (m *MockTarget) WithResult(key policy.MethodKey, v any) *MockTarget {
	m.Results[key] = v
	return m
}

// WithError scripts key to return err.
func (m *MockTarget) WithError(key policy.MethodKey, err error) *MockTarget {
	m.Errors[key] = err
	return m
}

// WithDefaultError makes every unscripted key return err.
func (m *MockTarget) WithDefaultError(err error) *MockTarget {
	m.DefaultErr = err
	return m
}

// WithDelay adds latency simulation.
func (m *MockTarget) WithDelay(d time.Duration) *MockTarget {
	m.Delay = d
	return m
}

// GetCallCount returns the number of calls (thread-safe).
func (m *MockTarget) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// =============================================================================
// MOCK LOGGER
// =============================================================================

// MockLogger captures structured log calls. Safe for concurrent use.
type MockLogger struct {
	logs []LogEntry
	mu   sync.Mutex
}

// LogEntry represents a captured log entry.
type LogEntry struct {
	Level   string
	Message string
	Fields  map[string]any
}

// NewMockLogger creates a MockLogger.
func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

func (m *MockLogger) Debug(msg string, keysAndValues ...any) { m.log("debug", msg, keysAndValues) }
func (m *MockLogger) Info(msg string, keysAndValues ...any)  { m.log("info", msg, keysAndValues) }
func (m *MockLogger) Warn(msg string, keysAndValues ...any)  { m.log("warn", msg, keysAndValues) }
func (m *MockLogger) Error(msg string, keysAndValues ...any) { m.log("error", msg, keysAndValues) }

func (m *MockLogger) log(level, msg string, keysAndValues []any) {
	fields := make(map[string]any)
	for i := 0; i < len(keysAndValues)-1; i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, LogEntry{Level: level, Message: msg, Fields: fields})
}

// GetLogs returns a copy of the captured logs.
func (m *MockLogger) GetLogs() []LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]LogEntry, len(m.logs))
	copy(copied, m.logs)
	return copied
}

// HasLog checks if a log message exists at the given level.
func (m *MockLogger) HasLog(level, message string) bool {
	for _, entry := range m.GetLogs() {
		if entry.Level == level && entry.Message == message {
			return true
		}
	}
	return false
}
