package intercept

import (
	"context"
	"sync"
	"time"

	"github.com/jeeves-cluster-organization/callguard/coreengine/outcome"
	"github.com/jeeves-cluster-organization/callguard/coreengine/policy"
)

// =============================================================================
// TEST LOGGER
// =============================================================================

type logCall struct {
	Level   string
	Message string
}

type testLogger struct {
	mu    sync.Mutex
	calls []logCall
}

func (l *testLogger) add(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, logCall{Level: level, Message: msg})
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) { l.add("debug", msg) }
func (l *testLogger) Info(msg string, keysAndValues ...any)  { l.add("info", msg) }
func (l *testLogger) Warn(msg string, keysAndValues ...any)  { l.add("warn", msg) }
func (l *testLogger) Error(msg string, keysAndValues ...any) { l.add("error", msg) }

func (l *testLogger) has(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.calls {
		if c.Level == level && c.Message == msg {
			return true
		}
	}
	return false
}

// =============================================================================
// SAMPLE TARGET
// =============================================================================

const sampleType = "SampleObj"

var (
	keyNoCatch  = policy.NewMethodKey(sampleType, "NoCatch")
	keySwallow  = policy.NewMethodKey(sampleType, "SwallowException")
	keyWrite    = policy.NewMethodKey(sampleType, "WriteException")
	keyBoth     = policy.NewMethodKey(sampleType, "Both")
	keyEcho     = policy.NewMethodKey(sampleType, "Echo")
	keyPanic    = policy.NewMethodKey(sampleType, "Panic")
	keyNotThere = policy.NewMethodKey(sampleType, "Missing")
)

func failing(message string) MethodFunc {
	return func(ctx context.Context, args []any) (any, error) {
		return nil, outcome.NewTargetError(outcome.KindArgument, message)
	}
}

// newSampleTable builds the four always-failing methods plus helpers.
func newSampleTable() *MethodTable {
	table := NewMethodTable()
	_ = table.RegisterType(sampleType, map[string]MethodFunc{
		"NoCatch":          failing("Cannot catch me!!"),
		"SwallowException": failing("Am I caught or not?"),
		"WriteException":   failing("You've got me?!?!  Who's got you?!?!"),
		"Both":             failing("Somebody stop me!!"),
		"Echo": func(ctx context.Context, args []any) (any, error) {
			if len(args) == 0 {
				return nil, nil
			}
			return args[0], nil
		},
		"Panic": func(ctx context.Context, args []any) (any, error) {
			panic("target exploded")
		},
	})
	return table
}

// newSamplePolicies builds the 2x2 policy matrix.
func newSamplePolicies() *policy.Registry {
	r := policy.NewRegistry()
	_ = r.RegisterType(sampleType, map[string]policy.Descriptor{
		"SwallowException": {SuppressFailure: true, Fallback: "X"},
		"WriteException":   {RecordFailure: true, Fallback: "Whoa!"},
		"Both":             {SuppressFailure: true, RecordFailure: true, Fallback: "Y"},
		"Echo":             {SuppressFailure: true, RecordFailure: true, Fallback: "unused"},
	})
	return r
}

// awaitOutcome collects async deliveries and fails if none arrive in time.
type awaitOutcome struct {
	mu    sync.Mutex
	got   []outcome.Outcome
	ready chan struct{}
	once  sync.Once
}

func newAwaitOutcome() *awaitOutcome {
	return &awaitOutcome{ready: make(chan struct{})}
}

func (a *awaitOutcome) deliver(out outcome.Outcome) {
	a.mu.Lock()
	a.got = append(a.got, out)
	a.mu.Unlock()
	a.once.Do(func() { close(a.ready) })
}

func (a *awaitOutcome) wait(timeout time.Duration) (outcome.Outcome, bool) {
	select {
	case <-a.ready:
		a.mu.Lock()
		defer a.mu.Unlock()
		return a.got[0], true
	case <-time.After(timeout):
		return outcome.Outcome{}, false
	}
}

func (a *awaitOutcome) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.got)
}
