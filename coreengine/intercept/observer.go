package intercept

import (
	"context"
	"time"

	"github.com/jeeves-cluster-organization/callguard/coreengine/outcome"
	"github.com/jeeves-cluster-organization/callguard/coreengine/policy"
)

// Completion summarizes a finished invocation for observers.
type Completion struct {
	Raw      outcome.Outcome
	Final    outcome.Outcome
	Policy   *policy.Descriptor
	Duration time.Duration

	// RecordWritten is set when the recorder accepted a record of the failure.
	RecordWritten bool
}

// RecordRequested reports whether the policy asked for the failure to be
// recorded.
func (c Completion) RecordRequested() bool {
	return c.Raw.IsFailure() && c.Policy != nil && c.Policy.RecordFailure
}

// Recorded reports whether a record of the failure was actually written.
// It is false when no recorder is configured or the recorder refused it.
func (c Completion) Recorded() bool {
	return c.RecordWritten
}

// Suppressed reports whether a failure was turned into a success.
func (c Completion) Suppressed() bool {
	return c.Raw.IsFailure() && c.Final.IsSuccess()
}

// Observer receives lifecycle callbacks for every invocation.
// Callbacks may run on any goroutine.
type Observer interface {
	OnStart(ctx context.Context, inv *Invocation)
	OnComplete(ctx context.Context, inv *Invocation, c Completion)
}

// BaseObserver implements Observer with no-op methods.
type BaseObserver struct{}

func (BaseObserver) OnStart(context.Context, *Invocation)                {}
func (BaseObserver) OnComplete(context.Context, *Invocation, Completion) {}

// MultiObserver fans out events to multiple observers.
type MultiObserver []Observer

func (m MultiObserver) OnStart(ctx context.Context, inv *Invocation) {
	for _, o := range m {
		if o != nil {
			o.OnStart(ctx, inv)
		}
	}
}

func (m MultiObserver) OnComplete(ctx context.Context, inv *Invocation, c Completion) {
	for _, o := range m {
		if o != nil {
			o.OnComplete(ctx, inv, c)
		}
	}
}
