// Package intercept provides the invocation pipeline: it calls a target
// method, routes the outcome through a chain of post-call interceptors, and
// delivers the final outcome exactly once, inline or to a continuation.
package intercept

import (
	"context"

	"github.com/jeeves-cluster-organization/callguard/coreengine/outcome"
	"github.com/jeeves-cluster-organization/callguard/coreengine/policy"
)

// Interceptor observes the outcome of a completed invocation and returns the
// outcome to pass on. pol is nil when the method has no policy.
//
// Interceptors run in registration order; each receives the outcome returned
// by the previous one. An interceptor must return a new Outcome rather than
// expect to change the one it was given.
type Interceptor interface {
	Handle(ctx context.Context, inv *Invocation, out outcome.Outcome, pol *policy.Descriptor) outcome.Outcome
}

// InterceptorFunc adapts a function to the Interceptor interface.
type InterceptorFunc func(ctx context.Context, inv *Invocation, out outcome.Outcome, pol *policy.Descriptor) outcome.Outcome

// Handle implements Interceptor.
func (f InterceptorFunc) Handle(ctx context.Context, inv *Invocation, out outcome.Outcome, pol *policy.Descriptor) outcome.Outcome {
	return f(ctx, inv, out, pol)
}

// Logger is the structured logging protocol used by the pipeline.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}
