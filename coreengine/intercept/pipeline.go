package intercept

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jeeves-cluster-organization/callguard/coreengine/outcome"
	"github.com/jeeves-cluster-organization/callguard/coreengine/policy"
	"github.com/jeeves-cluster-organization/callguard/coreengine/record"
)

const tracerName = "github.com/jeeves-cluster-organization/callguard/coreengine/intercept"

// Pipeline sits between a caller and a Target. Every outcome, success or
// failure, passes through the interceptor chain exactly once before it
// reaches the caller.
//
// The chain always starts with a FailureHandler built from WithRecorder;
// interceptors added with WithInterceptors run after it.
//
// Thread-safe: any number of invocations may run concurrently.
type Pipeline struct {
	target       Target
	policies     policy.Lookup
	handler      *FailureHandler
	interceptors []Interceptor
	observer     Observer
	logger       Logger
	tracer       trace.Tracer

	recorder record.Recorder
	format   RecordFormatter
	extra    []Interceptor

	inflight sync.WaitGroup
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRecorder sets the sink used for policies with RecordFailure.
func WithRecorder(r record.Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithRecordFormatter overrides the text written for recorded failures.
func WithRecordFormatter(f RecordFormatter) Option {
	return func(p *Pipeline) { p.format = f }
}

// WithInterceptors appends interceptors after the failure handler.
func WithInterceptors(interceptors ...Interceptor) Option {
	return func(p *Pipeline) { p.extra = append(p.extra, interceptors...) }
}

// WithObserver sets the lifecycle observer.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithTracerProvider sets the provider used to trace invocations.
// The global provider is used by default.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(p *Pipeline) { p.tracer = tp.Tracer(tracerName) }
}

// NewPipeline creates a pipeline calling target and resolving policies
// through policies. A nil policies means no method has a policy.
func NewPipeline(target Target, policies policy.Lookup, opts ...Option) *Pipeline {
	if policies == nil {
		policies = policy.NoPolicy
	}

	p := &Pipeline{
		target:   target,
		policies: policies,
		observer: BaseObserver{},
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.tracer == nil {
		p.tracer = otel.Tracer(tracerName)
	}
	if p.observer == nil {
		p.observer = BaseObserver{}
	}

	p.handler = NewFailureHandler(p.recorder, p.logger).WithFormatter(p.format)
	p.interceptors = append([]Interceptor{p.handler}, p.extra...)
	return p
}

// =============================================================================
// ENTRY POINTS
// =============================================================================

// InvokeSync runs inv on the calling goroutine and returns its final outcome.
// Failures raised by the target, including panics, come back as Failure
// outcomes; a suppressed failure comes back as a Success.
func (p *Pipeline) InvokeSync(ctx context.Context, inv *Invocation) outcome.Outcome {
	if inv == nil {
		return invalidInvocation("nil invocation")
	}
	if !inv.begin(false) {
		return invalidInvocation("invocation " + inv.ID + " was already started")
	}

	ctx, span := p.startSpan(ctx, inv)
	defer span.End()

	start := time.Now()
	p.notifyStart(ctx, inv)

	raw := p.execute(ctx, inv)
	final := p.complete(ctx, inv, raw, start, span)

	inv.markDelivered()
	return final
}

// InvokeAsync runs inv on a new goroutine and returns immediately. Once the
// target returns, the policy is applied on that goroutine and onComplete is
// called exactly once with the final outcome. onComplete may be nil.
//
// A nil or reused invocation is reported to onComplete without running the
// target.
func (p *Pipeline) InvokeAsync(ctx context.Context, inv *Invocation, onComplete func(outcome.Outcome)) {
	if inv == nil || !inv.begin(true) {
		reason := "nil invocation"
		if inv != nil {
			reason = "invocation " + inv.ID + " was already started"
		}
		p.inflight.Add(1)
		safeGo(p.logger, "invoke_async_rejected", func() {
			defer p.inflight.Done()
			if onComplete != nil {
				onComplete(invalidInvocation(reason))
			}
		}, nil)
		return
	}

	ctx, span := p.startSpan(ctx, inv)
	start := time.Now()
	p.notifyStart(ctx, inv)

	p.inflight.Add(1)
	safeGo(p.logger, "invoke_async", func() {
		defer p.inflight.Done()
		defer span.End()

		final := safeExecute(p.logger, "complete "+inv.Key.String(), func() outcome.Outcome {
			raw := p.execute(ctx, inv)
			return p.complete(ctx, inv, raw, start, span)
		})
		safeCall(p.logger, "on_complete "+inv.Key.String(), func() {
			p.deliver(inv, final, onComplete)
		})
	}, nil)
}

// Wait blocks until every InvokeAsync call started so far has delivered.
// It does not cancel anything.
func (p *Pipeline) Wait() {
	p.inflight.Wait()
}

// Policies returns the lookup used by the pipeline.
func (p *Pipeline) Policies() policy.Lookup {
	return p.policies
}

// =============================================================================
// STAGES
// =============================================================================

// execute calls the target. Errors and panics become Failure outcomes.
func (p *Pipeline) execute(ctx context.Context, inv *Invocation) outcome.Outcome {
	return safeExecute(p.logger, "invoke "+inv.Key.String(), func() outcome.Outcome {
		if p.target == nil {
			return outcome.FailureFromError(NewNoMethodError(inv.Key))
		}
		v, err := p.target.Invoke(ctx, inv.Key, inv.Args)
		if err != nil {
			return outcome.FailureFromError(err)
		}
		return outcome.Success(v)
	})
}

// complete resolves the policy and runs the interceptor chain.
func (p *Pipeline) complete(ctx context.Context, inv *Invocation, raw outcome.Outcome, start time.Time, span trace.Span) outcome.Outcome {
	inv.advance(StateCompleted)

	var pol *policy.Descriptor
	if d, ok := p.policies.Lookup(inv.Key); ok {
		pol = &d
	}

	final := raw
	for _, ic := range p.interceptors {
		current := final
		var next outcome.Outcome
		if safeCall(p.logger, "interceptor "+inv.Key.String(), func() {
			next = ic.Handle(ctx, inv, current, pol)
		}) {
			final = next
		}
	}
	inv.advance(StatePolicyApplied)

	c := Completion{
		Raw:           raw,
		Final:         final,
		Policy:        pol,
		Duration:      time.Since(start),
		RecordWritten: inv.Recorded(),
	}
	p.annotateSpan(span, c)
	p.logCompletion(inv, c)

	safeCall(p.logger, "observer_complete", func() {
		p.observer.OnComplete(ctx, inv, c)
	})
	return final
}

// deliver hands the final outcome to the continuation at most once.
func (p *Pipeline) deliver(inv *Invocation, final outcome.Outcome, onComplete func(outcome.Outcome)) {
	if !inv.markDelivered() {
		return
	}
	if onComplete == nil {
		if p.logger != nil {
			p.logger.Debug("async_outcome_discarded", "method", inv.Key.String(), "invocation_id", inv.ID)
		}
		return
	}
	onComplete(final)
}

// =============================================================================
// OBSERVABILITY HELPERS
// =============================================================================

func (p *Pipeline) notifyStart(ctx context.Context, inv *Invocation) {
	safeCall(p.logger, "observer_start", func() {
		p.observer.OnStart(ctx, inv)
	})
}

func (p *Pipeline) startSpan(ctx context.Context, inv *Invocation) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return p.tracer.Start(ctx, inv.Key.String(),
		trace.WithAttributes(
			attribute.String("callguard.method", inv.Key.String()),
			attribute.String("callguard.mode", string(inv.Mode())),
			attribute.String("callguard.invocation_id", inv.ID),
		),
	)
}

func (p *Pipeline) annotateSpan(span trace.Span, c Completion) {
	span.SetAttributes(
		attribute.String("callguard.status", string(c.Final.Status())),
		attribute.Bool("callguard.policy", c.Policy != nil),
		attribute.Bool("callguard.suppressed", c.Suppressed()),
		attribute.Bool("callguard.recorded", c.Recorded()),
	)

	if info := c.Raw.Err(); info != nil && c.Suppressed() {
		span.AddEvent("failure_suppressed", trace.WithAttributes(
			attribute.String("callguard.failure.kind", info.Kind),
			attribute.String("callguard.failure.message", info.Message),
		))
	}
	if info := c.Final.Err(); info != nil {
		span.RecordError(info)
		span.SetStatus(codes.Error, info.Message)
	}
}

func (p *Pipeline) logCompletion(inv *Invocation, c Completion) {
	if p.logger == nil {
		return
	}
	if info := c.Final.Err(); info != nil {
		p.logger.Debug("invocation_failed",
			"method", inv.Key.String(),
			"mode", string(inv.Mode()),
			"kind", info.Kind,
			"error", info.Message,
			"duration_ms", c.Duration.Milliseconds(),
		)
		return
	}
	p.logger.Debug("invocation_completed",
		"method", inv.Key.String(),
		"mode", string(inv.Mode()),
		"suppressed", c.Suppressed(),
		"duration_ms", c.Duration.Milliseconds(),
	)
}
