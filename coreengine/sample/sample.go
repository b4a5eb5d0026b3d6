// Package sample provides the demo target: four methods that always fail,
// each attached to a different failure policy.
package sample

import (
	"context"

	"github.com/jeeves-cluster-organization/callguard/coreengine/intercept"
	"github.com/jeeves-cluster-organization/callguard/coreengine/outcome"
	"github.com/jeeves-cluster-organization/callguard/coreengine/policy"
)

// TypeName is the type half of every sample method key.
const TypeName = "SampleObj"

// Method names.
const (
	MethodNoCatch          = "NoCatch"
	MethodSwallowException = "SwallowException"
	MethodWriteException   = "WriteException"
	MethodBoth             = "Both"
)

// Methods lists the sample methods in display order.
var Methods = []string{MethodNoCatch, MethodSwallowException, MethodWriteException, MethodBoth}

// SampleObj is the demo target. Every method fails with an argument error.
type SampleObj struct{}

func (SampleObj) NoCatch(ctx context.Context) (string, error) {
	return "", outcome.NewTargetError(outcome.KindArgument, "Cannot catch me!!")
}

func (SampleObj) SwallowException(ctx context.Context) (string, error) {
	return "", outcome.NewTargetError(outcome.KindArgument, "Am I caught or not?")
}

func (SampleObj) WriteException(ctx context.Context) (string, error) {
	return "", outcome.NewTargetError(outcome.KindArgument, "You've got me?!?!  Who's got you?!?!")
}

func (SampleObj) Both(ctx context.Context) (string, error) {
	return "", outcome.NewTargetError(outcome.KindArgument, "Somebody stop me!!")
}

// dispatch returns the method of s registered under name.
func dispatch(s SampleServiceServer, name string) func(context.Context) (string, error) {
	switch name {
	case MethodNoCatch:
		return s.NoCatch
	case MethodSwallowException:
		return s.SwallowException
	case MethodWriteException:
		return s.WriteException
	case MethodBoth:
		return s.Both
	}
	return nil
}

// Bind registers every sample method in table under TypeName.
func (o SampleObj) Bind(table *intercept.MethodTable) error {
	methods := make(map[string]intercept.MethodFunc, len(Methods))
	for _, name := range Methods {
		fn := dispatch(o, name)
		methods[name] = func(ctx context.Context, args []any) (any, error) {
			return fn(ctx)
		}
	}
	return table.RegisterType(TypeName, methods)
}

// PolicyMatrix is the 2x2 policy matrix: NoCatch has no policy, the other
// three cover suppress-only, record-only and both.
func PolicyMatrix() map[string]policy.Descriptor {
	return map[string]policy.Descriptor{
		MethodSwallowException: {SuppressFailure: true, Fallback: "Free your mind."},
		MethodWriteException:   {RecordFailure: true, Fallback: "Whoa!"},
		MethodBoth:             {SuppressFailure: true, RecordFailure: true, Fallback: "What? Me Worry?"},
	}
}

// Policies returns a registry holding PolicyMatrix under TypeName and under
// the gRPC service name.
func Policies() *policy.Registry {
	reg := policy.NewRegistry()
	// Keys are non-empty constants; registration cannot fail.
	_ = reg.RegisterType(TypeName, PolicyMatrix())
	_ = reg.RegisterType(ServiceName, PolicyMatrix())
	return reg
}

// NewPipeline builds a pipeline over a bound SampleObj. A nil policies uses
// Policies().
func NewPipeline(policies policy.Lookup, opts ...intercept.Option) (*intercept.Pipeline, error) {
	table := intercept.NewMethodTable()
	if err := (SampleObj{}).Bind(table); err != nil {
		return nil, err
	}
	if policies == nil {
		policies = Policies()
	}
	return intercept.NewPipeline(table, policies, opts...), nil
}
