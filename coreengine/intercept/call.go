package intercept

import (
	"context"
	"fmt"

	"github.com/jeeves-cluster-organization/callguard/coreengine/outcome"
	"github.com/jeeves-cluster-organization/callguard/coreengine/policy"
)

// Call invokes key synchronously and converts the final outcome into typed
// Go return values. A nil success value yields the zero T.
func Call[T any](ctx context.Context, p *Pipeline, key policy.MethodKey, args ...any) (T, error) {
	return As[T](key, p.InvokeSync(ctx, NewInvocation(key, args...)))
}

// CallAsync invokes key asynchronously and delivers typed results to fn.
func CallAsync[T any](ctx context.Context, p *Pipeline, key policy.MethodKey, fn func(T, error), args ...any) {
	p.InvokeAsync(ctx, NewInvocation(key, args...), func(out outcome.Outcome) {
		if fn != nil {
			fn(As[T](key, out))
		}
	})
}

// As converts an outcome into typed Go return values.
func As[T any](key policy.MethodKey, out outcome.Outcome) (T, error) {
	var zero T

	v, err := out.Unwrap()
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}

	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%s returned %T, want %T", key, v, zero)
	}
	return typed, nil
}
