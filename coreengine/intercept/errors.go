package intercept

import (
	"fmt"

	"github.com/jeeves-cluster-organization/callguard/coreengine/outcome"
	"github.com/jeeves-cluster-organization/callguard/coreengine/policy"
)

// NoMethodError is returned when a MethodTable has no method for a key.
type NoMethodError struct {
	Key policy.MethodKey
}

func (e *NoMethodError) Error() string {
	return fmt.Sprintf("no method registered for %s", e.Key)
}

// Kind implements outcome.Kinded.
func (e *NoMethodError) Kind() string {
	return outcome.KindNoMethod
}

// NewNoMethodError creates a new NoMethodError.
func NewNoMethodError(key policy.MethodKey) *NoMethodError {
	return &NoMethodError{Key: key}
}

// invalidInvocation is the outcome for a nil or reused invocation.
func invalidInvocation(reason string) outcome.Outcome {
	return outcome.Failure(outcome.ErrorInfo{Kind: outcome.KindInvalid, Message: reason})
}
