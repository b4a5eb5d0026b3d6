package intercept

import (
	"fmt"
	"runtime/debug"

	"github.com/jeeves-cluster-organization/callguard/coreengine/outcome"
)

// safeExecute runs fn, turning a panic into a Failure outcome of kind panic.
func safeExecute(logger Logger, operation string, fn func() outcome.Outcome) (out outcome.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			if logger != nil {
				logger.Error("panic_recovered",
					"operation", operation,
					"panic", fmt.Sprintf("%v", r),
					"stack", string(debug.Stack()),
				)
			}
			out = outcome.Failure(outcome.FromPanic(r))
		}
	}()
	return fn()
}

// safeCall runs fn and reports whether it returned without panicking.
func safeCall(logger Logger, operation string, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			if logger != nil {
				logger.Error("panic_recovered",
					"operation", operation,
					"panic", fmt.Sprintf("%v", r),
					"stack", string(debug.Stack()),
				)
			}
			ok = false
		}
	}()
	fn()
	return true
}

// safeGo runs fn on a new goroutine with panic recovery.
// onPanic, if set, is called with the recovered value.
func safeGo(logger Logger, operation string, fn func(), onPanic func(recovered any)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				if logger != nil {
					logger.Error("goroutine_panic_recovered",
						"operation", operation,
						"panic", fmt.Sprintf("%v", r),
						"stack", string(debug.Stack()),
					)
				}
				if onPanic != nil {
					onPanic(r)
				}
			}
		}()
		fn()
	}()
}
