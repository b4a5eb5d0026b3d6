package intercept

import (
	"context"
	"fmt"

	"github.com/jeeves-cluster-organization/callguard/coreengine/outcome"
	"github.com/jeeves-cluster-organization/callguard/coreengine/policy"
	"github.com/jeeves-cluster-organization/callguard/coreengine/record"
)

// RecordFormatter builds the text recorded for a failure.
type RecordFormatter func(key policy.MethodKey, info outcome.ErrorInfo) string

// DefaultRecordFormatter renders "Exception thrown: <method>: <kind>: <message>".
func DefaultRecordFormatter(key policy.MethodKey, info outcome.ErrorInfo) string {
	return fmt.Sprintf("Exception thrown: %s: %s", key, info.Error())
}

// FailureHandler applies a method's failure policy to its outcome.
//
//   - no policy, or a Success: outcome unchanged
//   - Failure with RecordFailure: one record is written to the recorder
//   - Failure with SuppressFailure: Success(Fallback)
//   - Failure without SuppressFailure: the original Failure
//
// Recording never affects the returned outcome: recorder errors and panics
// are logged and dropped.
type FailureHandler struct {
	recorder record.Recorder
	format   RecordFormatter
	logger   Logger
}

// NewFailureHandler creates a FailureHandler. recorder and logger may be nil.
func NewFailureHandler(recorder record.Recorder, logger Logger) *FailureHandler {
	return &FailureHandler{
		recorder: recorder,
		format:   DefaultRecordFormatter,
		logger:   logger,
	}
}

// WithFormatter returns a copy of h that formats records with f.
func (h *FailureHandler) WithFormatter(f RecordFormatter) *FailureHandler {
	if f == nil {
		f = DefaultRecordFormatter
	}
	c := *h
	c.format = f
	return &c
}

// Handle implements Interceptor.
func (h *FailureHandler) Handle(ctx context.Context, inv *Invocation, out outcome.Outcome, pol *policy.Descriptor) outcome.Outcome {
	var key policy.MethodKey
	if inv != nil {
		key = inv.Key
	}
	final, written := h.apply(key, out, pol)
	if written && inv != nil {
		inv.markRecorded()
	}
	return final
}

// Apply is Handle without an invocation.
func (h *FailureHandler) Apply(key policy.MethodKey, out outcome.Outcome, pol *policy.Descriptor) outcome.Outcome {
	final, _ := h.apply(key, out, pol)
	return final
}

// apply also reports whether a record was written.
func (h *FailureHandler) apply(key policy.MethodKey, out outcome.Outcome, pol *policy.Descriptor) (outcome.Outcome, bool) {
	if pol == nil || out.IsSuccess() {
		return out, false
	}

	info := out.Err()

	written := false
	if pol.RecordFailure {
		written = h.record(key, *info)
	}

	if pol.SuppressFailure {
		if h.logger != nil {
			h.logger.Debug("failure_suppressed",
				"method", key.String(),
				"kind", info.Kind,
			)
		}
		return outcome.Success(pol.Fallback), written
	}

	return out, written
}

// record reports whether the recorder accepted the record.
func (h *FailureHandler) record(key policy.MethodKey, info outcome.ErrorInfo) (written bool) {
	if h.recorder == nil {
		return false
	}

	defer func() {
		if p := recover(); p != nil {
			written = false
			if h.logger != nil {
				h.logger.Warn("failure_record_panic",
					"method", key.String(),
					"panic", fmt.Sprintf("%v", p),
				)
			}
		}
	}()

	if err := h.recorder.Record(h.format(key, info)); err != nil {
		if h.logger != nil {
			h.logger.Warn("failure_record_failed",
				"method", key.String(),
				"error", err.Error(),
			)
		}
		return false
	}
	return true
}

// Ensure FailureHandler implements Interceptor.
var _ Interceptor = (*FailureHandler)(nil)
