// Package observability provides Prometheus metrics instrumentation for the
// invocation pipeline.
package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jeeves-cluster-organization/callguard/coreengine/intercept"
)

// =============================================================================
// INVOCATION METRICS
// =============================================================================

var (
	invocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callguard_invocations_total",
			Help: "Total number of intercepted invocations",
		},
		[]string{"method", "mode", "status"}, // status: final outcome, success or failure
	)

	invocationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "callguard_invocation_duration_seconds",
			Help:    "Invocation duration in seconds, target call plus policy handling",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"method", "mode"},
	)
)

// =============================================================================
// POLICY METRICS
// =============================================================================

var (
	failuresRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callguard_failures_recorded_total",
			Help: "Failures handed to the recording sink",
		},
		[]string{"method"},
	)

	failuresSuppressedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callguard_failures_suppressed_total",
			Help: "Failures replaced by a fallback value",
		},
		[]string{"method"},
	)

	recordsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "callguard_records_dropped_total",
			Help: "Failure records dropped because the recording buffer was full",
		},
	)
)

// =============================================================================
// PUBLIC API
// =============================================================================

// RecordInvocation records invocation metrics.
// This should be called once the final outcome is known.
func RecordInvocation(method, mode, status string, durationMS float64) {
	invocationsTotal.WithLabelValues(method, mode, status).Inc()
	invocationDurationSeconds.WithLabelValues(method, mode).Observe(durationMS / 1000.0)
}

// RecordFailureRecorded counts a failure sent to the recording sink.
func RecordFailureRecorded(method string) {
	failuresRecordedTotal.WithLabelValues(method).Inc()
}

// RecordFailureSuppressed counts a failure replaced by its fallback.
func RecordFailureSuppressed(method string) {
	failuresSuppressedTotal.WithLabelValues(method).Inc()
}

// RecordDropped counts a dropped failure record.
func RecordDropped() {
	recordsDroppedTotal.Inc()
}

// =============================================================================
// PIPELINE OBSERVER
// =============================================================================

// MetricsObserver feeds pipeline completions into the Prometheus metrics.
type MetricsObserver struct {
	intercept.BaseObserver
}

// NewMetricsObserver creates a MetricsObserver.
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{}
}

// OnComplete implements intercept.Observer.
func (o *MetricsObserver) OnComplete(ctx context.Context, inv *intercept.Invocation, c intercept.Completion) {
	method := inv.Key.String()

	RecordInvocation(method, string(inv.Mode()), string(c.Final.Status()), float64(c.Duration.Microseconds())/1000.0)
	if c.Recorded() {
		RecordFailureRecorded(method)
	}
	if c.Suppressed() {
		RecordFailureSuppressed(method)
	}
}

// Ensure MetricsObserver implements intercept.Observer.
var _ intercept.Observer = (*MetricsObserver)(nil)
