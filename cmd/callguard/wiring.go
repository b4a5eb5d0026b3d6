package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jeeves-cluster-organization/callguard/commbus"
	"github.com/jeeves-cluster-organization/callguard/coreengine/config"
	"github.com/jeeves-cluster-organization/callguard/coreengine/intercept"
	"github.com/jeeves-cluster-organization/callguard/coreengine/observability"
	"github.com/jeeves-cluster-organization/callguard/coreengine/policy"
	"github.com/jeeves-cluster-organization/callguard/coreengine/record"
	"github.com/jeeves-cluster-organization/callguard/coreengine/sample"
)

// runtime is the shared wiring behind run and serve:
//
//	pipeline -> [AsyncRecorder] -> LogRecorder + BusRecorder -> commbus -> records
type runtime struct {
	logger   *stdLogger
	policies *policy.Registry
	bus      *commbus.InMemoryCommBus
	records  *record.MemoryRecorder
	recorder record.Recorder
	options  []intercept.Option

	async       *record.AsyncRecorder
	unsubscribe func()
	shutdown    func(context.Context) error
}

func newRuntime(cfg *config.PipelineConfig, logger *stdLogger) (*runtime, error) {
	policies, err := loadPolicies(cfg.PolicyFile)
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		logger:   logger,
		policies: policies,
		bus:      commbus.NewInMemoryCommBus(logger),
		records:  record.NewMemoryRecorder(),
	}
	rt.bus.AddMiddleware(commbus.NewLoggingMiddleware(logger))
	rt.unsubscribe = record.Subscribe(rt.bus, rt.records)

	var sink record.Recorder = record.MultiRecorder{
		record.NewLogRecorder(logger, cfg.RecordSource),
		record.NewBusRecorder(rt.bus),
	}
	if cfg.RecordBufferSize > 0 {
		rt.async = record.NewAsyncRecorder(sink, cfg.RecordBufferSize, logger)
		rt.async.OnDrop(observability.RecordDropped)
		sink = rt.async
	}
	rt.recorder = sink

	if cfg.TracingEndpoint != "" {
		shutdown, err := observability.InitTracer(cfg.ServiceName, cfg.TracingEndpoint)
		if err != nil {
			return nil, err
		}
		rt.shutdown = shutdown
		logger.Info("tracing_enabled", "endpoint", cfg.TracingEndpoint)
	}

	rt.options = []intercept.Option{
		intercept.WithRecorder(rt.recorder),
		intercept.WithLogger(logger),
		intercept.WithObserver(observability.NewMetricsObserver()),
	}
	return rt, nil
}

// loadPolicies reads path, or returns the sample policies when path is empty.
func loadPolicies(path string) (*policy.Registry, error) {
	if path == "" {
		return sample.Policies(), nil
	}
	f, err := policy.LoadFile(path)
	if err != nil {
		return nil, err
	}
	reg := policy.NewRegistry()
	if err := reg.Load(f); err != nil {
		return nil, fmt.Errorf("failed to load policies from %s: %w", path, err)
	}
	return reg, nil
}

// close drains pending records and flushes traces.
func (rt *runtime) close(ctx context.Context) error {
	var errs []error
	if rt.async != nil {
		errs = append(errs, rt.async.Close())
	}
	if rt.unsubscribe != nil {
		rt.unsubscribe()
	}
	if rt.shutdown != nil {
		errs = append(errs, rt.shutdown(ctx))
	}
	return errors.Join(errs...)
}
