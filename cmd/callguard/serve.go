package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/jeeves-cluster-organization/callguard/coreengine/config"
	cggrpc "github.com/jeeves-cluster-organization/callguard/coreengine/grpc"
	"github.com/jeeves-cluster-organization/callguard/coreengine/intercept"
	"github.com/jeeves-cluster-organization/callguard/coreengine/sample"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve SampleService over gRPC behind the pipeline",
		Long: `Host callguard.sample.v1.SampleService on a gRPC listener. Every RPC runs
through the failure-policy pipeline; Prometheus metrics are exposed on /metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts, cmd.ErrOrStderr())
		},
	}

	defaults := config.DefaultPipelineConfig()
	cmd.Flags().String("grpc-addr", defaults.GRPCAddr, "gRPC listen address")
	cmd.Flags().String("metrics-addr", defaults.MetricsAddr, "metrics listen address, empty disables")
	_ = opts.v.BindPFlag("grpc_addr", cmd.Flags().Lookup("grpc-addr"))
	_ = opts.v.BindPFlag("metrics_addr", cmd.Flags().Lookup("metrics-addr"))

	return cmd
}

func serve(ctx context.Context, opts *rootOptions, logOut io.Writer) error {
	cfg := opts.cfg
	logger := newStdLogger(logOut, cfg.LogLevel)
	logger.Info("callguard_starting", "grpc_addr", cfg.GRPCAddr, "metrics_addr", cfg.MetricsAddr)

	rt, err := newRuntime(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rt.close(closeCtx); err != nil {
			logger.Warn("runtime_close_failed", "error", err.Error())
		}
	}()

	p := cggrpc.NewUnaryPipeline(rt.policies, append(rt.options, intercept.WithRecordFormatter(cggrpc.RecordFormatter))...)
	server := cggrpc.NewServer(logger, p)
	server.RegisterService(&sample.ServiceDesc, sample.SampleObj{})

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           newMetricsRouter(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics_server_error", "error", err.Error())
			}
		}()
		logger.Info("metrics_server_started", "address", cfg.MetricsAddr)
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	err = server.Serve(ctx, lis)

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}
	logger.Info("callguard_stopped")

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// newMetricsRouter serves Prometheus metrics and a liveness probe.
func newMetricsRouter() *mux.Router {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)
	return router
}
