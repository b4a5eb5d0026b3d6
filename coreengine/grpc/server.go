package grpc

import (
	"context"
	"fmt"
	"net"
	"sync"

	"google.golang.org/grpc"

	"github.com/jeeves-cluster-organization/callguard/coreengine/intercept"
)

// Server hosts gRPC services behind the policy pipeline.
// It supports graceful shutdown through context cancellation or GracefulStop.
type Server struct {
	grpcServer *grpc.Server
	pipeline   *intercept.Pipeline
	logger     Logger
	shutdownMu sync.Mutex
	isShutdown bool
}

// NewServer creates a server with ServerOptions(logger, p) plus opts.
func NewServer(logger Logger, p *intercept.Pipeline, opts ...grpc.ServerOption) *Server {
	serverOpts := append(ServerOptions(logger, p), opts...)
	return &Server{
		grpcServer: grpc.NewServer(serverOpts...),
		pipeline:   p,
		logger:     logger,
	}
}

// RegisterService registers a service implementation.
func (s *Server) RegisterService(desc *grpc.ServiceDesc, impl any) {
	s.grpcServer.RegisterService(desc, impl)
}

// GRPCServer returns the underlying grpc.Server.
func (s *Server) GRPCServer() *grpc.Server {
	return s.grpcServer
}

// Serve serves on lis until ctx is cancelled or the server stops.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	s.logger.Info("grpc_server_started", "address", lis.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.grpcServer.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("grpc_server_shutting_down", "reason", "context_cancelled")
		s.GracefulStop()
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}
}

// StartBackground listens on address and serves in a goroutine.
// The returned channel receives a serve error, if any, and is then closed.
func (s *Server) StartBackground(address string) (net.Addr, <-chan error, error) {
	lis, err := net.Listen("tcp", address)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to listen: %w", err)
	}

	s.logger.Info("grpc_server_started_background", "address", lis.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.grpcServer.Serve(lis); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	return lis.Addr(), errCh, nil
}

// GracefulStop stops accepting connections, waits for running RPCs and then
// for in-flight async invocations on the pipeline. Safe to call repeatedly.
func (s *Server) GracefulStop() {
	s.shutdownMu.Lock()
	defer s.shutdownMu.Unlock()

	if s.isShutdown {
		return
	}
	s.isShutdown = true

	s.grpcServer.GracefulStop()
	if s.pipeline != nil {
		s.pipeline.Wait()
	}
	s.logger.Info("grpc_server_stopped")
}
