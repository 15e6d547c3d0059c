// Package handlers provides the gRPC and HTTP servers of the service,
// bridging the transport layer and the business logic and translating
// between JSON payloads and domain models.
package handlers

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Server holds references to both a gRPC server and an HTTP server.
type Server struct {
	grpcServer   *grpc.Server
	httpServer   *http.Server
	health       *health.Server
	logger       *zap.Logger
	grpcEndpoint string
	httpEndpoint string
}

// NewServer constructs a Server with separate endpoints for gRPC and HTTP.
// The gRPC side serves the standard health and reflection services. A zero
// grpcPort disables it.
func NewServer(
	grpcPort int,
	httpPort int,
	logger *zap.Logger,
	grpcOpts ...grpc.ServerOption,
) *Server {
	s := &Server{
		httpServer:   &http.Server{Addr: fmt.Sprintf(":%d", httpPort), ReadHeaderTimeout: 10 * time.Second},
		health:       health.NewServer(),
		logger:       logger,
		httpEndpoint: fmt.Sprintf(":%d", httpPort),
	}
	if grpcPort > 0 {
		s.grpcServer = grpc.NewServer(grpcOpts...)
		s.grpcEndpoint = fmt.Sprintf(":%d", grpcPort)
		healthpb.RegisterHealthServer(s.grpcServer, s.health)
		reflection.Register(s.grpcServer)
	}
	return s
}

// SetHTTPHandler installs the handler served on the HTTP endpoint.
func (s *Server) SetHTTPHandler(h http.Handler) {
	s.httpServer.Handler = h
}

// SetServing flips the reported health status of the whole server.
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
}

// Start runs the gRPC and HTTP servers concurrently, returning on the first error.
func (s *Server) Start() error {
	var wg sync.WaitGroup
	errChan := make(chan error, 2)

	if s.grpcServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.logger.Info("Starting gRPC server", zap.String("endpoint", s.grpcEndpoint))
			lis, err := net.Listen("tcp", s.grpcEndpoint)
			if err != nil {
				errChan <- fmt.Errorf("gRPC listen error: %w", err)
				return
			}
			if err := s.grpcServer.Serve(lis); err != nil {
				errChan <- fmt.Errorf("gRPC serve error: %w", err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.logger.Info("Starting HTTP server", zap.String("endpoint", s.httpEndpoint))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP serve error: %w", err)
		}
	}()

	s.SetServing(true)

	go func() {
		wg.Wait()
		close(errChan)
	}()

	for err := range errChan {
		if err != nil {
			return err
		}
	}
	return nil
}

// Stop gracefully shuts down both gRPC and HTTP servers.
func (s *Server) Stop() {
	s.logger.Info("Shutting down servers...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.health.Shutdown()
	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	s.logger.Info("Servers stopped")
}
