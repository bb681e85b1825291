// Package server provides gRPC server lifecycle management.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/solatis/linewarden/internal/core/api"
	"github.com/solatis/linewarden/internal/core/auth"
	"github.com/solatis/linewarden/internal/core/config"
	"github.com/solatis/linewarden/internal/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// shutdownTimeout bounds GracefulStop before in-flight calls are cut.
const shutdownTimeout = 30 * time.Second

// GRPCServer manages the gRPC server and the optional /metrics listener.
type GRPCServer struct {
	server  *grpc.Server
	health  *health.Server
	metrics *http.Server
	config  config.ServerConfig
	log     *logger.Logger
}

// NewGRPCServer creates the gRPC server with interceptors and service
// registration. verifier may be nil, in which case requests are not signed.
func NewGRPCServer(cfg config.ServerConfig, service api.ValidatorServer, verifier *auth.Verifier, log *logger.Logger) (*GRPCServer, error) {
	if service == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}
	if log == nil {
		log = logger.Nop()
	}
	log = log.Component("grpc")

	interceptors := []grpc.UnaryServerInterceptor{loggingInterceptor(log)}
	if verifier != nil {
		interceptors = append(interceptors, verifier.UnaryInterceptor())
	}

	// Content travels inline; leave headroom over max_content_size for the envelope.
	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(interceptors...),
		grpc.MaxRecvMsgSize(cfg.MaxContentSize+64*1024),
	)
	api.RegisterValidatorServer(server, service)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(api.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	s := &GRPCServer{
		server: server,
		health: healthServer,
		config: cfg,
		log:    log,
	}
	if cfg.MetricsPort > 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		s.metrics = &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.MetricsPort),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	return s, nil
}

// Start binds the configured address and serves until Shutdown.
func (s *GRPCServer) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", addr, err)
	}
	return s.Serve(listener)
}

// Serve serves gRPC on lis and, when configured, /metrics over HTTP.
func (s *GRPCServer) Serve(lis net.Listener) error {
	if s.metrics != nil {
		go func() {
			s.log.Info().Str("addr", s.metrics.Addr).Msg("metrics listener started")
			if err := s.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.log.Error().Err(err).Msg("metrics listener failed")
			}
		}()
	}

	s.log.Info().Str("addr", lis.Addr().String()).Msg("grpc server started")
	return s.server.Serve(lis)
}

// Shutdown marks the service NOT_SERVING and stops gracefully, forcing a
// stop when ctx ends or the shutdown timeout passes.
func (s *GRPCServer) Shutdown(ctx context.Context) error {
	s.health.Shutdown()
	if s.metrics != nil {
		_ = s.metrics.Shutdown(ctx)
	}

	stopped := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		s.server.Stop()
		return fmt.Errorf("shutdown cancelled by context: %w", ctx.Err())
	case <-time.After(shutdownTimeout):
		s.server.Stop()
		return fmt.Errorf("graceful shutdown timeout, forced stop")
	}
}
