// Package grpc runs the gateway's gRPC health service. Readiness is
// re-evaluated periodically from the storage and session registry checks.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/casupload/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	DefaultProbeInterval = 5 * time.Second
	probeTimeout         = 500 * time.Millisecond
)

type ReadinessCheck interface {
	IsReady(ctx context.Context) error
}

type HealthServer struct {
	address  string
	logger   logging.Logger
	checks   []ReadinessCheck
	interval time.Duration
	health   *health.Server
}

func NewHealthServer(a string, l logging.Logger, interval time.Duration, checks ...ReadinessCheck) *HealthServer {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	return &HealthServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		checks:   checks,
		interval: interval,
		health:   health.NewServer(),
	}
}

func (s *HealthServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := grpc.NewServer()

	// start pessimistic
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(srv, s.health)

	go s.watch(ctx)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gPRC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}

func (s *HealthServer) watch(ctx context.Context) {
	s.probe(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.probe(ctx)
		}
	}
}

// probe runs every check and publishes the combined status.
func (s *HealthServer) probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING

	for _, c := range s.checks {
		cctx, cancel := context.WithTimeout(ctx, probeTimeout)
		err := c.IsReady(cctx)
		cancel()

		if err != nil {
			s.logger.Warn(ctx, "readiness check failed", "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
			break
		}
	}

	if ctx.Err() == nil {
		s.health.SetServingStatus("", status)
	}
	return status
}
