package app

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dmitrijs2005/blogcore/internal/logging"
)

// HealthServer exposes the standard gRPC health service. It reports
// NOT_SERVING from the moment the listener opens and flips to SERVING only
// after the readiness gate is released.
type HealthServer struct {
	address string
	logger  logging.Logger
	checker *health.Server
}

func NewHealthServer(address string, logger logging.Logger) *HealthServer {
	return &HealthServer{
		address: address,
		logger:  logger.With("module", "health_server"),
		checker: health.NewServer(),
	}
}

// Run serves the health endpoint until ctx is cancelled. The overall status
// ("" service name) starts NOT_SERVING and becomes SERVING when ready is
// closed.
func (s *HealthServer) Run(ctx context.Context, ready <-chan struct{}) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, s.checker)
	s.checker.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	go func() {
		select {
		case <-ready:
			s.logger.Info(ctx, "startup complete, serving")
			s.checker.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		case <-ctx.Done():
		}
	}()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping health server...")
		s.checker.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting health server", "address", s.address)

	return srv.Serve(listen)
}
