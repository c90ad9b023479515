package health

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/oshokin/ice-station/internal/logger"
)

// CameraService is the health service name of the camera session.
const CameraService = "ice.camera"

// Server publishes hub and camera connectivity as health statuses.
type Server struct {
	// health is the standard health implementation.
	health *health.Server
}

// NewServer creates a server reporting a live hub link and no camera, which is
// how a fresh session starts.
func NewServer() *Server {
	s := &Server{health: health.NewServer()}

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(CameraService, healthpb.HealthCheckResponse_NOT_SERVING)

	return s
}

// SetHubLive implements engine.HealthReporter.
func (s *Server) SetHubLive(live bool) {
	s.health.SetServingStatus("", toStatus(live))
}

// SetCameraLive implements engine.HealthReporter.
func (s *Server) SetCameraLive(live bool) {
	s.health.SetServingStatus(CameraService, toStatus(live))
}

// Register adds the health service to a gRPC server.
func (s *Server) Register(registrar grpc.ServiceRegistrar) {
	healthpb.RegisterHealthServer(registrar, s.health)
}

// Serve runs a gRPC server with the health service on lis until ctx is canceled.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	grpcServer := grpc.NewServer()
	s.Register(grpcServer)

	logger.InfoKV(ctx, "Health service listening", "listen_address", lis.Addr().String())

	// Done channel is closed after GracefulStop finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		s.health.Shutdown()
		grpcServer.GracefulStop()
		close(done)
	}()

	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "Health service stopped")

	return nil
}

// ListenAndServe listens on address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, address string) error {
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", address, err)
	}

	return s.Serve(ctx, lis)
}

// toStatus maps a connectivity flag to a serving status.
func toStatus(live bool) healthpb.HealthCheckResponse_ServingStatus {
	if live {
		return healthpb.HealthCheckResponse_SERVING
	}

	return healthpb.HealthCheckResponse_NOT_SERVING
}
