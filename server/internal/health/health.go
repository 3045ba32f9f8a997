// Package health serves the standard gRPC health service for
// switchwatch-server. The status follows the server lifecycle: SERVING while
// the hub accepts clients, NOT_SERVING once shutdown begins.
package health

import (
	"errors"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/switchwatch/switchwatch/server/internal/auth"
)

// Service is the name reported alongside the overall ("") status.
const Service = "switchwatch.Hub"

// Server is a gRPC server carrying only the health service.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
}

// New returns a Server guarded by the API key interceptor. The initial status
// is NOT_SERVING until SetServing(true) is called.
func New(authMode, header, key string) *Server {
	s := &Server{
		grpc:   grpc.NewServer(grpc.UnaryInterceptor(auth.APIKeyInterceptor(authMode, header, key))),
		health: health.NewServer(),
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.SetServing(false)
	return s
}

// Serve accepts connections on lis until Stop is called. It returns nil once
// stopped, even when Stop ran first.
func (s *Server) Serve(lis net.Listener) error {
	if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// SetServing updates the overall and per-service status.
func (s *Server) SetServing(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(Service, st)
}

// Stop marks every service NOT_SERVING and stops the server after pending
// RPCs finish.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
