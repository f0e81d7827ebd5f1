package grpcserver

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rzbill/uid/internal/runtime"
	"github.com/rzbill/uid/pkg/log"
)

// ServiceName is the health service name reported for the allocator.
const ServiceName = "uid.v1.Allocator"

// Server owns the gRPC server instance and runtime.
type Server struct {
	rt     *runtime.Runtime
	grpc   *grpc.Server
	health *health.Server
	logger log.Logger
}

// New constructs a gRPC server and registers the standard health service.
func New(rt *runtime.Runtime, logger log.Logger, opts ...grpc.ServerOption) *Server {
	if logger == nil {
		logger = log.NewLogger(log.WithOutput(log.NullOutput{}))
	}
	s := &Server{
		rt:     rt,
		grpc:   grpc.NewServer(opts...),
		health: health.NewServer(),
		logger: logger.WithComponent("grpc"),
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.refresh(context.Background())
	return s
}

// refresh maps the runtime health onto the health service statuses.
func (s *Server) refresh(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if err := s.rt.CheckHealth(ctx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// watch flips the health status once the allocator stops serving.
func (s *Server) watch(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-s.rt.Allocator().Done():
		s.logger.Warn("allocator stopped, reporting not serving")
		s.refresh(context.Background())
	}
}

// ListenAndServe binds to addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.logger.Info("listening", log.Str("addr", l.Addr().String()))

	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.watch(wctx)

	errCh := make(chan error, 1)
	go func() { errCh <- s.grpc.Serve(l) }()
	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.grpc.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}

