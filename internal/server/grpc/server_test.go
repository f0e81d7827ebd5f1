package grpcserver

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	cfgpkg "github.com/rzbill/uid/internal/config"
	"github.com/rzbill/uid/internal/runtime"
	"github.com/rzbill/uid/pkg/wire"
)

const bufSize = 1 << 20

func dialer(s *grpc.Server) func(context.Context, string) (net.Conn, error) {
	lis := bufconn.Listen(bufSize)
	go func() { _ = s.Serve(lis) }()
	return func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }
}

func openRuntime(t *testing.T) *runtime.Runtime {
	t.Helper()
	cfg := cfgpkg.DefaultServer()
	cfg.PositionFile = filepath.Join(t.TempDir(), "default.pos")
	cfg.IndexSize = 1000
	cfg.MaxBlockSize = 10
	if err := runtime.Init(cfg, cfg.IndexStart); err != nil {
		t.Fatalf("init: %v", err)
	}
	rt, err := runtime.Open(runtime.Options{Config: cfg})
	if err != nil {
		t.Fatalf("rt open: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

func healthClient(t *testing.T, srv *Server) healthpb.HealthClient {
	t.Helper()
	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(dialer(srv.grpc)),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
		srv.grpc.Stop()
	})
	return healthpb.NewHealthClient(conn)
}

func TestHealthOverGRPC(t *testing.T) {
	srv := New(openRuntime(t), nil)
	c := healthClient(t, srv)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for _, svc := range []string{"", ServiceName} {
		res, err := c.Check(ctx, &healthpb.HealthCheckRequest{Service: svc})
		if err != nil {
			t.Fatalf("check %q: %v", svc, err)
		}
		if res.GetStatus() != healthpb.HealthCheckResponse_SERVING {
			t.Fatalf("status %v", res.GetStatus())
		}
	}
}

func TestHealthAfterKill(t *testing.T) {
	rt := openRuntime(t)
	srv := New(rt, nil)
	c := healthClient(t, srv)

	wctx, wcancel := context.WithCancel(context.Background())
	defer wcancel()
	go srv.watch(wctx)

	rt.Allocator().Handle(wire.Request{Code: wire.CodeKill})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		res, err := c.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
		if err != nil {
			t.Fatalf("check: %v", err)
		}
		if res.GetStatus() == healthpb.HealthCheckResponse_NOT_SERVING {
			return
		}
		select {
		case <-ctx.Done():
			t.Fatalf("health never flipped to NOT_SERVING")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
