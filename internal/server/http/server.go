package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/rzbill/uid/internal/runtime"
	"github.com/rzbill/uid/internal/server/http/controllers"
	"github.com/rzbill/uid/pkg/log"
)

// Server is the admin HTTP surface: health, status, metrics and the HTTP
// block endpoints.
type Server struct {
	rt     *runtime.Runtime
	srv    *http.Server
	logger log.Logger
}

// New builds the mux and registers every route.
func New(rt *runtime.Runtime, logger log.Logger) *Server {
	if logger == nil {
		logger = log.NewLogger(log.WithOutput(log.NullOutput{}))
	}
	mux := http.NewServeMux()
	controllers.NewControllerRegistry(rt, logger).RegisterAllRoutes(mux)
	mux.Handle("/metrics", rt.Metrics().Handler())

	s := &Server{
		rt:     rt,
		logger: logger.WithComponent("http"),
		srv: &http.Server{
			Handler:           cors(mux),
			ReadHeaderTimeout: 10 * time.Second,
			ErrorLog:          log.ToStdLogger(logger.WithComponent("http"), log.WarnLevel),
		},
	}
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// ListenAndServe binds to addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.logger.Info("listening", log.Str("addr", l.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// corsPaths are the read-only routes browsers may call cross-origin.
// GET /v1/blocks advances the allocator and is deliberately left out.
var corsPaths = map[string]bool{
	"/v1/healthz":         true,
	"/v1/status":          true,
	"/v1/blocks/max-size": true,
	"/metrics":            true,
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !corsPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-Id")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
