package tcpserver

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/rzbill/uid/pkg/log"
	"github.com/rzbill/uid/pkg/wire"
)

// DefaultTimeout bounds every socket read and write.
const DefaultTimeout = 30 * time.Second

var (
	// ErrKilled is returned by Serve after a kill request was answered.
	ErrKilled = errors.New("tcpserver: killed by client request")
	// ErrFatal is returned by Serve once the handler can no longer persist
	// its checkpoint.
	ErrFatal = errors.New("tcpserver: checkpoint persistence failed")
)

// Handler processes decoded requests. *allocator.Allocator satisfies it.
type Handler interface {
	Handle(req wire.Request) wire.Response
	Fatal() bool
}

// Options configures a Server.
type Options struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Logger       log.Logger
}

// Server answers one connection at a time: accept, read one request,
// respond, close.
type Server struct {
	h      Handler
	opts   Options
	logger log.Logger
}

// New returns a server dispatching to h.
func New(h Handler, opts Options) *Server {
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewLogger(log.WithOutput(log.NullOutput{}))
	}
	return &Server{h: h, opts: opts, logger: logger.WithComponent("tcp")}
}

// ListenAndServe binds addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, l)
}

// Serve runs the accept loop on l until ctx is done (returns nil), a kill
// request is served (ErrKilled), the handler turns fatal (ErrFatal) or
// accept fails. l is closed on return.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		_ = l.Close()
	}()

	s.logger.Info("listening", log.Str("addr", l.Addr().String()))
	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return err
		}

		req, resp, ok := s.serveConn(conn)
		if !ok {
			continue
		}
		if req.Code == wire.CodeKill && resp.Status == wire.StatusOK {
			s.logger.Info("kill request served, stopping")
			return ErrKilled
		}
		if s.h.Fatal() {
			return ErrFatal
		}
	}
}

// serveConn handles one connection. ok is false when the request never
// reached the handler.
func (s *Server) serveConn(conn net.Conn) (wire.Request, wire.Response, bool) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()

	_ = conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
	req, err := wire.ReadRequest(conn)
	if err != nil {
		s.logger.Debug("dropping connection before request", log.Str(log.RemoteKey, remote), log.Err(err))
		return wire.Request{}, wire.Response{}, false
	}

	resp := s.h.Handle(req)
	s.logger.Debug("request served",
		log.Str(log.RemoteKey, remote),
		log.Str("code", req.Code.String()),
		log.Uint64("size", req.Size),
		log.Str("status", resp.Status.String()),
		log.Str("interval", resp.Interval.String()))

	_ = conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
	if err := wire.WriteResponse(conn, resp); err != nil {
		s.logger.Warn("response not delivered", log.Str(log.RemoteKey, remote), log.Err(err))
	}
	return req, resp, true
}
