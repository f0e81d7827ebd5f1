package serverrun

import (
	"context"
	"errors"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/multierr"

	cfgpkg "github.com/rzbill/uid/internal/config"
	"github.com/rzbill/uid/internal/runtime"
	grpcserver "github.com/rzbill/uid/internal/server/grpc"
	httpserver "github.com/rzbill/uid/internal/server/http"
	tcpserver "github.com/rzbill/uid/internal/server/tcp"
	logpkg "github.com/rzbill/uid/pkg/log"
)

// ErrFatal is returned by Run when the server stopped because the
// checkpoint could not be persisted. The process should exit with status 1.
var ErrFatal = tcpserver.ErrFatal

type Options struct {
	Config cfgpkg.Server
	Logger logpkg.Logger
	// Listener, when set, is served instead of binding Config.ListenAddr().
	Listener net.Listener
}

// Run opens the runtime and serves the block protocol, plus the optional
// HTTP and gRPC admin listeners, until ctx is cancelled, a kill request is
// served or the allocator turns fatal. The cursor is persisted on the way
// out in every case.
func Run(ctx context.Context, opts Options) (err error) {
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
	}
	sctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopSignals := watchSignals(sctx, cancel, logger)
	defer stopSignals()

	rt, err := runtime.Open(runtime.Options{Config: opts.Config, Logger: logger})
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, rt.Close()) }()

	cfg := rt.Config()
	logger.Info("Starting uid server",
		logpkg.Str("namespace", cfg.Namespace),
		logpkg.Str("backend", cfg.Backend),
		logpkg.Str("listen", cfg.ListenAddr()),
		logpkg.Str("http", cfg.HTTPAddr),
		logpkg.Str("grpc", cfg.GRPCAddr),
		logpkg.Uint64("index_start", cfg.IndexStart),
		logpkg.Uint64("index_size", cfg.IndexSize),
		logpkg.Uint64("max_block_size", cfg.MaxBlockSize),
		logpkg.Uint64("update_increment", cfg.UpdateIncrement),
	)

	var wg sync.WaitGroup
	if cfg.HTTPAddr != "" {
		hsrv := httpserver.New(rt, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := hsrv.ListenAndServe(sctx, cfg.HTTPAddr); err != nil && sctx.Err() == nil {
				logger.Error("http error", logpkg.Err(err))
			}
		}()
	}
	if cfg.GRPCAddr != "" {
		gsrv := grpcserver.New(rt, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := gsrv.ListenAndServe(sctx, cfg.GRPCAddr); err != nil && sctx.Err() == nil {
				logger.Error("grpc error", logpkg.Err(err))
			}
		}()
	}

	// The HTTP block endpoint can kill the allocator too; stop the TCP loop
	// when that happens.
	alloc := rt.Allocator()
	go func() {
		select {
		case <-alloc.Done():
			cancel()
		case <-sctx.Done():
		}
	}()

	tsrv := tcpserver.New(alloc, tcpserver.Options{
		ReadTimeout:  cfg.ReadTimeout.Std(),
		WriteTimeout: cfg.WriteTimeout.Std(),
		Logger:       logger,
	})
	if opts.Listener != nil {
		err = tsrv.Serve(sctx, opts.Listener)
	} else {
		err = tsrv.ListenAndServe(sctx, cfg.ListenAddr())
	}
	// Admin listeners shut down on cancel; wait for them before the
	// runtime closes the store.
	cancel()
	wg.Wait()

	switch {
	case errors.Is(err, tcpserver.ErrKilled):
		err = nil
	case err == nil && alloc.Fatal():
		err = ErrFatal
	}
	if errors.Is(err, ErrFatal) {
		logger.Error("checkpoint could not be persisted, server is unrecoverable")
	}
	logger.Info("uid server stopped")
	return err
}

// watchSignals logs every signal the process receives. Interrupt and
// terminate cancel the server; hangup and broken pipe are ignored.
func watchSignals(ctx context.Context, cancel context.CancelFunc, logger logpkg.Logger) (stop func()) {
	ch := make(chan os.Signal, 4)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGPIPE)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-ch:
				switch sig {
				case os.Interrupt, syscall.SIGTERM:
					logger.Info("signal received, shutting down", logpkg.Str("signal", sig.String()))
					cancel()
				default:
					logger.Info("signal ignored", logpkg.Str("signal", sig.String()))
				}
			case <-ctx.Done():
				return
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(ch)
		close(done)
	}
}
