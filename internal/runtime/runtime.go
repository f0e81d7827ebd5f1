package runtime

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/rzbill/uid/internal/allocator"
	cfgpkg "github.com/rzbill/uid/internal/config"
	"github.com/rzbill/uid/internal/metrics"
	"github.com/rzbill/uid/internal/position"
	pebblestore "github.com/rzbill/uid/internal/storage/pebble"
	"github.com/rzbill/uid/pkg/log"
)

// ErrNotServing is returned by CheckHealth once the allocator stopped.
var ErrNotServing = errors.New("runtime: allocator is not serving")

// Options for building the Runtime.
type Options struct {
	Config cfgpkg.Server
	Logger log.Logger
	// Metrics is created for the configured namespace when nil.
	Metrics *metrics.Metrics
}

// Runtime wires the position store, its lock, metrics and the allocator for
// a single server process.
type Runtime struct {
	config  cfgpkg.Server
	store   position.Store
	lock    *position.Lock
	alloc   *allocator.Allocator
	metrics *metrics.Metrics
	logger  log.Logger
}

// Open locks and reads the position record, then builds the allocator. The
// checkpoint has already been advanced on disk when Open returns.
func Open(opts Options) (*Runtime, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewLogger(log.WithOutput(log.NullOutput{}))
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New(opts.Config.Namespace)
	}

	store, lock, err := openStore(opts.Config, m)
	if err != nil {
		return nil, err
	}
	if opts.Config.Backend == cfgpkg.BackendPebble {
		if mode, _ := pebblestore.ParseFsyncMode(opts.Config.Fsync); mode != pebblestore.FsyncModeAlways {
			logger.Warn("checkpoint writes are not synced individually; a crash may reissue ids",
				log.Str("fsync", opts.Config.Fsync))
		}
	}
	a, err := allocator.New(allocator.Config{
		IndexStart:      opts.Config.IndexStart,
		IndexSize:       opts.Config.IndexSize,
		MaxBlockSize:    opts.Config.MaxBlockSize,
		UpdateIncrement: opts.Config.UpdateIncrement,
	}, store, allocator.WithLogger(logger), allocator.WithObserver(m))
	if err != nil {
		return nil, multierr.Combine(err, store.Close(), lock.Release())
	}
	return &Runtime{
		config:  opts.Config,
		store:   store,
		lock:    lock,
		alloc:   a,
		metrics: m,
		logger:  logger.WithComponent("runtime"),
	}, nil
}

// Init writes start as the checkpoint of the configured position record.
// It must not be run against a range a server is serving or has served.
func Init(cfg cfgpkg.Server, start uint64) (err error) {
	store, lock, err := openStore(cfg, nil)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Combine(err, store.Close(), lock.Release()) }()

	if ps, ok := store.(*position.PebbleStore); ok {
		return ps.InitializeRange(start, cfg.IndexStart, cfg.IndexSize)
	}
	return store.Initialize(start)
}

func openStore(cfg cfgpkg.Server, m *metrics.Metrics) (position.Store, *position.Lock, error) {
	switch cfg.Backend {
	case cfgpkg.BackendPebble:
		var hook pebblestore.MetricsHook
		if m != nil {
			hook = m
		}
		mode, err := pebblestore.ParseFsyncMode(cfg.Fsync)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", cfgpkg.ErrInvalid, err)
		}
		s, err := position.OpenPebble(cfg.DataDir, cfg.Namespace, mode, hook)
		if err != nil {
			return nil, nil, err
		}
		if cfg.IndexSize != 0 {
			if err := s.CheckRange(cfg.IndexStart, cfg.IndexSize); err != nil {
				return nil, nil, multierr.Append(err, s.Close())
			}
		}
		return s, nil, nil
	case "", cfgpkg.BackendFile:
		lock, err := position.Acquire(cfg.PositionFile)
		if err != nil {
			return nil, nil, err
		}
		return position.NewFileStore(cfg.PositionFile), lock, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown backend %q", cfgpkg.ErrInvalid, cfg.Backend)
	}
}

// Close persists the cursor and releases the store and its lock.
func (r *Runtime) Close() error {
	var err error
	if serr := r.alloc.Shutdown(); serr != nil {
		r.logger.Error("final checkpoint write failed", log.Err(serr))
		err = multierr.Append(err, serr)
	}
	err = multierr.Append(err, r.store.Close())
	err = multierr.Append(err, r.lock.Release())
	return err
}

// CheckHealth reports ErrNotServing after a kill or persistence failure and
// otherwise verifies the position record is readable.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.alloc.Fatal() || r.alloc.Killed() {
		return ErrNotServing
	}
	if _, err := r.store.Read(); err != nil {
		return err
	}
	return ctx.Err()
}

// Allocator returns the allocator.
func (r *Runtime) Allocator() *allocator.Allocator { return r.alloc }

// Metrics returns the metrics registry wrapper.
func (r *Runtime) Metrics() *metrics.Metrics { return r.metrics }

// Config returns the server configuration.
func (r *Runtime) Config() cfgpkg.Server { return r.config }

// Namespace returns the namespace this runtime serves.
func (r *Runtime) Namespace() string { return r.config.Namespace }
