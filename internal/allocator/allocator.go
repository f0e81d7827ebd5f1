package allocator

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rzbill/uid/internal/position"
	"github.com/rzbill/uid/pkg/log"
	"github.com/rzbill/uid/pkg/wire"
)

// ErrInvalidConfig is returned by New for an unusable range configuration.
var ErrInvalidConfig = errors.New("allocator: invalid configuration")

// Config is the immutable description of the range a server manages.
type Config struct {
	IndexStart      uint64
	IndexSize       uint64
	MaxBlockSize    uint64
	UpdateIncrement uint64
}

// End is one past the last id of the range.
func (c Config) End() uint64 { return c.IndexStart + c.IndexSize }

// Validate checks the range fits in uint64 and the block bound is usable.
func (c Config) Validate() error {
	switch {
	case c.IndexSize == 0:
		return fmt.Errorf("%w: index size must be positive", ErrInvalidConfig)
	case c.IndexStart > math.MaxUint64-c.IndexSize:
		return fmt.Errorf("%w: range [%d,+%d) overflows uint64", ErrInvalidConfig, c.IndexStart, c.IndexSize)
	case c.MaxBlockSize == 0:
		return fmt.Errorf("%w: max block size must be positive", ErrInvalidConfig)
	}
	return nil
}

// Observer receives allocation events. internal/metrics implements it.
type Observer interface {
	ObserveRequest(code wire.Code, status wire.Status, granted uint64)
	ObservePersist(elapsed time.Duration, err error)
	ObserveCursor(current, checkpoint, end uint64)
}

type noopObserver struct{}

func (noopObserver) ObserveRequest(wire.Code, wire.Status, uint64) {}
func (noopObserver) ObservePersist(time.Duration, error)           {}
func (noopObserver) ObserveCursor(uint64, uint64, uint64)          {}

// Option configures an Allocator.
type Option func(*Allocator)

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(a *Allocator) { a.logger = l }
}

// WithObserver sets the metrics observer.
func WithObserver(o Observer) Option {
	return func(a *Allocator) { a.observer = o }
}

// Allocator hands out contiguous blocks from one range and keeps the
// persisted checkpoint ahead of every id it has granted.
type Allocator struct {
	mu         sync.Mutex
	cfg        Config
	store      position.Store
	current    uint64
	checkpoint uint64
	fatal      bool
	killed     bool
	done       chan struct{}
	doneOnce   sync.Once

	logger   log.Logger
	observer Observer
}

// Snapshot is a point-in-time view of allocator state.
type Snapshot struct {
	IndexStart      uint64 `json:"indexStart"`
	IndexSize       uint64 `json:"indexSize"`
	MaxBlockSize    uint64 `json:"maxBlockSize"`
	UpdateIncrement uint64 `json:"updateIncrement"`
	Current         uint64 `json:"current"`
	Checkpoint      uint64 `json:"checkpoint"`
	Remaining       uint64 `json:"remaining"`
	Fatal           bool   `json:"fatal"`
	Killed          bool   `json:"killed"`
}

// New reads the checkpoint from store, positions the cursor there and
// durably advances the checkpoint by UpdateIncrement before returning, so ids
// granted by a previous incarnation are never reissued.
//
// A checkpoint below IndexStart is a configuration error. A checkpoint past
// the end of the range leaves the cursor at the end: the range is exhausted.
func New(cfg Config, store position.Store, opts ...Option) (*Allocator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &Allocator{
		cfg:      cfg,
		store:    store,
		done:     make(chan struct{}),
		logger:   log.NewLogger(log.WithOutput(log.NullOutput{})),
		observer: noopObserver{},
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.WithComponent("allocator")

	cp, err := store.Read()
	if err != nil {
		return nil, err
	}
	if cp < cfg.IndexStart {
		return nil, fmt.Errorf("%w: checkpoint %d is below range start %d", position.ErrConfig, cp, cfg.IndexStart)
	}
	if cp > cfg.End() {
		a.logger.Warn("checkpoint beyond range end, range exhausted",
			log.Uint64("checkpoint", cp), log.Uint64("end", cfg.End()))
		cp = cfg.End()
	}

	a.current = cp
	a.checkpoint = addSat(cp, cfg.UpdateIncrement)
	if err := a.persist(a.checkpoint); err != nil {
		return nil, err
	}
	a.logger.Info("allocator ready",
		log.Uint64("index_start", cfg.IndexStart),
		log.Uint64("index_size", cfg.IndexSize),
		log.Uint64("max_block_size", cfg.MaxBlockSize),
		log.Uint64("update_increment", cfg.UpdateIncrement),
		log.Uint64("current", a.current),
		log.Uint64("checkpoint", a.checkpoint))
	a.observer.ObserveCursor(a.current, a.checkpoint, cfg.End())
	return a, nil
}

// Handle processes one request and returns the response to send.
func (a *Allocator) Handle(req wire.Request) wire.Response {
	a.mu.Lock()
	defer a.mu.Unlock()

	resp := a.handle(req)
	a.observer.ObserveRequest(req.Code, resp.Status, resp.Interval.Len())
	a.observer.ObserveCursor(a.current, a.checkpoint, a.cfg.End())
	return resp
}

func (a *Allocator) handle(req wire.Request) wire.Response {
	if a.fatal || a.killed {
		return wire.Response{Status: wire.StatusConfigError}
	}
	switch req.Code {
	case wire.CodeAllocate:
		return a.allocate(req.Size)
	case wire.CodeQueryMaxSize:
		return wire.Response{Interval: wire.Interval{ASize: a.cfg.MaxBlockSize}, Status: wire.StatusOK}
	case wire.CodeKill:
		return a.kill()
	default:
		a.logger.Warn("unknown request code", log.Int("code", int(req.Code)))
		return wire.Response{Status: wire.StatusProtocolError}
	}
}

func (a *Allocator) allocate(n uint64) wire.Response {
	if n > a.cfg.MaxBlockSize {
		a.logger.Warn("block too large", log.Uint64("size", n), log.Uint64("max", a.cfg.MaxBlockSize))
		return wire.Response{Status: wire.StatusBlockTooLarge}
	}
	end := a.current + n
	if end < a.current || end > a.cfg.End() {
		a.logger.Warn("ran out of space",
			log.Uint64("size", n), log.Uint64("current", a.current), log.Uint64("end", a.cfg.End()))
		return wire.Response{Status: wire.StatusRanOutOfSpace}
	}

	iv := wire.Interval{AStart: a.current, ASize: n}
	a.current = end
	if a.current >= a.checkpoint {
		next := addSat(a.current, a.cfg.UpdateIncrement)
		if err := a.persist(next); err != nil {
			a.enterFatal(err)
			return wire.Response{Status: wire.StatusConfigError}
		}
		a.checkpoint = next
	}
	a.logger.Debug("block granted", log.Str("interval", iv.String()))
	return wire.Response{Interval: iv, Status: wire.StatusOK}
}

func (a *Allocator) kill() wire.Response {
	if err := a.persist(a.current); err != nil {
		a.enterFatal(err)
		return wire.Response{Status: wire.StatusConfigError}
	}
	a.checkpoint = a.current
	a.killed = true
	a.logger.Info("kill requested", log.Uint64("checkpoint", a.current))
	a.closeDone()
	return wire.Response{Status: wire.StatusOK}
}

func (a *Allocator) persist(v uint64) error {
	start := time.Now()
	err := a.store.Write(v)
	a.observer.ObservePersist(time.Since(start), err)
	return err
}

func (a *Allocator) enterFatal(err error) {
	a.fatal = true
	a.logger.Error("checkpoint persist failed, refusing further service", log.Err(err),
		log.Uint64("current", a.current), log.Uint64("checkpoint", a.checkpoint))
	a.closeDone()
}

func (a *Allocator) closeDone() {
	a.doneOnce.Do(func() { close(a.done) })
}

// Done is closed once the allocator stops serving, after a kill or a
// persistence failure.
func (a *Allocator) Done() <-chan struct{} { return a.done }

// Fatal reports whether a persistence failure has occurred.
func (a *Allocator) Fatal() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fatal
}

// Killed reports whether a kill request was served.
func (a *Allocator) Killed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.killed
}

// Shutdown persists the cursor as the checkpoint. It is attempted even in
// the fatal state; the error is returned for logging.
func (a *Allocator) Shutdown() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.persist(a.current); err != nil {
		return err
	}
	a.checkpoint = a.current
	a.closeDone()
	return nil
}

// Snapshot returns the current state.
func (a *Allocator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Snapshot{
		IndexStart:      a.cfg.IndexStart,
		IndexSize:       a.cfg.IndexSize,
		MaxBlockSize:    a.cfg.MaxBlockSize,
		UpdateIncrement: a.cfg.UpdateIncrement,
		Current:         a.current,
		Checkpoint:      a.checkpoint,
		Remaining:       a.cfg.End() - a.current,
		Fatal:           a.fatal,
		Killed:          a.killed,
	}
}

// Config returns the range configuration.
func (a *Allocator) Config() Config { return a.cfg }

func addSat(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}
