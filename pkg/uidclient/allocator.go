package uidclient

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rzbill/uid/pkg/log"
	"github.com/rzbill/uid/pkg/wire"
)

// Transport obtains blocks from some server. *Client and *HTTPClient
// implement it.
type Transport interface {
	RequestInterval(ctx context.Context, size uint64) (wire.Interval, error)
	MaxBlockSize(ctx context.Context) (uint64, error)
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithLogger sets the allocator's logger.
func WithLogger(l log.Logger) Option {
	return func(a *Allocator) { a.logger = l }
}

// Allocator caches one block and hands out its ids one at a time, refilling
// from the transport when the block is used up. It is safe for concurrent
// use; refills are serialized.
type Allocator struct {
	mu        sync.Mutex
	t         Transport
	blockSize uint64
	interval  wire.Interval
	offset    uint64
	last      uint64
	hasLast   bool
	logger    log.Logger
}

// New returns an allocator that requests blocks of blockSize ids. No server
// is contacted until the first id is needed.
func New(t Transport, blockSize uint64, opts ...Option) (*Allocator, error) {
	if blockSize == 0 {
		return nil, errors.New("uidclient: block size must be positive")
	}
	a := &Allocator{
		t:         t,
		blockSize: blockSize,
		logger:    log.NewLogger(log.WithOutput(log.NullOutput{})),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.WithComponent("uidclient.allocator")
	return a, nil
}

// NextID returns the next unused id, fetching a new block when the cached
// one is exhausted. On failure the error wraps ErrExhausted and the cause.
func (a *Allocator) NextID(ctx context.Context) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.offset >= a.interval.Len() {
		if err := a.refill(ctx); err != nil {
			return 0, fmt.Errorf("%w: %w", ErrExhausted, err)
		}
	}
	id, _ := a.interval.At(a.offset)
	a.offset++
	a.last, a.hasLast = id, true
	return id, nil
}

// NewInterval discards the cached block and fetches a fresh one.
func (a *Allocator) NewInterval(ctx context.Context) (wire.Interval, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.refill(ctx); err != nil {
		return wire.Interval{}, err
	}
	return a.interval, nil
}

// MaxBlockSize queries the server's largest allowed block.
func (a *Allocator) MaxBlockSize(ctx context.Context) (uint64, error) {
	return a.t.MaxBlockSize(ctx)
}

// LastID returns the id most recently returned by NextID.
func (a *Allocator) LastID() (uint64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last, a.hasLast
}

// LastInterval returns the cached block.
func (a *Allocator) LastInterval() wire.Interval {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.interval
}

// Remaining returns how many ids are left in the cached block.
func (a *Allocator) Remaining() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.interval.Len() - a.offset
}

// BlockSize returns the size used for the next refill.
func (a *Allocator) BlockSize() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.blockSize
}

// SetBlockSize changes the size used for subsequent refills.
func (a *Allocator) SetBlockSize(n uint64) error {
	if n == 0 {
		return errors.New("uidclient: block size must be positive")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.blockSize = n
	return nil
}

// refill replaces the cache only on success. When the server rejects the
// block size it asks for the maximum, clamps and retries once.
func (a *Allocator) refill(ctx context.Context) error {
	iv, err := a.t.RequestInterval(ctx, a.blockSize)
	if errors.Is(err, ErrBlockTooLarge) {
		maxSize, qerr := a.t.MaxBlockSize(ctx)
		if qerr != nil {
			return qerr
		}
		if maxSize == 0 {
			return fmt.Errorf("%w: server reports zero max block size", ErrProtocol)
		}
		a.logger.Info("clamping block size to server maximum",
			log.Uint64("requested", a.blockSize), log.Uint64("max", maxSize))
		a.blockSize = maxSize
		iv, err = a.t.RequestInterval(ctx, a.blockSize)
	}
	if err != nil {
		return err
	}
	if iv.Empty() {
		return fmt.Errorf("%w: server granted an empty block", ErrProtocol)
	}
	a.interval = iv
	a.offset = 0
	a.logger.Debug("block cached", log.Str("interval", iv.String()))
	return nil
}
