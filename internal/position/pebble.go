package position

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/rzbill/uid/internal/namespace"
	pebblestore "github.com/rzbill/uid/internal/storage/pebble"
)

// PebbleStore keeps the checkpoint of one namespace in a Pebble database.
type PebbleStore struct {
	db    *pebblestore.DB
	ns    string
	owned bool
}

// NewPebbleStore returns a store for namespace ns in db. db stays owned by
// the caller.
func NewPebbleStore(db *pebblestore.DB, ns string) *PebbleStore {
	return &PebbleStore{db: db, ns: ns}
}

// OpenPebble opens (or creates) a database at dir and returns a store for
// namespace ns that closes the database on Close. Only FsyncModeAlways makes
// every checkpoint durable before the ids it covers are granted.
func OpenPebble(dir, ns string, fsync pebblestore.FsyncMode, metrics pebblestore.MetricsHook) (*PebbleStore, error) {
	db, err := pebblestore.Open(pebblestore.Options{
		DataDir: dir,
		Fsync:   fsync,
		Metrics: metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrConfig, dir, err)
	}
	return &PebbleStore{db: db, ns: ns, owned: true}, nil
}

// Namespace returns the namespace this store serves.
func (s *PebbleStore) Namespace() string { return s.ns }

// Initialize writes start as the checkpoint and records the namespace with
// an unknown range.
func (s *PebbleStore) Initialize(start uint64) error {
	return s.InitializeRange(start, 0, 0)
}

// InitializeRange is Initialize that also records the id range in the
// namespace metadata. A size of 0 means unknown.
func (s *PebbleStore) InitializeRange(checkpoint, indexStart, indexSize uint64) error {
	_, err := namespace.EnsureWith(s.db, s.ns, indexStart, indexSize, func(b *pebble.Batch) error {
		return b.Set(namespace.PositionKey(s.ns), pebblestore.EncodeUint64(checkpoint), nil)
	})
	if err != nil {
		return fmt.Errorf("%w: initialize namespace %q: %v", ErrConfig, s.ns, err)
	}
	return nil
}

// CheckRange fails with ErrConfig when the namespace was initialised for a
// different range. Namespaces without metadata or with an unknown range pass.
func (s *PebbleStore) CheckRange(indexStart, indexSize uint64) error {
	m, err := namespace.Get(s.db, s.ns)
	if errors.Is(err, pebblestore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if m.IndexSize == 0 {
		return nil
	}
	if m.IndexStart != indexStart || m.IndexSize != indexSize {
		return fmt.Errorf("%w: namespace %q holds range [%d,+%d), configured [%d,+%d)",
			ErrConfig, s.ns, m.IndexStart, m.IndexSize, indexStart, indexSize)
	}
	return nil
}

// Read returns the checkpoint.
func (s *PebbleStore) Read() (uint64, error) {
	v, err := s.db.GetUint64(namespace.PositionKey(s.ns))
	if err != nil {
		if errors.Is(err, pebblestore.ErrNotFound) {
			return 0, fmt.Errorf("%w: no position for namespace %q", ErrConfig, s.ns)
		}
		return 0, fmt.Errorf("%w: read namespace %q: %v", ErrConfig, s.ns, err)
	}
	return v, nil
}

// Write replaces the checkpoint.
func (s *PebbleStore) Write(v uint64) error {
	if err := s.db.SetUint64(namespace.PositionKey(s.ns), v); err != nil {
		return fmt.Errorf("%w: write namespace %q: %v", ErrConfig, s.ns, err)
	}
	return nil
}

// Close closes the database if this store opened it.
func (s *PebbleStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}
