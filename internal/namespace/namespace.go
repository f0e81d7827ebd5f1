package namespace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/cockroachdb/pebble"

	pebblestore "github.com/rzbill/uid/internal/storage/pebble"
)

// DefaultName is used when no namespace is given.
const DefaultName = "default"

// DefaultNameRegex bounds namespace names.
const DefaultNameRegex = "^[a-z0-9_-]{1,64}$"

// ErrInvalidName is returned for names that do not match the configured pattern.
var ErrInvalidName = errors.New("namespace: invalid name")

// Meta records the id range a namespace was initialised with.
type Meta struct {
	Name        string `json:"name"`
	CreatedAtMs int64  `json:"createdAtMs"`
	IndexStart  uint64 `json:"indexStart"`
	IndexSize   uint64 `json:"indexSize"`
}

var (
	nsMetaPrefix   = []byte("nsmeta/")
	positionPrefix = []byte("position/")
)

// Validator checks namespace names against a pattern.
type Validator struct {
	re *regexp.Regexp
}

// NewValidator compiles pattern; an empty pattern uses DefaultNameRegex.
func NewValidator(pattern string) (*Validator, error) {
	if pattern == "" {
		pattern = DefaultNameRegex
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("namespace: bad pattern: %w", err)
	}
	return &Validator{re: re}, nil
}

// Validate returns ErrInvalidName when name does not match.
func (v *Validator) Validate(name string) error {
	if !v.re.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func key(prefix []byte, ns string) []byte {
	k := make([]byte, 0, len(prefix)+len(ns))
	k = append(k, prefix...)
	k = append(k, ns...)
	return k
}

// PositionKey is the key holding the checkpoint of namespace ns.
func PositionKey(ns string) []byte { return key(positionPrefix, ns) }

// MetaKey is the key holding the Meta of namespace ns.
func MetaKey(ns string) []byte { return key(nsMetaPrefix, ns) }

// Get returns the stored meta for ns.
func Get(db *pebblestore.DB, ns string) (Meta, error) {
	b, err := db.Get(MetaKey(ns))
	if err != nil {
		return Meta{}, err
	}
	var m Meta
	if err := json.Unmarshal(b, &m); err != nil {
		return Meta{}, fmt.Errorf("namespace %q: corrupt meta: %w", ns, err)
	}
	return m, nil
}

// Ensure registers ns with the given range if absent and returns the
// effective meta. Idempotent: an existing record wins. A record that cannot
// be read is returned as an error, never overwritten.
func Ensure(db *pebblestore.DB, ns string, start, size uint64) (Meta, error) {
	return EnsureWith(db, ns, start, size, nil)
}

// EnsureWith is Ensure that also applies write to the batch carrying the
// meta record, so both commit atomically. write runs even when the record
// already exists.
func EnsureWith(db *pebblestore.DB, ns string, start, size uint64, write func(*pebble.Batch) error) (Meta, error) {
	m, err := Get(db, ns)
	exists := err == nil
	if err != nil && !errors.Is(err, pebblestore.ErrNotFound) {
		return Meta{}, err
	}
	if exists && write == nil {
		return m, nil
	}

	b := db.NewBatch()
	defer b.Close()
	if !exists {
		m = Meta{Name: ns, CreatedAtMs: time.Now().UnixMilli(), IndexStart: start, IndexSize: size}
		enc, err := json.Marshal(m)
		if err != nil {
			return Meta{}, err
		}
		if err := b.Set(MetaKey(ns), enc, nil); err != nil {
			return Meta{}, err
		}
	}
	if write != nil {
		if err := write(b); err != nil {
			return Meta{}, err
		}
	}
	if err := db.CommitBatch(context.Background(), b); err != nil {
		return Meta{}, err
	}
	return m, nil
}
