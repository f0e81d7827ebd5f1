package position

import (
	"github.com/rzbill/uid/pkg/wire"
)

// ErrConfig reports a missing, unreadable, malformed or unwritable position
// record. It is the same sentinel the server reports to clients.
var ErrConfig = wire.ErrConfig

// Store persists the checkpoint of one id range.
type Store interface {
	// Initialize writes start as the checkpoint. Running it against a range a
	// live server has already handed ids from breaks uniqueness.
	Initialize(start uint64) error
	// Read returns the current checkpoint.
	Read() (uint64, error)
	// Write durably replaces the checkpoint.
	Write(v uint64) error
	Close() error
}
