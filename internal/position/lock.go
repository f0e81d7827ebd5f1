package position

import "errors"

// ErrLocked is returned when another process holds the lock.
var ErrLocked = errors.New("position: record is locked by another process")

// Lock is an exclusive advisory lock guarding one position record.
type Lock struct {
	path    string
	release func() error
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.path }

// Release drops the lock. Safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.release == nil {
		return nil
	}
	fn := l.release
	l.release = nil
	return fn()
}
