//go:build unix

package position

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Acquire takes an exclusive non-blocking flock on path+".lock".
func Acquire(path string) (*Lock, error) {
	lockPath := path + ".lock"
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock %s: %w", lockPath, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, lockPath)
		}
		return nil, fmt.Errorf("flock %s: %w", lockPath, err)
	}
	return &Lock{
		path: lockPath,
		release: func() error {
			_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
			return f.Close()
		},
	}, nil
}
