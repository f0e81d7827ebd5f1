package position

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore keeps the checkpoint as exactly 8 big-endian bytes in one file.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path. The file need not exist yet.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

// Initialize writes start as the checkpoint.
func (s *FileStore) Initialize(start uint64) error {
	return s.Write(start)
}

// Read returns the checkpoint.
func (s *FileStore) Read() (uint64, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("%w: position file %s does not exist", ErrConfig, s.path)
		}
		return 0, fmt.Errorf("%w: read %s: %v", ErrConfig, s.path, err)
	}
	if len(b) != 8 {
		return 0, fmt.Errorf("%w: position file %s is %d bytes, want 8", ErrConfig, s.path, len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}

// Write replaces the checkpoint. The new value is written to a temporary file
// in the same directory, synced, then renamed over the old one, so a crash
// leaves either the old or the new value on disk.
func (s *FileStore) Write(v uint64) error {
	if err := s.write(v); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrConfig, s.path, err)
	}
	return nil
}

func (s *FileStore) write(v uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(b[:]); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return err
	}
	return syncDir(dir)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	if err := d.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return err
	}
	return nil
}

// Close is a no-op.
func (s *FileStore) Close() error { return nil }
