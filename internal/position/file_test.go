package position

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.pos")
	s := NewFileStore(path)

	for _, v := range []uint64{0, 1000, math.MaxUint64} {
		if err := s.Write(v); err != nil {
			t.Fatalf("write %d: %v", v, err)
		}
		got, err := s.Read()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if got != v {
			t.Fatalf("got %d want %d", got, v)
		}
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read raw: %v", err)
	}
	if len(b) != 8 {
		t.Fatalf("file is %d bytes", len(b))
	}
}

func TestFileStoreIdempotentRead(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "p"))
	if err := s.Initialize(42); err != nil {
		t.Fatalf("init: %v", err)
	}
	a, errA := s.Read()
	b, errB := s.Read()
	if errA != nil || errB != nil || a != b || a != 42 {
		t.Fatalf("reads differ: %d/%v %d/%v", a, errA, b, errB)
	}
}

func TestFileStoreBigEndianLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p")
	if err := NewFileStore(path).Write(0x0102030405060708); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, _ := os.ReadFile(path)
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	for i := range want {
		if b[i] != want[i] {
			t.Fatalf("bytes %x want %x", b, want)
		}
	}
}

func TestFileStoreErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name  string
		setup func(path string)
	}{
		{"missing", func(string) {}},
		{"truncated", func(p string) { _ = os.WriteFile(p, []byte{1, 2, 3}, 0o644) }},
		{"too long", func(p string) { _ = os.WriteFile(p, make([]byte, 9), 0o644) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			tt.setup(path)
			if _, err := NewFileStore(path).Read(); !errors.Is(err, ErrConfig) {
				t.Fatalf("want ErrConfig, got %v", err)
			}
		})
	}
}

func TestFileStoreUnwritableDir(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "no", "such", "dir", "p"))
	if err := s.Write(1); !errors.Is(err, ErrConfig) {
		t.Fatalf("want ErrConfig, got %v", err)
	}
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(filepath.Join(dir, "p"))
	for i := uint64(0); i < 5; i++ {
		if err := s.Write(i); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the position file, got %d entries", len(entries))
	}
}
