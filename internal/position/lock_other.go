//go:build !unix

package position

// Acquire is a no-op on platforms without flock.
func Acquire(path string) (*Lock, error) {
	return &Lock{path: path + ".lock"}, nil
}
