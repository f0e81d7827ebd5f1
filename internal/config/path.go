package config

import (
	"os"
	"path/filepath"
)

// DefaultDataDir is where the server keeps position files and the pebble
// backend when neither a flag nor the config file names a data dir.
// Order: $XDG_DATA_HOME/uid, then ~/.uid, then ./data.
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "uid")
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".uid")
	}
	return "./data"
}
