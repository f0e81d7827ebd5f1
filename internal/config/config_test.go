package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validServer() Server {
	s := DefaultServer()
	s.PositionFile = "/tmp/uid.pos"
	s.IndexSize = 1 << 32
	s.MaxBlockSize = 10000
	return s
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Server.Port != DefaultPort || cfg.Client.PrimaryPort != DefaultPort {
		t.Fatalf("default ports")
	}
	if cfg.Server.Backend != BackendFile {
		t.Fatalf("default backend %q", cfg.Server.Backend)
	}
	if cfg.Client.Timeout.Std() != 30*time.Second {
		t.Fatalf("client timeout %v", cfg.Client.Timeout.Std())
	}
	if cfg.Client.PrimaryAddr() != "localhost:7321" {
		t.Fatalf("primary addr %q", cfg.Client.PrimaryAddr())
	}
	if cfg.Client.FailsafeAddr() != "" {
		t.Fatalf("failsafe should be unset")
	}
}

func TestLoadJSON(t *testing.T) {
	file := filepath.Join(t.TempDir(), "uid.json")
	data := []byte(`{"server":{"indexStart":100,"indexSize":5000,"maxBlockSize":50,"port":6000,"readTimeout":"5s"},"client":{"failsafeHost":"b","failsafePort":6001}}`)
	if err := os.WriteFile(file, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.IndexStart != 100 || cfg.Server.IndexSize != 5000 || cfg.Server.Port != 6000 {
		t.Fatalf("server %+v", cfg.Server)
	}
	if cfg.Server.ReadTimeout.Std() != 5*time.Second {
		t.Fatalf("read timeout %v", cfg.Server.ReadTimeout.Std())
	}
	if cfg.Server.UpdateIncrement != 1000 {
		t.Fatalf("defaults not kept: %d", cfg.Server.UpdateIncrement)
	}
	if cfg.Client.FailsafeAddr() != "b:6001" {
		t.Fatalf("failsafe %q", cfg.Client.FailsafeAddr())
	}
}

func TestLoadYAML(t *testing.T) {
	file := filepath.Join(t.TempDir(), "uid.yaml")
	data := []byte(`
server:
  namespace: orders
  backend: pebble
  dataDir: /var/lib/uid
  indexSize: 1000000
  maxBlockSize: 500
  writeTimeout: 2s
  log:
    level: debug
    format: json
client:
  httpServers: "http://a:8080,http://b:8080"
  blockSize: 250
`)
	if err := os.WriteFile(file, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	s := cfg.Server
	if s.Namespace != "orders" || s.Backend != BackendPebble || s.IndexSize != 1000000 {
		t.Fatalf("server %+v", s)
	}
	if s.WriteTimeout.Std() != 2*time.Second || s.Log.Level != "debug" {
		t.Fatalf("server %+v", s)
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Client.BlockSize != 250 || !strings.Contains(cfg.Client.HTTPServers, "b:8080") {
		t.Fatalf("client %+v", cfg.Client)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected missing file error")
	}
	file := filepath.Join(t.TempDir(), "bad.yaml")
	_ = os.WriteFile(file, []byte("server: [oops"), 0o644)
	if _, err := Load(file); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("UID_INDEX_START", "42")
	t.Setenv("UID_PORT", "6500")
	t.Setenv("UID_BACKEND", "pebble")
	t.Setenv("UID_READ_TIMEOUT", "3s")
	t.Setenv("UID_MAX_BLOCK_SIZE", "not-a-number")
	t.Setenv(EnvServerHost, "uid-a")
	t.Setenv(EnvServerPort, "7000")
	t.Setenv(EnvFailsafeHost, "uid-b")
	t.Setenv(EnvFailsafePort, "7001")

	cfg := Default()
	FromEnv(&cfg)
	if cfg.Server.IndexStart != 42 || cfg.Server.Port != 6500 || cfg.Server.Backend != BackendPebble {
		t.Fatalf("server %+v", cfg.Server)
	}
	if cfg.Server.ReadTimeout.Std() != 3*time.Second {
		t.Fatalf("read timeout")
	}
	if cfg.Server.MaxBlockSize != 0 {
		t.Fatalf("bad value should be ignored")
	}
	if cfg.Client.PrimaryAddr() != "uid-a:7000" || cfg.Client.FailsafeAddr() != "uid-b:7001" {
		t.Fatalf("client %+v", cfg.Client)
	}
}

func TestServerValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Server)
		ok     bool
	}{
		{"valid", func(*Server) {}, true},
		{"port too low", func(s *Server) { s.Port = 4999 }, false},
		{"port too high", func(s *Server) { s.Port = 65536 }, false},
		{"lowest port", func(s *Server) { s.Port = MinPort }, true},
		{"zero size", func(s *Server) { s.IndexSize = 0 }, false},
		{"overflow", func(s *Server) { s.IndexStart = ^uint64(0) }, false},
		{"zero max block", func(s *Server) { s.MaxBlockSize = 0 }, false},
		{"max block over size", func(s *Server) { s.MaxBlockSize = s.IndexSize + 1 }, false},
		{"no position file", func(s *Server) { s.PositionFile = "" }, false},
		{"pebble without dir", func(s *Server) { s.Backend = BackendPebble }, false},
		{"pebble interval fsync", func(s *Server) { s.Backend, s.DataDir, s.Fsync = BackendPebble, "/tmp/uid", "interval" }, true},
		{"pebble bad fsync", func(s *Server) { s.Backend, s.DataDir, s.Fsync = BackendPebble, "/tmp/uid", "sometimes" }, false},
		{"unknown backend", func(s *Server) { s.Backend = "etcd" }, false},
		{"bad namespace", func(s *Server) { s.Namespace = "Bad Name" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validServer()
			tt.mutate(&s)
			err := s.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalid) {
				t.Fatalf("want ErrInvalid, got %v", err)
			}
		})
	}
}

func TestClientValidate(t *testing.T) {
	c := DefaultClient()
	if err := c.Validate(); err != nil {
		t.Fatalf("default client: %v", err)
	}
	c.FailsafeHost = "b"
	if err := c.Validate(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("failsafe without port should fail: %v", err)
	}
	c = DefaultClient()
	c.PrimaryPort = 80
	c.HTTPServers = "http://a:8080"
	if err := c.Validate(); err != nil {
		t.Fatalf("http mode ignores tcp ports: %v", err)
	}
	c.BlockSize = 0
	if err := c.Validate(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("zero block size should fail")
	}
}
