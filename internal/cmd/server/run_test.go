package serverrun

import (
	"bytes"
	"context"
	"errors"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	cfgpkg "github.com/rzbill/uid/internal/config"
	"github.com/rzbill/uid/internal/position"
	logpkg "github.com/rzbill/uid/pkg/log"
	"github.com/rzbill/uid/pkg/uidclient"
)

func testConfig(t *testing.T) cfgpkg.Server {
	t.Helper()
	cfg := cfgpkg.DefaultServer()
	cfg.PositionFile = filepath.Join(t.TempDir(), "default.pos")
	cfg.IndexStart = 1000
	cfg.IndexSize = 1000
	cfg.MaxBlockSize = 100
	cfg.UpdateIncrement = 100
	cfg.ReadTimeout = cfgpkg.Duration(time.Second)
	cfg.WriteTimeout = cfgpkg.Duration(time.Second)
	return cfg
}

func nullLogger() logpkg.Logger {
	return logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
}

// start runs the server on a loopback listener and returns its address and
// a channel carrying Run's result.
func start(t *testing.T, ctx context.Context, cfg cfgpkg.Server) (string, <-chan error) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Options{Config: cfg, Logger: nullLogger(), Listener: l})
	}()
	return l.Addr().String(), done
}

func wait(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop")
		return nil
	}
}

func readCheckpoint(t *testing.T, path string) uint64 {
	t.Helper()
	v, err := position.NewFileStore(path).Read()
	if err != nil {
		t.Fatalf("read checkpoint: %v", err)
	}
	return v
}

func TestRunServesUntilKilled(t *testing.T) {
	cfg := testConfig(t)
	if err := Init(cfg, cfg.IndexStart, nullLogger()); err != nil {
		t.Fatalf("init: %v", err)
	}
	addr, done := start(t, context.Background(), cfg)

	c, err := uidclient.NewClient(uidclient.Options{Primary: addr, Timeout: time.Second})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	iv, err := c.RequestInterval(context.Background(), 40)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if iv.AStart != 1000 || iv.ASize != 40 {
		t.Fatalf("unexpected interval %v", iv)
	}
	if got := readCheckpoint(t, cfg.PositionFile); got != 1100 {
		t.Fatalf("checkpoint while serving: %d", got)
	}

	if err := Kill(context.Background(), addr, time.Second, nullLogger()); err != nil {
		t.Fatalf("kill: %v", err)
	}
	if err := wait(t, done); err != nil {
		t.Fatalf("run after kill: %v", err)
	}
	if got := readCheckpoint(t, cfg.PositionFile); got != 1040 {
		t.Fatalf("checkpoint after kill: %d", got)
	}
}

func TestRunCancelPersistsCursor(t *testing.T) {
	cfg := testConfig(t)
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.GRPCAddr = "127.0.0.1:0"
	if err := Init(cfg, 1500, nullLogger()); err != nil {
		t.Fatalf("init: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	addr, done := start(t, ctx, cfg)

	c, err := uidclient.NewClient(uidclient.Options{Primary: addr, Timeout: time.Second})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if _, err := c.RequestInterval(context.Background(), 5); err != nil {
		t.Fatalf("request: %v", err)
	}
	cancel()
	if err := wait(t, done); err != nil {
		t.Fatalf("run after cancel: %v", err)
	}
	if got := readCheckpoint(t, cfg.PositionFile); got != 1505 {
		t.Fatalf("checkpoint after cancel: %d", got)
	}
}

func TestRunWithoutInitFails(t *testing.T) {
	cfg := testConfig(t)
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	err = Run(context.Background(), Options{Config: cfg, Logger: nullLogger(), Listener: l})
	if !errors.Is(err, position.ErrConfig) {
		t.Fatalf("want ErrConfig, got %v", err)
	}
}

func TestKillWithoutServer(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	if err := Kill(context.Background(), addr, time.Second, nullLogger()); !errors.Is(err, uidclient.ErrConnect) {
		t.Fatalf("want ErrConnect, got %v", err)
	}
}

func TestInitRequiresPositionFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.PositionFile = ""
	if err := Init(cfg, 1, nullLogger()); !errors.Is(err, cfgpkg.ErrInvalid) {
		t.Fatalf("want ErrInvalid, got %v", err)
	}
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ns.pos")
	cmd := NewCommand(nullLogger())
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"init", "--position-file", path, "--start", "42"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out.String(), "initialized") {
		t.Fatalf("unexpected output %q", out.String())
	}
	if got := readCheckpoint(t, path); got != 42 {
		t.Fatalf("checkpoint %d", got)
	}
}

func TestServerConfigFlagsOverrideEnv(t *testing.T) {
	t.Setenv("UID_INDEX_SIZE", "500")
	t.Setenv("UID_MAX_BLOCK_SIZE", "50")
	t.Setenv("UID_PORT", "6000")

	cmd := NewCommand(nullLogger())
	startCmd, _, err := cmd.Find([]string{"start"})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if err := startCmd.ParseFlags([]string{"--port", "7000", "--position-file", "/tmp/x.pos", "--debug"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg, err := serverConfig(startCmd)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if cfg.Port != 7000 || cfg.IndexSize != 500 || cfg.MaxBlockSize != 50 || cfg.PositionFile != "/tmp/x.pos" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}
