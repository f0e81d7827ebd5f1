package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rzbill/uid/internal/allocator"
	cfgpkg "github.com/rzbill/uid/internal/config"
	"github.com/rzbill/uid/internal/position"
	"github.com/rzbill/uid/internal/runtime"
	httpserver "github.com/rzbill/uid/internal/server/http"
	tcpserver "github.com/rzbill/uid/internal/server/tcp"
	"github.com/rzbill/uid/pkg/log"
	"github.com/rzbill/uid/pkg/uidclient"
	"github.com/rzbill/uid/pkg/wire"
)

func nullLogger() log.Logger {
	return log.NewLogger(log.WithOutput(log.NullOutput{}))
}

// serveRange runs an allocator over [start, start+size) on loopback until
// the test ends and returns its address.
func serveRange(t *testing.T, start, size, maxBlock uint64) string {
	t.Helper()
	store := position.NewFileStore(filepath.Join(t.TempDir(), "pos"))
	if err := store.Initialize(start); err != nil {
		t.Fatalf("init store: %v", err)
	}
	a, err := allocator.New(allocator.Config{
		IndexStart: start, IndexSize: size, MaxBlockSize: maxBlock, UpdateIncrement: 100,
	}, store)
	if err != nil {
		t.Fatalf("allocator: %v", err)
	}
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = tcpserver.New(a, tcpserver.Options{ReadTimeout: time.Second, WriteTimeout: time.Second}).Serve(ctx, l)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return l.Addr().String()
}

func deadAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}

func run(t *testing.T, baseURL string, args ...string) (string, error) {
	t.Helper()
	cmd := NewBlockCommand(func() string { return baseURL }, nullLogger())
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestNextPrintsSequentialIDs(t *testing.T) {
	addr := serveRange(t, 100, 1000, 100)
	out, err := run(t, "", "next", "--server", addr, "--count", "5", "--block-size", "3")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := strings.Fields(out); strings.Join(got, ",") != "100,101,102,103,104" {
		t.Fatalf("unexpected ids %q", out)
	}
}

func TestReserveFailsOverToFailsafe(t *testing.T) {
	failsafe := serveRange(t, 5000, 1000, 100)
	out, err := run(t, "", "reserve", "--server", deadAddr(t), "--failsafe", failsafe, "--size", "10", "--timeout", "1s")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	var got struct {
		Interval wire.Interval `json:"interval"`
		Count    uint64        `json:"count"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if got.Interval.AStart != 5000 || got.Count != 10 {
		t.Fatalf("unexpected reply %+v", got)
	}
}

func TestReserveBoundaryIsNotRetried(t *testing.T) {
	addr := serveRange(t, 1, 10, 10)
	start := time.Now()
	_, err := run(t, "", "reserve", "--server", addr, "--size", "11", "--wait", "10s")
	if !errors.Is(err, uidclient.ErrBlockTooLarge) {
		t.Fatalf("want ErrBlockTooLarge, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("boundary error was retried")
	}
}

func TestReserveBothServersDown(t *testing.T) {
	_, err := run(t, "", "reserve", "--server", deadAddr(t), "--failsafe", deadAddr(t), "--timeout", "1s")
	if !errors.Is(err, uidclient.ErrConnect) {
		t.Fatalf("want ErrConnect, got %v", err)
	}
}

func TestMaxSize(t *testing.T) {
	addr := serveRange(t, 1, 1000, 250)
	out, err := run(t, "", "max-size", "--server", addr)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if strings.TrimSpace(out) != "250" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestReserveOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/blocks" || r.URL.Query().Get("namespace") != "orders" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(wire.BlockReply{Interval: wire.Interval{AStart: 77, ASize: 4}})
	}))
	defer srv.Close()

	out, err := run(t, "", "reserve", "--http-servers", srv.URL, "--namespace", "orders", "--size", "4")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, `"aStart": 77`) {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestStatusReadsAdminAPI(t *testing.T) {
	cfg := cfgpkg.DefaultServer()
	cfg.PositionFile = filepath.Join(t.TempDir(), "default.pos")
	cfg.IndexStart, cfg.IndexSize, cfg.MaxBlockSize, cfg.UpdateIncrement = 10, 100, 10, 5
	if err := runtime.Init(cfg, cfg.IndexStart); err != nil {
		t.Fatalf("init: %v", err)
	}
	rt, err := runtime.Open(runtime.Options{Config: cfg})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rt.Close()
	srv := httptest.NewServer(httpserver.New(rt, nullLogger()).Handler())
	defer srv.Close()

	out, err := run(t, srv.URL, "status")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, `"namespace": "default"`) {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestWithRetryRetriesConnectErrors(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), 5*time.Second, nullLogger(), func() error {
		calls++
		if calls < 3 {
			return uidclient.ErrConnect
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}

func TestWithRetryZeroWaitRunsOnce(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), 0, nullLogger(), func() error {
		calls++
		return uidclient.ErrConnect
	})
	if !errors.Is(err, uidclient.ErrConnect) || calls != 1 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}

func TestClientConfigRejectsBadServerFlag(t *testing.T) {
	_, err := run(t, "", "max-size", "--server", "no-port")
	if !errors.Is(err, cfgpkg.ErrInvalid) {
		t.Fatalf("want ErrInvalid, got %v", err)
	}
}

func TestReserveUnknownNamespaceFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unknown namespace wrong"})
	}))
	defer srv.Close()

	out, err := run(t, "", "reserve", "--http-servers", srv.URL, "--namespace", "wrong", "--size", "4")
	if !errors.Is(err, uidclient.ErrConnect) {
		t.Fatalf("want ErrConnect, got %v (output %q)", err, out)
	}
	if out != "" {
		t.Fatalf("printed a reply for a failed reservation: %q", out)
	}
}
