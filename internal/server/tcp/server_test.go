package tcpserver

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/rzbill/uid/pkg/wire"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeHandler hands out sequential blocks and can be switched to fatal.
type fakeHandler struct {
	mu      sync.Mutex
	next    uint64
	fatal   bool
	handled int
}

func (h *fakeHandler) Handle(req wire.Request) wire.Response {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled++
	if h.fatal {
		return wire.Response{Status: wire.StatusConfigError}
	}
	switch req.Code {
	case wire.CodeAllocate:
		iv := wire.Interval{AStart: h.next, ASize: req.Size}
		h.next += req.Size
		return wire.Response{Interval: iv, Status: wire.StatusOK}
	case wire.CodeKill:
		return wire.Response{Status: wire.StatusOK}
	default:
		return wire.Response{Status: wire.StatusProtocolError}
	}
}

func (h *fakeHandler) Fatal() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.fatal
}

func (h *fakeHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.handled
}

func start(t *testing.T, h Handler) (addr string, done <-chan error, cancel context.CancelFunc) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan error, 1)
	srv := New(h, Options{ReadTimeout: time.Second, WriteTimeout: time.Second})
	go func() { ch <- srv.Serve(ctx, l) }()
	return l.Addr().String(), ch, cancel
}

func exchange(t *testing.T, addr string, req wire.Request) wire.Response {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if err := wire.WriteRequest(conn, req); err != nil {
		t.Fatalf("write: %v", err)
	}
	resp, err := wire.ReadResponse(conn)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return resp
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

func TestAllocateSequence(t *testing.T) {
	h := &fakeHandler{next: 100}
	addr, done, cancel := start(t, h)

	r1 := exchange(t, addr, wire.Request{Code: wire.CodeAllocate, Size: 10})
	r2 := exchange(t, addr, wire.Request{Code: wire.CodeAllocate, Size: 5})
	if r1.Interval.AStart != 100 || r2.Interval.AStart != 110 || r2.Status != wire.StatusOK {
		t.Fatalf("unexpected responses %+v %+v", r1, r2)
	}

	cancel()
	if err := wait(t, done); err != nil {
		t.Fatalf("serve after cancel: %v", err)
	}
}

func TestKillStopsServer(t *testing.T) {
	addr, done, cancel := start(t, &fakeHandler{})
	defer cancel()

	if resp := exchange(t, addr, wire.Request{Code: wire.CodeKill}); resp.Status != wire.StatusOK {
		t.Fatalf("kill status %v", resp.Status)
	}
	if err := wait(t, done); !errors.Is(err, ErrKilled) {
		t.Fatalf("want ErrKilled, got %v", err)
	}
}

func TestFatalStopsServer(t *testing.T) {
	h := &fakeHandler{fatal: true}
	addr, done, cancel := start(t, h)
	defer cancel()

	if resp := exchange(t, addr, wire.Request{Code: wire.CodeAllocate, Size: 1}); resp.Status != wire.StatusConfigError {
		t.Fatalf("status %v", resp.Status)
	}
	if err := wait(t, done); !errors.Is(err, ErrFatal) {
		t.Fatalf("want ErrFatal, got %v", err)
	}
}

func TestTruncatedRequestIsDropped(t *testing.T) {
	h := &fakeHandler{}
	addr, done, cancel := start(t, h)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	_, _ = conn.Write([]byte{0, 0, 0, 0, 1})
	_ = conn.Close()

	resp := exchange(t, addr, wire.Request{Code: wire.CodeAllocate, Size: 3})
	if resp.Status != wire.StatusOK || resp.Interval.AStart != 0 {
		t.Fatalf("state changed by dropped request: %+v", resp)
	}
	if h.count() != 1 {
		t.Fatalf("handler called %d times", h.count())
	}

	cancel()
	if err := wait(t, done); err != nil {
		t.Fatalf("serve: %v", err)
	}
}

func TestStalledClientTimesOut(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	srv := New(&fakeHandler{}, Options{ReadTimeout: 50 * time.Millisecond, WriteTimeout: time.Second})
	go func() { done <- srv.Serve(ctx, l) }()

	stalled, err := net.Dial("tcp", l.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer stalled.Close()

	resp := exchange(t, l.Addr().String(), wire.Request{Code: wire.CodeAllocate, Size: 1})
	if resp.Status != wire.StatusOK {
		t.Fatalf("status %v", resp.Status)
	}

	cancel()
	if err := wait(t, done); err != nil {
		t.Fatalf("serve: %v", err)
	}
}
