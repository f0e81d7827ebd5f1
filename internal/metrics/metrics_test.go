package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/rzbill/uid/pkg/wire"
)

func TestObserveRequest(t *testing.T) {
	m := New("default")
	m.ObserveRequest(wire.CodeAllocate, wire.StatusOK, 10)
	m.ObserveRequest(wire.CodeAllocate, wire.StatusOK, 5)
	m.ObserveRequest(wire.CodeAllocate, wire.StatusRanOutOfSpace, 0)

	if got := testutil.ToFloat64(m.idsGranted); got != 15 {
		t.Fatalf("ids granted %v", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("allocate", "ok")); got != 2 {
		t.Fatalf("ok requests %v", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("allocate", "ran_out_of_space")); got != 1 {
		t.Fatalf("oos requests %v", got)
	}
}

func TestObservePersistAndCursor(t *testing.T) {
	m := New("default")
	m.ObservePersist(time.Millisecond, nil)
	m.ObservePersist(time.Millisecond, errors.New("boom"))
	m.ObserveCursor(100, 200, 1000)

	if got := testutil.ToFloat64(m.persists.WithLabelValues("error")); got != 1 {
		t.Fatalf("persist errors %v", got)
	}
	if got := testutil.ToFloat64(m.remaining); got != 900 {
		t.Fatalf("remaining %v", got)
	}
}

func TestHandler(t *testing.T) {
	m := New("orders")
	m.ObserveRead(time.Microsecond, 8)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `uid_storage_bytes_total{namespace="orders",op="read"} 8`) {
		t.Fatalf("missing storage series:\n%s", body)
	}
}
