package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rzbill/uid/pkg/wire"
)

const (
	metricPrefix   = "uid_"
	namespaceLabel = "namespace"
	codeLabel      = "code"
	statusLabel    = "status"
	opLabel        = "op"
)

// Metrics holds the server's prometheus collectors in a private registry.
// It implements allocator.Observer and pebblestore.MetricsHook.
type Metrics struct {
	registry *prometheus.Registry

	requests       *prometheus.CounterVec
	idsGranted     prometheus.Counter
	persists       *prometheus.CounterVec
	persistLatency prometheus.Histogram
	cursor         prometheus.Gauge
	checkpoint     prometheus.Gauge
	remaining      prometheus.Gauge
	storageOps     *prometheus.CounterVec
	storageBytes   *prometheus.CounterVec
}

// New builds and registers the collectors. ns is attached as a constant
// label to every series.
func New(ns string) *Metrics {
	labels := prometheus.Labels{namespaceLabel: ns}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        metricPrefix + "requests_total",
			Help:        "Requests served, by request code and response status.",
			ConstLabels: labels,
		}, []string{codeLabel, statusLabel}),
		idsGranted: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        metricPrefix + "ids_granted_total",
			Help:        "Identifiers handed out in successful allocations.",
			ConstLabels: labels,
		}),
		persists: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        metricPrefix + "checkpoint_writes_total",
			Help:        "Checkpoint writes, by result.",
			ConstLabels: labels,
		}, []string{statusLabel}),
		persistLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        metricPrefix + "checkpoint_write_seconds",
			Help:        "Checkpoint write latency.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		cursor: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        metricPrefix + "cursor",
			Help:        "Next identifier the server will hand out.",
			ConstLabels: labels,
		}),
		checkpoint: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        metricPrefix + "checkpoint",
			Help:        "Last persisted checkpoint.",
			ConstLabels: labels,
		}),
		remaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        metricPrefix + "remaining_ids",
			Help:        "Identifiers left in the range.",
			ConstLabels: labels,
		}),
		storageOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        metricPrefix + "storage_ops_total",
			Help:        "Pebble operations, by kind.",
			ConstLabels: labels,
		}, []string{opLabel}),
		storageBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        metricPrefix + "storage_bytes_total",
			Help:        "Pebble bytes moved, by kind.",
			ConstLabels: labels,
		}, []string{opLabel}),
	}
	m.registry.MustRegister(
		m.requests, m.idsGranted, m.persists, m.persistLatency,
		m.cursor, m.checkpoint, m.remaining, m.storageOps, m.storageBytes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{ErrorHandling: promhttp.ContinueOnError})
}

// ObserveRequest implements allocator.Observer.
func (m *Metrics) ObserveRequest(code wire.Code, status wire.Status, granted uint64) {
	m.requests.WithLabelValues(code.String(), status.String()).Inc()
	if code == wire.CodeAllocate && status == wire.StatusOK {
		m.idsGranted.Add(float64(granted))
	}
}

// ObservePersist implements allocator.Observer.
func (m *Metrics) ObservePersist(elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.persists.WithLabelValues(result).Inc()
	m.persistLatency.Observe(elapsed.Seconds())
}

// ObserveCursor implements allocator.Observer.
func (m *Metrics) ObserveCursor(current, checkpoint, end uint64) {
	m.cursor.Set(float64(current))
	m.checkpoint.Set(float64(checkpoint))
	m.remaining.Set(float64(end - current))
}

// ObserveWrite implements pebblestore.MetricsHook.
func (m *Metrics) ObserveWrite(_ time.Duration, bytes int) {
	m.storageOps.WithLabelValues("write").Inc()
	m.storageBytes.WithLabelValues("write").Add(float64(bytes))
}

// ObserveRead implements pebblestore.MetricsHook.
func (m *Metrics) ObserveRead(_ time.Duration, bytes int) {
	m.storageOps.WithLabelValues("read").Inc()
	m.storageBytes.WithLabelValues("read").Add(float64(bytes))
}

// ObserveBatchCommit implements pebblestore.MetricsHook.
func (m *Metrics) ObserveBatchCommit(_ time.Duration, _ int, bytes int) {
	m.storageOps.WithLabelValues("commit").Inc()
	m.storageBytes.WithLabelValues("commit").Add(float64(bytes))
}
