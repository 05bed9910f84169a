// Package metrics exposes Prometheus collectors for the HTTP API, ledger
// mutations and the sheets mirror. A nil *Metrics is valid and records
// nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kharcha"

// Mirror outcomes
const (
	MirrorOK    = "ok"
	MirrorError = "error"
	MirrorStale = "stale"
)

type Metrics struct {
	registry        *prometheus.Registry
	requestCount    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	mutations       *prometheus.CounterVec
	ledgerSize      prometheus.Gauge
	mirrorRuns      *prometheus.CounterVec
}

// New creates the collectors on a private registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "How many HTTP requests processed, partitioned by status code, HTTP method and route.",
			},
			[]string{"code", "method", "url"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "The HTTP request latencies in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"code", "method", "url"},
		),
		mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_mutations_total",
				Help:      "Ledger mutations partitioned by change kind and result.",
			},
			[]string{"change", "result"},
		),
		ledgerSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ledger_transactions",
			Help:      "Number of transactions currently in the ledger.",
		}),
		mirrorRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sheet_mirror_runs_total",
				Help:      "Sheet mirror runs partitioned by outcome.",
			},
			[]string{"result"},
		),
	}

	m.registry.MustRegister(
		m.requestCount,
		m.requestDuration,
		m.mutations,
		m.ledgerSize,
		m.mirrorRuns,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one HTTP request. route must be the mux pattern,
// not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveRequest(code int, method, route string, elapsed time.Duration) {
	if m == nil {
		return
	}
	status := strconv.Itoa(code)
	m.requestDuration.WithLabelValues(status, method, route).Observe(elapsed.Seconds())
	m.requestCount.WithLabelValues(status, method, route).Inc()
}

// RecordMutation counts a ledger mutation attempt.
func (m *Metrics) RecordMutation(change string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.mutations.WithLabelValues(change, result).Inc()
}

func (m *Metrics) SetLedgerSize(n int) {
	if m == nil {
		return
	}
	m.ledgerSize.Set(float64(n))
}

func (m *Metrics) RecordMirror(result string) {
	if m == nil {
		return
	}
	m.mirrorRuns.WithLabelValues(result).Inc()
}
