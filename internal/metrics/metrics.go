// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dreamluck"

// GenerationBuckets are tuned for language-model latency, in seconds.
var GenerationBuckets = []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30}

type Metrics struct {
	registry *prometheus.Registry

	QuotaDecisions     *prometheus.CounterVec
	GenerationCalls    *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
	ShareBonus         *prometheus.CounterVec
	ReconciledRecords  prometheus.Counter
	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
}

// New registers every collector on a fresh registry, plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return NewWithRegistry(reg)
}

func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		QuotaDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "quota_decisions_total",
				Help:      "Quota engine decisions by request kind, outcome and reason",
			},
			[]string{"kind", "decision", "reason"},
		),

		GenerationCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generation_calls_total",
				Help:      "Language model calls by call kind and outcome",
			},
			[]string{"call", "outcome"},
		),

		GenerationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generation_duration_seconds",
				Help:      "Language model call latency by call kind",
				Buckets:   GenerationBuckets,
			},
			[]string{"call"},
		),

		ShareBonus: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "share_bonus_total",
				Help:      "Share bonus attempts by whether a quota unit was granted",
			},
			[]string{"granted"},
		),

		ReconciledRecords: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconciled_records_total",
				Help:      "Stale pending dream records marked failed",
			},
		),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route template, method and status code",
			},
			[]string{"route", "method", "status_code"},
		),

		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route template",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}
}

func (m *Metrics) ObserveQuota(kind, decision, reason string) {
	m.QuotaDecisions.WithLabelValues(kind, decision, reason).Inc()
}

func (m *Metrics) ObserveGeneration(call string, err error, elapsed time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.GenerationCalls.WithLabelValues(call, outcome).Inc()
	m.GenerationDuration.WithLabelValues(call).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveShareBonus(granted bool) {
	m.ShareBonus.WithLabelValues(strconv.FormatBool(granted)).Inc()
}

func (m *Metrics) ObserveReconciled(n int64) {
	if n > 0 {
		m.ReconciledRecords.Add(float64(n))
	}
}

func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
