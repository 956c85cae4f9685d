// Package metrics holds the Prometheus collectors for catalog calls, channel
// outcomes, publish runs and HTTP requests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics owns a private registry so that several instances can coexist in
// tests.
type Metrics struct {
	registry *prometheus.Registry

	CatalogCalls     *prometheus.CounterVec
	CatalogDuration  *prometheus.HistogramVec
	CatalogRetries   *prometheus.CounterVec
	ChannelOutcomes  *prometheus.CounterVec
	PublishRuns      *prometheus.CounterVec
	PublishDuration  *prometheus.HistogramVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
}

// New creates and registers every collector, plus the Go and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		CatalogCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chanfeed_catalog_calls_total",
				Help: "Catalog API attempts, by endpoint and outcome.",
			},
			[]string{"endpoint", "outcome"},
		),
		CatalogDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chanfeed_catalog_call_duration_seconds",
				Help:    "Catalog API attempt duration in seconds, by endpoint.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		CatalogRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chanfeed_catalog_retries_total",
				Help: "Catalog API retries scheduled, by endpoint.",
			},
			[]string{"endpoint"},
		),
		ChannelOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chanfeed_channel_fetch_total",
				Help: "Per-channel fetch results, by status.",
			},
			[]string{"status"},
		),
		PublishRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chanfeed_publish_runs_total",
				Help: "Completed runs, by mode and terminal state.",
			},
			[]string{"mode", "state"},
		),
		PublishDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chanfeed_publish_duration_seconds",
				Help:    "Run duration in seconds, by mode.",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"mode"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chanfeed_api_request_duration_seconds",
				Help:    "HTTP request duration in seconds, by endpoint and method.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint", "method", "status"},
		),
		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "chanfeed_requests_in_flight",
				Help: "Number of HTTP requests currently being served.",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.CatalogCalls,
		m.CatalogDuration,
		m.CatalogRetries,
		m.ChannelOutcomes,
		m.PublishRuns,
		m.PublishDuration,
		m.RequestDuration,
		m.RequestsInFlight,
	)
	return m
}

// Gatherer exposes the registry for the /metrics handler.
func (m *Metrics) Gatherer() prometheus.Gatherer { return m.registry }

// TrackQuota exports the estimated catalog quota spent as a gauge.
func (m *Metrics) TrackQuota(spent func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "chanfeed_catalog_quota_units",
			Help: "Estimated catalog quota units spent since start.",
		},
		func() float64 { return float64(spent()) },
	))
}

// ObserveCatalogCall records one catalog attempt.
func (m *Metrics) ObserveCatalogCall(endpoint, outcome string, d time.Duration) {
	m.CatalogCalls.WithLabelValues(endpoint, outcome).Inc()
	m.CatalogDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// ObserveCatalogRetry records a scheduled retry.
func (m *Metrics) ObserveCatalogRetry(endpoint string) {
	m.CatalogRetries.WithLabelValues(endpoint).Inc()
}

// ObserveChannelOutcome records one channel's fetch status.
func (m *Metrics) ObserveChannelOutcome(status string) {
	m.ChannelOutcomes.WithLabelValues(status).Inc()
}

// ObservePublish records a finished run.
func (m *Metrics) ObservePublish(mode, state string, d time.Duration) {
	m.PublishRuns.WithLabelValues(mode, state).Inc()
	m.PublishDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// ObserveRequest records a served HTTP request.
func (m *Metrics) ObserveRequest(endpoint, method, status string, d time.Duration) {
	m.RequestDuration.WithLabelValues(endpoint, method, status).Observe(d.Seconds())
}
