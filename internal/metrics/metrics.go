// Package metrics exposes mqmon's Prometheus instrumentation.
//
// Each [Metrics] owns its own registry so that several monitors (or tests)
// can coexist in one process without colliding on the default registry.
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

const namespace = "mqmon"

// Rejection reasons used as the "reason" label of rejected samples.
const (
	ReasonMissingValue = "missing_value"
	ReasonInvalidValue = "invalid_value"
	ReasonInvalidTime  = "invalid_time"
	ReasonRateLimited  = "rate_limited"
)

// BufferStats is the read-only view of the sample buffer that metrics report on.
type BufferStats interface {
	Len() int
	Capacity() int
	Evicted() uint64
}

// Metrics holds the collectors updated by the ingest and HTTP paths.
type Metrics struct {
	registry        *prometheus.Registry
	ingested        *prometheus.CounterVec
	rejected        *prometheus.CounterVec
	lastValue       prometheus.Gauge
	requestDuration *prometheus.HistogramVec
}

// New creates a [Metrics] with a fresh registry. Buffer gauges are read from
// buf at scrape time.
func New(buf BufferStats) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		ingested: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingested_samples_total",
			Help:      "The total number of samples appended to the buffer.",
		}, []string{"source"}),
		rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_samples_total",
			Help:      "The total number of samples that were discarded before reaching the buffer.",
		}, []string{"source", "reason"}),
		lastValue: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_value",
			Help:      "The most recently ingested mq_raw reading.",
		}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Time (in seconds) spent serving HTTP requests.",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"method", "route", "status_code"}),
	}

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "buffer_samples",
		Help:      "The number of samples currently retained.",
	}, func() float64 { return float64(buf.Len()) })

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "buffer_capacity",
		Help:      "The maximum number of samples retained.",
	}, func() float64 { return float64(buf.Capacity()) })

	factory.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "evicted_samples_total",
		Help:      "The total number of samples evicted from the head of the buffer.",
	}, func() float64 { return float64(buf.Evicted()) })

	return m
}

// SampleIngested records a sample that was appended to the buffer.
func (m *Metrics) SampleIngested(source string, value float64) {
	m.ingested.WithLabelValues(source).Inc()
	m.lastValue.Set(value)
}

// SampleRejected records a sample discarded for the given reason.
func (m *Metrics) SampleRejected(source, reason string) {
	m.rejected.WithLabelValues(source, reason).Inc()
}

// ObserveRequest records the duration of one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, statusCode int, d time.Duration) {
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(statusCode)).Observe(d.Seconds())
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler serving the registry in the Prometheus
// exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
