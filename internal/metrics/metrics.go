// Package metrics exposes extraction counters and timings to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	tt "github.com/gnolang/revxslt/internal/types"
)

const namespace = "revxslt"

// Metrics owns its registry so several engines can live in one process.
type Metrics struct {
	registry    *prometheus.Registry
	extractions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	bindings    prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Number of processed instance documents by outcome",
		}, []string{"status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_duration_seconds",
			Help:      "Time spent matching one instance document",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"status"}),
		bindings: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_bindings",
			Help:      "Number of top-level names bound per successful match",
			Buckets:   prometheus.LinearBuckets(0, 5, 10),
		}),
	}
	m.registry.MustRegister(m.extractions, m.duration, m.bindings)
	return m
}

// Observe records the outcome of one extraction.
func (m *Metrics) Observe(r tt.Record) {
	status := string(r.Status)
	m.extractions.WithLabelValues(status).Inc()
	m.duration.WithLabelValues(status).Observe(r.Duration.Seconds())
	if r.Matched() {
		m.bindings.Observe(float64(len(r.Bindings)))
	}
}

// Registry returns the registry the collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
