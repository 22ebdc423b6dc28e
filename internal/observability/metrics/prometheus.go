// Package metrics provides Prometheus metrics for the MME service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	CalculationsTotal   *prometheus.CounterVec
	ConversionsTotal    prometheus.Counter
	FailuresTotal       *prometheus.CounterVec
	SkippedEntriesTotal prometheus.Counter
	RequestsTotal       *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
	RequestsInFlight    prometheus.Gauge
	TableEntries        prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New creates all metrics and registers them with reg. A nil reg uses a
// fresh private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		CalculationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mme_calculations_total",
			Help: "Total MME calculations by resulting risk level",
		}, []string{"risk_level"}),
		ConversionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mme_conversions_total",
			Help: "Total opioid dose conversions",
		}),
		FailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mme_failures_total",
			Help: "Rejected calculation and conversion requests",
		}, []string{"operation", "kind"}),
		SkippedEntriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mme_skipped_entries_total",
			Help: "Batch entries skipped because the opioid is not in the table",
		}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"method", "route"}),
		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Requests currently being served",
		}),
		TableEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mme_conversion_table_entries",
			Help: "Opioids in the loaded conversion table",
		}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.CalculationsTotal,
		m.ConversionsTotal,
		m.FailuresTotal,
		m.SkippedEntriesTotal,
		m.RequestsTotal,
		m.RequestDuration,
		m.RequestsInFlight,
		m.TableEntries,
	)

	return m
}

// Handler returns the Prometheus HTTP handler for this registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
