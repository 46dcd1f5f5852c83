// Package metrics registers the prometheus instruments the billing engine
// reports on.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics exposes application-level instruments.
type Metrics struct {
	registry *prometheus.Registry

	Recalculations  *prometheus.CounterVec
	Finalizations   *prometheus.CounterVec
	PaymentResults  *prometheus.CounterVec
	NumberConflicts prometheus.Counter
	RecalcDuration  prometheus.Histogram

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New builds the metric set on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	m := &Metrics{
		registry: registry,
		Recalculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "billora",
			Name:      "document_recalculations_total",
			Help:      "Document recalculation runs by document type and outcome.",
		}, []string{"document_type", "outcome"}),
		Finalizations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "billora",
			Name:      "document_finalizations_total",
			Help:      "Finalize attempts by document type and outcome.",
		}, []string{"document_type", "outcome"}),
		PaymentResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "billora",
			Name:      "payment_results_total",
			Help:      "Payment results applied to invoices.",
		}, []string{"status"}),
		NumberConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "billora",
			Name:      "numbering_conflicts_total",
			Help:      "Unique-number conflicts retried during finalize.",
		}),
		RecalcDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "billora",
			Name:      "document_recalculation_seconds",
			Help:      "Wall time of a full document recalculation.",
			Buckets:   prometheus.DefBuckets,
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "billora",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "billora",
			Name:      "http_request_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	registry.MustRegister(
		m.Recalculations,
		m.Finalizations,
		m.PaymentResults,
		m.NumberConflicts,
		m.RecalcDuration,
		m.HTTPRequests,
		m.HTTPDuration,
	)

	return m
}

// Registry returns the registry serving /metrics.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
