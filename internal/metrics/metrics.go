package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the application collectors. Register them once per registry.
type Metrics struct {
	ChatTurns          prometheus.Counter
	GenerationFailures prometheus.Counter
	GenerationLatency  prometheus.Histogram
	Uploads            *prometheus.CounterVec
	ExtractionFailures *prometheus.CounterVec
	HTTPRequests       *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ChatTurns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "staffqa",
			Name:      "chat_turns_total",
			Help:      "Chat turns answered and persisted.",
		}),
		GenerationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "staffqa",
			Name:      "generation_failures_total",
			Help:      "Language model calls that failed.",
		}),
		GenerationLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "staffqa",
			Name:      "generation_duration_seconds",
			Help:      "Latency of language model calls.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		}),
		Uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "staffqa",
			Name:      "document_uploads_total",
			Help:      "Documents stored, by file type.",
		}, []string{"file_type"}),
		ExtractionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "staffqa",
			Name:      "extraction_failures_total",
			Help:      "Uploads rejected because no text could be extracted, by file type.",
		}, []string{"file_type"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "staffqa",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.ChatTurns,
			m.GenerationFailures,
			m.GenerationLatency,
			m.Uploads,
			m.ExtractionFailures,
			m.HTTPRequests,
		)
	}
	return m
}

// NewNop returns unregistered collectors, for tests.
func NewNop() *Metrics {
	return New(nil)
}
