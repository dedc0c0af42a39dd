package gc

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "gcmodel"

// IngestMetrics counts what ingestion passes read and produce.
type IngestMetrics struct {
	Lines         prometheus.Counter
	ParseFailures prometheus.Counter
	Events        *prometheus.CounterVec
	Dangling      prometheus.Counter
	Duration      prometheus.Histogram
}

// NewIngestMetrics creates the ingestion collectors and registers them on reg.
func NewIngestMetrics(reg prometheus.Registerer) (*IngestMetrics, error) {
	m := &IngestMetrics{
		Lines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "ingest",
			Name:      "lines_total",
			Help:      "Physical log lines read.",
		}),
		ParseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "ingest",
			Name:      "parse_failures_total",
			Help:      "Log lines that matched no known shape.",
		}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "ingest",
			Name:      "events_total",
			Help:      "Root events appended to the store, by concurrency kind.",
		}, []string{"concurrency"}),
		Dangling: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "ingest",
			Name:      "dangling_phases_total",
			Help:      "Concurrent phases that started but never ended.",
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "ingest",
			Name:      "duration_seconds",
			Help:      "Wall time of ingestion passes.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
	}

	for _, c := range []prometheus.Collector{m.Lines, m.ParseFailures, m.Events, m.Dangling, m.Duration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register ingest metrics: %w", err)
		}
	}
	return m, nil
}
