// Package metric provides Prometheus instrumentation for the ingestion
// pipeline.
package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the ingestion pipeline metrics.
type Metrics struct {
	FilesLoaded          *prometheus.CounterVec
	EntitiesMerged       prometheus.Counter
	RelationshipsCreated prometheus.Counter
	MergeWarnings        prometheus.Counter
	LoadDuration         prometheus.Histogram
	StoreEntities        *prometheus.GaugeVec
	StoreRelationships   *prometheus.GaugeVec
}

// NewMetrics creates a Metrics instance with all pipeline metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		FilesLoaded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "semgraph",
				Subsystem: "ingest",
				Name:      "files_total",
				Help:      "Total number of source files processed",
			},
			[]string{"kind", "status"},
		),

		EntitiesMerged: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "semgraph",
				Subsystem: "ingest",
				Name:      "entities_merged_total",
				Help:      "Total number of entities created or merged from sources",
			},
		),

		RelationshipsCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "semgraph",
				Subsystem: "ingest",
				Name:      "relationships_created_total",
				Help:      "Total number of relationships created from assertions",
			},
		),

		MergeWarnings: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "semgraph",
				Subsystem: "ingest",
				Name:      "warnings_total",
				Help:      "Total number of dropped assertions and unmatched annotation keys",
			},
		),

		LoadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "semgraph",
				Subsystem: "ingest",
				Name:      "load_duration_seconds",
				Help:      "Duration of load batches in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),

		StoreEntities: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "semgraph",
				Subsystem: "store",
				Name:      "entities",
				Help:      "Entities in the store by type",
			},
			[]string{"type"},
		),

		StoreRelationships: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "semgraph",
				Subsystem: "store",
				Name:      "relationships",
				Help:      "Relationships in the store by canonical type",
			},
			[]string{"type"},
		),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.FilesLoaded,
		m.EntitiesMerged,
		m.RelationshipsCreated,
		m.MergeWarnings,
		m.LoadDuration,
		m.StoreEntities,
		m.StoreRelationships,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
