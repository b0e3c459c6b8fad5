package replication

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics with bounded cardinality (no per-entity or per-observer labels)
var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "replication_tick_duration_seconds",
		Help:    "Time spent serving every observer in one tick",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
	})

	packetsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "replication_packets_sent_total",
		Help: "Update packets handed to observer transports",
	})

	packetBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "replication_packet_bytes",
		Help:    "Size of update packets",
		Buckets: prometheus.ExponentialBuckets(32, 4, 8),
	})

	updateBlocks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "replication_update_blocks_total",
		Help: "Per-entity blocks written",
	}, []string{"type"}) // Bounded: "values", "create1", "create2"

	removals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "replication_removals_total",
		Help: "Entities dropped from observer views",
	}, []string{"reason"}) // Bounded: "destroy", "out_of_range"

	sendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "replication_send_failures_total",
		Help: "Packets an observer transport refused",
	})

	observersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "replication_observers_active",
		Help: "Observers currently registered with the world",
	})

	entitiesActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "replication_entities_active",
		Help: "Entities currently in the world",
	})

	journalDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "replication_journal_dropped_total",
		Help: "Journal entries dropped by rate limiting, a full buffer or a failed write",
	})
)
