package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initStorageMetrics() {
	r.LogAppendsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "kvnode_log_appends_total",
			Help: "Total number of durable log appends",
		},
		[]string{"status"}, // success, error
	)

	r.LogAppendDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kvnode_log_append_duration_seconds",
			Help:    "Durable log append latency (write, flush and fsync) in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
	)

	r.LogReplayedRecords = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "kvnode_log_replayed_records",
			Help: "Records applied from the durable log at startup",
		},
	)

	r.LogSkippedRecords = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "kvnode_log_skipped_records",
			Help: "Malformed or truncated records skipped at startup",
		},
	)

	r.LogFailed = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "kvnode_log_failed",
			Help: "Whether the durable log has failed and writes are halted (1=yes, 0=no)",
		},
	)

	r.StoreKeysTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "kvnode_store_keys",
			Help: "Number of keys in the in-memory store",
		},
	)

	r.StorePutsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "kvnode_store_puts_total",
			Help: "Total number of store puts by origin",
		},
		[]string{"source"}, // client, replication, replay
	)
}
