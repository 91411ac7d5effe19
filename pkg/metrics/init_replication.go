package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initReplicationMetrics() {
	r.ReplicationWritesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "kvnode_replication_writes_total",
			Help: "Client writes by admission outcome",
		},
		[]string{"outcome"}, // applied, redirect, no_leader, halted, durability_error
	)

	r.ReplicationFanOutTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "kvnode_replication_fanout_total",
			Help: "Replication calls to followers by result",
		},
		[]string{"peer", "result"}, // success, failure
	)

	r.ReplicationFanOutPending = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "kvnode_replication_fanout_pending",
			Help: "Replication calls currently in flight",
		},
	)

	r.ReplicationAppliedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "kvnode_replication_applied_total",
			Help: "Replication-apply calls received from a leader",
		},
	)
}
