package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initClusterMetrics() {
	r.ClusterProbesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "kvnode_cluster_probes_total",
			Help: "Total number of liveness probes sent to peers",
		},
		[]string{"peer", "result"}, // success, failure
	)

	r.ClusterAliveNodes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "kvnode_cluster_alive_nodes",
			Help: "Size of the alive set at the last election cycle, self included",
		},
	)

	r.ClusterPeerState = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kvnode_cluster_peer_state",
			Help: "Peer state at the last probe cycle (1 for current state, 0 otherwise)",
		},
		[]string{"peer", "state"}, // unknown, alive, suspected
	)

	r.ClusterLeaderID = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "kvnode_cluster_leader_id",
			Help: "Believed leader id (-1 when no leader is known)",
		},
	)
	r.ClusterLeaderID.Set(-1)

	r.ClusterIsLeader = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "kvnode_cluster_is_leader",
			Help: "Whether this node believes itself leader (1=yes, 0=no)",
		},
	)

	r.ClusterLeaderChangesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "kvnode_cluster_leader_changes_total",
			Help: "Total number of leader belief changes",
		},
	)
}
