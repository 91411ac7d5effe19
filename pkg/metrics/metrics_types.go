package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for one node.
//
// Every node owns its own Registry so that several nodes can run inside one
// process (tests) without sharing counters.
type Registry struct {
	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Durable log metrics
	LogAppendsTotal    *prometheus.CounterVec
	LogAppendDuration  prometheus.Histogram
	LogReplayedRecords prometheus.Gauge
	LogSkippedRecords  prometheus.Gauge
	LogFailed          prometheus.Gauge
	StoreKeysTotal     prometheus.Gauge
	StorePutsTotal     *prometheus.CounterVec

	// Cluster Metrics
	ClusterProbesTotal        *prometheus.CounterVec
	ClusterAliveNodes         prometheus.Gauge
	ClusterPeerState          *prometheus.GaugeVec
	ClusterLeaderID           prometheus.Gauge
	ClusterIsLeader           prometheus.Gauge
	ClusterLeaderChangesTotal prometheus.Counter

	// Replication Metrics
	ReplicationWritesTotal   *prometheus.CounterVec
	ReplicationFanOutTotal   *prometheus.CounterVec
	ReplicationFanOutPending prometheus.Gauge
	ReplicationAppliedTotal  prometheus.Counter

	registry *prometheus.Registry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	r.initHTTPMetrics()
	r.initStorageMetrics()
	r.initClusterMetrics()
	r.initReplicationMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
