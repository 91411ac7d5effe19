package node

import (
	"net/http"
	"time"

	"github.com/dd0wney/cluso-kv/pkg/api"
	"github.com/dd0wney/cluso-kv/pkg/cluster"
	"github.com/dd0wney/cluso-kv/pkg/config"
	"github.com/dd0wney/cluso-kv/pkg/health"
	"github.com/dd0wney/cluso-kv/pkg/kv"
	"github.com/dd0wney/cluso-kv/pkg/metrics"
	"github.com/dd0wney/cluso-kv/pkg/replication"
	"github.com/dd0wney/cluso-kv/pkg/wal"
)

// Status returns the operator view served at GET /status.
func (n *Node) Status() api.Status {
	now := n.clock()
	halted, cause := n.coordinator.Halted()

	st := api.Status{
		NodeID:         n.cfg.NodeID,
		LeaderID:       n.leadership.Leader(),
		IsLeader:       n.coordinator.IsLeader(),
		Alive:          n.view.AliveSet(now),
		Peers:          n.view.Snapshot(now),
		Keys:           n.store.Len(),
		WritesHalted:   halted,
		FanOutInFlight: n.coordinator.FanOut().InFlight(),
		Transport:      n.cfg.Transport,
		UptimeSeconds:  time.Since(n.startedAt).Seconds(),
	}
	if cause != nil {
		st.HaltReason = cause.Error()
	}
	return st
}

// ID returns the node id.
func (n *Node) ID() int { return n.cfg.NodeID }

// Config returns the configuration the node was built from.
func (n *Node) Config() config.Config { return n.cfg }

// Addr returns the HTTP address, bound once Listen or Run has been called.
func (n *Node) Addr() string { return n.http.Addr() }

// Handler returns the node's full HTTP handler.
func (n *Node) Handler() http.Handler { return n.api.Handler() }

// Coordinator returns the write coordinator.
func (n *Node) Coordinator() *replication.Coordinator { return n.coordinator }

// Store returns the in-memory store.
func (n *Node) Store() kv.Store { return n.store }

// Leadership returns the node's leader belief.
func (n *Node) Leadership() *cluster.Leadership { return n.leadership }

// Detector returns the failure detector.
func (n *Node) Detector() *cluster.FailureDetector { return n.detector }

// Elector returns the leader elector.
func (n *Node) Elector() *cluster.LeaderElector { return n.elector }

// Health returns the node's health checker.
func (n *Node) Health() *health.HealthChecker { return n.health }

// Metrics returns the node's metrics registry.
func (n *Node) Metrics() *metrics.Registry { return n.metrics }

// ReplayStats reports what startup replay found in the durable log.
func (n *Node) ReplayStats() wal.ReplayStats { return n.replayStats }
