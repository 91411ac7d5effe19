package api

import (
	"context"

	"github.com/dd0wney/cluso-kv/pkg/cluster"
	"github.com/dd0wney/cluso-kv/pkg/replication"
)

// Coordinator is the node behaviour the HTTP surface drives.
// *replication.Coordinator satisfies it.
type Coordinator interface {
	Write(ctx context.Context, key, value string) (replication.WriteResult, error)
	Read(key string) (string, error)
	Apply(key, value string)
	NodeID() int
}

// Status is the operator view of one node returned by GET /status.
type Status struct {
	NodeID         int                  `json:"node_id"`
	LeaderID       int                  `json:"leader_id"`
	IsLeader       bool                 `json:"is_leader"`
	Alive          []int                `json:"alive"`
	Peers          []cluster.PeerStatus `json:"peers"`
	Keys           int                  `json:"keys"`
	WritesHalted   bool                 `json:"writes_halted"`
	HaltReason     string               `json:"halt_reason,omitempty"`
	FanOutInFlight int                  `json:"fanout_in_flight"`
	Transport      string               `json:"transport"`
	UptimeSeconds  float64              `json:"uptime_seconds"`
}

// StatusFunc builds the current Status.
type StatusFunc func() Status
