package cluster

import (
	"fmt"
	"time"
)

// Peer is one statically configured cluster member.
type Peer struct {
	ID         int
	Addr       string // internal address used for probes and replication (host:port)
	PublicAddr string // client-facing address used in redirects; defaults to Addr
	NNGAddr    string // mangos dial address when the nng transport is selected
}

// ClientAddr returns the address clients should be redirected to.
func (p Peer) ClientAddr() string {
	if p.PublicAddr != "" {
		return p.PublicAddr
	}
	return p.Addr
}

// ClusterConfig is the immutable identity and timing of one node
type ClusterConfig struct {
	// Node identification
	NodeID     int
	NodeAddr   string // Address peers reach this node at (host:port)
	PublicAddr string // Address clients reach this node at; defaults to NodeAddr
	NNGAddr    string // Listen address of the nng transport, if enabled

	Peers []Peer

	// Timing
	ProbeInterval    time.Duration // Interval between probe cycles (default: 1s)
	ElectionInterval time.Duration // Interval between leader recomputes (default: 2s)
	AliveTimeout     time.Duration // Silence after which a peer is suspected (default: 5s)
	// CallTimeout bounds every peer call (default: 1s). It may exceed
	// ProbeInterval; a probe cycle then runs past its tick and the next
	// cycle starts as soon as it finishes. It must stay below AliveTimeout.
	CallTimeout time.Duration
}

// DefaultClusterConfig returns the default timing with no identity set
func DefaultClusterConfig() ClusterConfig {
	return ClusterConfig{
		ProbeInterval:    1 * time.Second,
		ElectionInterval: 2 * time.Second,
		AliveTimeout:     5 * time.Second,
		CallTimeout:      1 * time.Second,
	}
}

// Self returns this node as a Peer.
func (c *ClusterConfig) Self() Peer {
	return Peer{ID: c.NodeID, Addr: c.NodeAddr, PublicAddr: c.PublicAddr, NNGAddr: c.NNGAddr}
}

// Validate checks if configuration is valid
func (c *ClusterConfig) Validate() error {
	if c.NodeID <= 0 {
		return ErrInvalidNodeID
	}
	if c.NodeAddr == "" {
		return ErrInvalidNodeAddr
	}

	seen := make(map[int]bool, len(c.Peers))
	for _, p := range c.Peers {
		if p.ID <= 0 || p.Addr == "" {
			return fmt.Errorf("%w: %+v", ErrInvalidPeer, p)
		}
		if p.ID == c.NodeID {
			return ErrSelfInPeers
		}
		if seen[p.ID] {
			return fmt.Errorf("%w: %d", ErrDuplicatePeer, p.ID)
		}
		seen[p.ID] = true
	}

	if c.ProbeInterval <= 0 || c.ElectionInterval <= 0 {
		return ErrInvalidInterval
	}
	if c.AliveTimeout <= c.ProbeInterval {
		return ErrAliveTimeoutTooSmall
	}
	if c.CallTimeout <= 0 || c.CallTimeout >= c.AliveTimeout {
		return ErrCallTimeoutTooLarge
	}
	return nil
}
