package cluster

import (
	"sort"
	"sync/atomic"
	"time"
)

// PeerState is derived from a peer's last contact on every evaluation.
type PeerState int

const (
	// PeerUnknown has never answered a probe
	PeerUnknown PeerState = iota
	// PeerAlive answered within the alive timeout
	PeerAlive
	// PeerSuspected has been silent for at least the alive timeout
	PeerSuspected
)

// String returns the string representation of a PeerState
func (s PeerState) String() string {
	switch s {
	case PeerUnknown:
		return "unknown"
	case PeerAlive:
		return "alive"
	case PeerSuspected:
		return "suspected"
	default:
		return "invalid"
	}
}

// PeerRecord holds the last successful contact with one peer as Unix
// nanoseconds. Zero means the peer has never been reached.
type PeerRecord struct {
	ID   int
	Addr string

	lastContact atomic.Int64
}

// LastContact returns the time of the last successful probe, if any.
func (r *PeerRecord) LastContact() (time.Time, bool) {
	ns := r.lastContact.Load()
	if ns == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, ns), true
}

func (r *PeerRecord) state(now time.Time, aliveTimeout time.Duration) PeerState {
	last, ok := r.LastContact()
	if !ok {
		return PeerUnknown
	}
	if now.Sub(last) < aliveTimeout {
		return PeerAlive
	}
	return PeerSuspected
}

// PeerStatus is a point-in-time copy of one peer's state.
type PeerStatus struct {
	ID          int       `json:"id"`
	Addr        string    `json:"addr"`
	State       PeerState `json:"-"`
	StateName   string    `json:"state"`
	LastContact time.Time `json:"last_contact,omitempty"`
}

// View is the node's picture of the cluster: one record per configured
// peer. The set of peers is fixed at construction, so the map itself is
// never written after NewView and readers need no lock.
//
// Concurrent Safety:
// 1. Each PeerRecord timestamp is an atomic, written only by the detector
// 2. Readers (elector, status handlers) load timestamps without locking
// 3. States are recomputed from timestamps, there are no sticky flags
type View struct {
	selfID       int
	aliveTimeout time.Duration
	peers        map[int]*PeerRecord
	order        []int
}

// NewView creates a view with every peer in the Unknown state.
func NewView(selfID int, peers []Peer, aliveTimeout time.Duration) *View {
	v := &View{
		selfID:       selfID,
		aliveTimeout: aliveTimeout,
		peers:        make(map[int]*PeerRecord, len(peers)),
		order:        make([]int, 0, len(peers)),
	}
	for _, p := range peers {
		v.peers[p.ID] = &PeerRecord{ID: p.ID, Addr: p.Addr}
		v.order = append(v.order, p.ID)
	}
	sort.Ints(v.order)
	return v
}
