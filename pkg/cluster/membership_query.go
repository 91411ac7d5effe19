package cluster

import (
	"time"
)

// SelfID returns the local node ID.
func (v *View) SelfID() int {
	return v.selfID
}

// AliveTimeout returns the configured silence threshold.
func (v *View) AliveTimeout() time.Duration {
	return v.aliveTimeout
}

// PeerIDs returns the configured peer IDs in ascending order.
func (v *View) PeerIDs() []int {
	ids := make([]int, len(v.order))
	copy(ids, v.order)
	return ids
}

// StateOf returns the state of peerID as of now.
func (v *View) StateOf(peerID int, now time.Time) (PeerState, error) {
	rec, ok := v.peers[peerID]
	if !ok {
		return PeerUnknown, ErrUnknownPeer
	}
	return rec.state(now, v.aliveTimeout), nil
}

// AliveSet returns self plus every peer contacted less than the alive
// timeout before now, in ascending order.
func (v *View) AliveSet(now time.Time) []int {
	alive := make([]int, 0, len(v.order)+1)
	selfAdded := false
	for _, id := range v.order {
		if !selfAdded && v.selfID < id {
			alive = append(alive, v.selfID)
			selfAdded = true
		}
		if v.peers[id].state(now, v.aliveTimeout) == PeerAlive {
			alive = append(alive, id)
		}
	}
	if !selfAdded {
		alive = append(alive, v.selfID)
	}
	return alive
}

// Snapshot returns the status of every peer as of now, ordered by ID.
func (v *View) Snapshot(now time.Time) []PeerStatus {
	statuses := make([]PeerStatus, 0, len(v.order))
	for _, id := range v.order {
		rec := v.peers[id]
		state := rec.state(now, v.aliveTimeout)
		status := PeerStatus{
			ID:        id,
			Addr:      rec.Addr,
			State:     state,
			StateName: state.String(),
		}
		if last, ok := rec.LastContact(); ok {
			status.LastContact = last
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// CountByState tallies peers per state as of now.
func (v *View) CountByState(now time.Time) map[PeerState]int {
	counts := make(map[PeerState]int, 3)
	for _, id := range v.order {
		counts[v.peers[id].state(now, v.aliveTimeout)]++
	}
	return counts
}
