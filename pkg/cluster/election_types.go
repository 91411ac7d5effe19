package cluster

import (
	"sync"
	"sync/atomic"
	"time"
)

// NoLeader is the leader belief before the first election cycle.
const NoLeader = -1

// Leadership is the node's current leader belief. It has one writer (the
// elector) and many readers (the write path and request handlers).
type Leadership struct {
	leader atomic.Int64
}

// NewLeadership returns a slot holding NoLeader.
func NewLeadership() *Leadership {
	l := &Leadership{}
	l.leader.Store(NoLeader)
	return l
}

// Leader returns the believed leader ID or NoLeader.
func (l *Leadership) Leader() int {
	return int(l.leader.Load())
}

// Known reports whether any leader is believed.
func (l *Leadership) Known() bool {
	return l.Leader() != NoLeader
}

// Is reports whether id is the believed leader.
func (l *Leadership) Is(id int) bool {
	return l.Leader() == id
}

// Set stores id and returns the previous belief. The elector is the only
// writer in a running node.
func (l *Leadership) Set(id int) int {
	return int(l.leader.Swap(int64(id)))
}

// LeaderChange describes one transition of the leader belief
type LeaderChange struct {
	Previous int
	Current  int
	At       time.Time
}

// ChangeListener is called synchronously on every leader change, in
// registration order. It must not call Recompute.
type ChangeListener func(LeaderChange)

// LeaderElector recomputes the leader as the highest alive ID on a fixed
// interval and publishes changes to the Leadership slot.
//
// Concurrent Safety:
// 1. Recompute is serialised by runMu so listeners see changes in order
// 2. Listener registration uses its own mutex
// 3. The elector never blocks on the network
type LeaderElector struct {
	config     ClusterConfig
	view       *View
	leadership *Leadership
	deps       Deps

	runMu       sync.Mutex
	listenersMu sync.Mutex
	listeners   []ChangeListener
}
