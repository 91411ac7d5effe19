package cluster

import (
	"context"
	"time"

	"github.com/dd0wney/cluso-kv/pkg/logging"
)

// NewLeaderElector creates an elector that writes its belief to leadership.
func NewLeaderElector(config ClusterConfig, view *View, leadership *Leadership, deps Deps) *LeaderElector {
	deps = deps.withDefaults()
	deps.Logger = deps.Logger.With(logging.Component("elector"))
	return &LeaderElector{
		config:     config,
		view:       view,
		leadership: leadership,
		deps:       deps,
	}
}

// MaxID returns the largest ID in ids, or NoLeader when ids is empty.
func MaxID(ids []int) int {
	leader := NoLeader
	for _, id := range ids {
		if id > leader {
			leader = id
		}
	}
	return leader
}

// OnChange registers fn to be called on every leader change.
func (e *LeaderElector) OnChange(fn ChangeListener) {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// Leadership returns the slot the elector writes to.
func (e *LeaderElector) Leadership() *Leadership {
	return e.leadership
}

// Run recomputes the leader every ElectionInterval until ctx is done. The
// first recompute happens one interval after start, which gives the
// detector at least one probe cycle before any belief is formed.
func (e *LeaderElector) Run(ctx context.Context) error {
	e.deps.Logger.Info("leader elector started",
		logging.Duration("election_interval", e.config.ElectionInterval))

	ticker := time.NewTicker(e.config.ElectionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.deps.Logger.Info("leader elector stopped")
			return nil
		case <-ticker.C:
			e.Recompute()
		}
	}
}

// Recompute runs one election cycle and returns the resulting leader.
func (e *LeaderElector) Recompute() int {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	now := e.deps.Clock()
	alive := e.view.AliveSet(now)
	leader := MaxID(alive)

	if e.deps.Metrics != nil {
		e.deps.Metrics.ClusterAliveNodes.Set(float64(len(alive)))
	}

	if leader == e.leadership.Leader() {
		return leader
	}

	previous := e.leadership.Set(leader)
	change := LeaderChange{Previous: previous, Current: leader, At: now}

	e.deps.Logger.Info("leader changed",
		logging.LeaderID(leader),
		logging.Int("previous_leader_id", previous),
		logging.Any("alive", alive),
		logging.Bool("is_self", leader == e.view.SelfID()))

	if e.deps.Metrics != nil {
		e.deps.Metrics.SetLeader(leader, e.view.SelfID())
		e.deps.Metrics.ClusterLeaderChangesTotal.Inc()
	}

	e.listenersMu.Lock()
	listeners := make([]ChangeListener, len(e.listeners))
	copy(listeners, e.listeners)
	e.listenersMu.Unlock()

	for _, fn := range listeners {
		fn(change)
	}
	return leader
}
