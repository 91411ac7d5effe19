package replication

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dd0wney/cluso-kv/pkg/cluster"
	"github.com/dd0wney/cluso-kv/pkg/kv"
	"github.com/dd0wney/cluso-kv/pkg/logging"
	"github.com/dd0wney/cluso-kv/pkg/metrics"
	"github.com/dd0wney/cluso-kv/pkg/wal"
)

// Outcome classifies the result of a client write.
type Outcome int

const (
	// OutcomeApplied means the write is durable locally and fan-out started
	OutcomeApplied Outcome = iota
	// OutcomeRedirect means another node is believed to be leader
	OutcomeRedirect
	// OutcomeUnavailable means no write could be admitted
	OutcomeUnavailable
)

// String returns the string representation of an Outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeRedirect:
		return "redirect"
	case OutcomeUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// WriteResult is returned by Coordinator.Write.
type WriteResult struct {
	Outcome    Outcome
	LeaderID   int
	RedirectTo string // client address of the leader when Outcome is OutcomeRedirect
}

// CoordinatorDeps wires a Coordinator to the node's shared state.
type CoordinatorDeps struct {
	Log        wal.Appender
	Store      kv.Store
	Leadership *cluster.Leadership
	Directory  *cluster.Directory
	Client     PeerClient
	FanOut     *FanOut
	Logger     logging.Logger
	Metrics    *metrics.Registry

	// OnFatal is called once, synchronously, when the durable log fails.
	// It must not block.
	OnFatal func(error)
}

// Coordinator admits client writes on the leader, redirects them on
// followers, and applies replicated writes from the leader.
//
// Concurrent Safety:
//  1. Log append and store put happen together under writeMu, so log
//     order equals store order on the leader
//  2. The leader belief is read from an atomic slot and never locked
//  3. Fan-out runs outside writeMu and is never waited on
type Coordinator struct {
	nodeID     int
	log        wal.Appender
	store      kv.Store
	leadership *cluster.Leadership
	directory  *cluster.Directory
	client     PeerClient
	fanout     *FanOut
	logger     logging.Logger
	metrics    *metrics.Registry
	onFatal    func(error)

	writeMu sync.Mutex
	halted  atomic.Bool
	haltErr atomic.Value // error
}

// NewCoordinator creates a coordinator for the node identified by deps.Directory.
func NewCoordinator(deps CoordinatorDeps) *Coordinator {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	fanout := deps.FanOut
	if fanout == nil {
		fanout = NewFanOut(time.Second, deps.Metrics)
	}
	return &Coordinator{
		nodeID:     deps.Directory.SelfID(),
		log:        deps.Log,
		store:      deps.Store,
		leadership: deps.Leadership,
		directory:  deps.Directory,
		client:     deps.Client,
		fanout:     fanout,
		logger:     logger.With(logging.Component("coordinator")),
		metrics:    deps.Metrics,
		onFatal:    deps.OnFatal,
	}
}

// Write admits key=value if this node believes itself leader.
func (c *Coordinator) Write(ctx context.Context, key, value string) (WriteResult, error) {
	if c.halted.Load() {
		c.recordWrite("halted")
		return WriteResult{Outcome: OutcomeUnavailable, LeaderID: c.leadership.Leader()}, ErrWritesHalted
	}

	leader := c.leadership.Leader()
	if leader == cluster.NoLeader {
		c.recordWrite("no_leader")
		return WriteResult{Outcome: OutcomeUnavailable, LeaderID: leader}, ErrNoLeader
	}

	if leader != c.nodeID {
		addr, ok := c.directory.ClientAddr(leader)
		if !ok {
			c.recordWrite("no_leader")
			return WriteResult{Outcome: OutcomeUnavailable, LeaderID: leader},
				fmt.Errorf("%w: leader %d has no known address", ErrNoLeader, leader)
		}
		c.recordWrite("redirect")
		return WriteResult{Outcome: OutcomeRedirect, LeaderID: leader, RedirectTo: addr}, nil
	}

	if err := c.admit(key, value); err != nil {
		return WriteResult{Outcome: OutcomeUnavailable, LeaderID: leader}, err
	}
	c.recordWrite("applied")

	c.replicate(ctx, key, value)
	return WriteResult{Outcome: OutcomeApplied, LeaderID: leader}, nil
}

// admit appends to the log and then updates the store, as one unit.
func (c *Coordinator) admit(key, value string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	// Another writer may have halted the path while we waited.
	if c.halted.Load() {
		c.recordWrite("halted")
		return ErrWritesHalted
	}

	start := time.Now()
	err := c.log.Append(key, value)
	if c.metrics != nil {
		c.metrics.RecordLogAppend(err, time.Since(start))
	}
	if err != nil {
		c.recordWrite("durability_error")
		c.halt(err)
		return fmt.Errorf("%w: %w", ErrDurability, err)
	}

	c.store.Put(key, value)
	if c.metrics != nil {
		c.metrics.StorePutsTotal.WithLabelValues("client").Inc()
		c.metrics.StoreKeysTotal.Set(float64(c.store.Len()))
	}
	return nil
}

func (c *Coordinator) halt(err error) {
	if !c.halted.CompareAndSwap(false, true) {
		return
	}
	c.haltErr.Store(err)
	c.logger.Error("durable log failed, halting writes", logging.Error(err))
	if c.onFatal != nil {
		c.onFatal(fmt.Errorf("%w: %w", ErrDurability, err))
	}
}

// replicate starts one unacknowledged call per peer.
func (c *Coordinator) replicate(ctx context.Context, key, value string) {
	for _, peer := range c.directory.Peers() {
		c.fanout.Go(ctx, func(callCtx context.Context) {
			err := c.client.Replicate(callCtx, peer.Addr, key, value)
			if c.metrics != nil {
				c.metrics.RecordFanOut(peer.ID, err == nil)
			}
			if err != nil {
				c.logger.Warn("replication to peer failed",
					logging.PeerID(peer.ID), logging.Addr(peer.Addr), logging.Key(key), logging.Error(err))
			}
		})
	}
}

// Read returns the local value of key on any node.
func (c *Coordinator) Read(key string) (string, error) {
	return c.store.Get(key)
}

// Apply stores a write pushed by the leader. It is not written to the
// local log, so a follower forgets replicated writes across a restart.
func (c *Coordinator) Apply(key, value string) {
	c.store.Put(key, value)
	if c.metrics != nil {
		c.metrics.ReplicationAppliedTotal.Inc()
		c.metrics.StorePutsTotal.WithLabelValues("replication").Inc()
		c.metrics.StoreKeysTotal.Set(float64(c.store.Len()))
	}
	c.logger.Debug("applied replicated write", logging.Key(key))
}

// NodeID returns the local node ID.
func (c *Coordinator) NodeID() int {
	return c.nodeID
}

// Leader returns the current leader belief.
func (c *Coordinator) Leader() int {
	return c.leadership.Leader()
}

// IsLeader reports whether this node believes itself leader.
func (c *Coordinator) IsLeader() bool {
	return c.leadership.Is(c.nodeID)
}

// Halted reports whether the write path has been halted, and why.
func (c *Coordinator) Halted() (bool, error) {
	if !c.halted.Load() {
		return false, nil
	}
	err, _ := c.haltErr.Load().(error)
	return true, err
}

// FanOut returns the task group used for replication calls.
func (c *Coordinator) FanOut() *FanOut {
	return c.fanout
}

func (c *Coordinator) recordWrite(outcome string) {
	if c.metrics != nil {
		c.metrics.ReplicationWritesTotal.WithLabelValues(outcome).Inc()
	}
}
