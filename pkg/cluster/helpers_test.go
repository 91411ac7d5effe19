package cluster

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var errUnreachable = errors.New("unreachable")

// manualClock only moves when told to.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: epoch}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeNetwork routes probes between in-process nodes by address and
// supports blocking individual links.
type fakeNetwork struct {
	mu      sync.Mutex
	byAddr  map[string]int
	blocked map[[2]int]bool
	hang    map[int]bool
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{
		byAddr:  make(map[string]int),
		blocked: make(map[[2]int]bool),
		hang:    make(map[int]bool),
	}
}

func addrOf(id int) string {
	return fmt.Sprintf("node-%d:7000", id)
}

func (n *fakeNetwork) register(id int) {
	n.mu.Lock()
	n.byAddr[addrOf(id)] = id
	n.mu.Unlock()
}

// isolate blocks every link between id and others in both directions.
func (n *fakeNetwork) isolate(id int, others ...int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, o := range others {
		n.blocked[[2]int{id, o}] = true
		n.blocked[[2]int{o, id}] = true
	}
}

func (n *fakeNetwork) heal() {
	n.mu.Lock()
	n.blocked = make(map[[2]int]bool)
	n.hang = make(map[int]bool)
	n.mu.Unlock()
}

// setHanging makes calls to id block until the caller's deadline.
func (n *fakeNetwork) setHanging(id int) {
	n.mu.Lock()
	n.hang[id] = true
	n.mu.Unlock()
}

func (n *fakeNetwork) prober(from int) Prober {
	return proberFunc(func(ctx context.Context, addr string) error {
		n.mu.Lock()
		to, ok := n.byAddr[addr]
		blocked := n.blocked[[2]int{from, to}]
		hanging := n.hang[to]
		n.mu.Unlock()

		if !ok || blocked {
			return errUnreachable
		}
		if hanging {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	})
}

type proberFunc func(ctx context.Context, addr string) error

func (f proberFunc) Probe(ctx context.Context, addr string) error {
	return f(ctx, addr)
}

// testNode bundles the cluster components of one in-process node.
type testNode struct {
	id         int
	view       *View
	leadership *Leadership
	detector   *FailureDetector
	elector    *LeaderElector
}

func testTiming(cfg *ClusterConfig) {
	cfg.ProbeInterval = time.Second
	cfg.ElectionInterval = 2 * time.Second
	cfg.AliveTimeout = 5 * time.Second
	cfg.CallTimeout = 50 * time.Millisecond
}

func newTestCluster(net *fakeNetwork, clock *manualClock, ids ...int) map[int]*testNode {
	nodes := make(map[int]*testNode, len(ids))
	for _, id := range ids {
		net.register(id)
	}
	for _, id := range ids {
		cfg := DefaultClusterConfig()
		cfg.NodeID = id
		cfg.NodeAddr = addrOf(id)
		testTiming(&cfg)
		for _, other := range ids {
			if other != id {
				cfg.Peers = append(cfg.Peers, Peer{ID: other, Addr: addrOf(other)})
			}
		}

		deps := Deps{Clock: clock.Now}
		view := NewView(id, cfg.Peers, cfg.AliveTimeout)
		leadership := NewLeadership()
		nodes[id] = &testNode{
			id:         id,
			view:       view,
			leadership: leadership,
			detector:   NewFailureDetector(cfg, view, net.prober(id), deps),
			elector:    NewLeaderElector(cfg, view, leadership, deps),
		}
	}
	return nodes
}

// cycle runs one probe cycle on every node, then one election cycle.
func cycle(ctx context.Context, nodes map[int]*testNode) {
	for _, n := range nodes {
		n.detector.ProbeOnce(ctx)
	}
	for _, n := range nodes {
		n.elector.Recompute()
	}
}
