package replication

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dd0wney/cluso-kv/pkg/cluster"
	"github.com/dd0wney/cluso-kv/pkg/kv"
	"github.com/dd0wney/cluso-kv/pkg/metrics"
	"github.com/dd0wney/cluso-kv/pkg/wal"
)

var errPeerDown = errors.New("peer down")

func internalAddr(id int) string { return fmt.Sprintf("node-%d:7000", id) }
func publicAddr(id int) string   { return fmt.Sprintf("localhost:700%d", id) }

// fakePeers delivers replication calls straight to in-process coordinators.
type fakePeers struct {
	mu      sync.Mutex
	targets map[string]*Coordinator
	down    map[string]bool
	hang    bool
	calls   int
}

func newFakePeers() *fakePeers {
	return &fakePeers{
		targets: make(map[string]*Coordinator),
		down:    make(map[string]bool),
	}
}

func (f *fakePeers) setDown(id int) {
	f.mu.Lock()
	f.down[internalAddr(id)] = true
	f.mu.Unlock()
}

func (f *fakePeers) Probe(ctx context.Context, addr string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down[addr] {
		return errPeerDown
	}
	return nil
}

func (f *fakePeers) Replicate(ctx context.Context, addr, key, value string) error {
	f.mu.Lock()
	f.calls++
	target := f.targets[addr]
	down := f.down[addr]
	hang := f.hang
	f.mu.Unlock()

	if hang {
		<-ctx.Done()
		return ctx.Err()
	}
	if down || target == nil {
		return errPeerDown
	}
	target.Apply(key, value)
	return nil
}

func (f *fakePeers) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// failingLog fails every append after the first ok appends.
type failingLog struct {
	mu      sync.Mutex
	ok      int
	records []wal.Record
}

func (l *failingLog) Append(key, value string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.records) >= l.ok {
		return fmt.Errorf("%w: disk full", wal.ErrLogFailed)
	}
	l.records = append(l.records, wal.Record{Key: key, Value: value})
	return nil
}

type testNode struct {
	id          int
	dataDir     string
	log         *wal.Log
	store       *kv.MemoryStore
	leadership  *cluster.Leadership
	coordinator *Coordinator
	metrics     *metrics.Registry
}

func testDirectory(self int, ids []int) *cluster.Directory {
	cfg := cluster.DefaultClusterConfig()
	cfg.NodeID = self
	cfg.NodeAddr = internalAddr(self)
	cfg.PublicAddr = publicAddr(self)
	for _, id := range ids {
		if id != self {
			cfg.Peers = append(cfg.Peers, cluster.Peer{ID: id, Addr: internalAddr(id), PublicAddr: publicAddr(id)})
		}
	}
	return cluster.NewDirectory(cfg)
}

func newTestNode(t *testing.T, id int, ids []int, peers *fakePeers) *testNode {
	t.Helper()

	dir := t.TempDir()
	log, err := wal.Open(dir, id, wal.Options{})
	if err != nil {
		t.Fatalf("wal.Open failed: %v", err)
	}
	t.Cleanup(func() { log.Close() })

	reg := metrics.NewRegistry()
	n := &testNode{
		id:         id,
		dataDir:    dir,
		log:        log,
		store:      kv.NewMemoryStore(),
		leadership: cluster.NewLeadership(),
		metrics:    reg,
	}
	n.coordinator = NewCoordinator(CoordinatorDeps{
		Log:        log,
		Store:      n.store,
		Leadership: n.leadership,
		Directory:  testDirectory(id, ids),
		Client:     peers,
		FanOut:     NewFanOut(100*time.Millisecond, reg),
		Metrics:    reg,
	})

	peers.mu.Lock()
	peers.targets[internalAddr(id)] = n.coordinator
	peers.mu.Unlock()
	return n
}

func newTestCluster(t *testing.T, peers *fakePeers, ids ...int) map[int]*testNode {
	nodes := make(map[int]*testNode, len(ids))
	for _, id := range ids {
		nodes[id] = newTestNode(t, id, ids, peers)
	}
	return nodes
}

func replayLog(t *testing.T, l wal.Replayer) map[string]string {
	t.Helper()
	state := make(map[string]string)
	if _, err := l.Replay(func(r wal.Record) error {
		state[r.Key] = r.Value
		return nil
	}); err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	return state
}
