package node

import (
	"context"
	"net"
	"net/http"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/dd0wney/cluso-kv/pkg/config"
)

// Short timings keep cluster tests fast.
var testTiming = config.Timing{
	ProbeInterval:    40 * time.Millisecond,
	ElectionInterval: 80 * time.Millisecond,
	AliveTimeout:     300 * time.Millisecond,
	CallTimeout:      40 * time.Millisecond,
}

// noRedirect is an HTTP client that reports redirects instead of following them.
var noRedirect = &http.Client{
	Timeout: 2 * time.Second,
	CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	},
}

type testCluster struct {
	t       *testing.T
	dataDir string
	addrs   map[int]string
	nodes   map[int]*Node
	cancels map[int]context.CancelFunc
	done    map[int]chan error
}

// newTestCluster reserves one loopback listener per id so that every node
// knows its peers' addresses before any node starts.
func newTestCluster(t *testing.T, ids ...int) *testCluster {
	t.Helper()
	c := &testCluster{
		t:       t,
		dataDir: t.TempDir(),
		addrs:   make(map[int]string),
		nodes:   make(map[int]*Node),
		cancels: make(map[int]context.CancelFunc),
		done:    make(map[int]chan error),
	}
	for _, id := range ids {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("listen: %v", err)
		}
		c.addrs[id] = ln.Addr().String()
		ln.Close()
	}
	t.Cleanup(c.stopAll)
	return c
}

func (c *testCluster) config(id int) config.Config {
	cfg := config.Default()
	cfg.NodeID = id
	cfg.ListenAddr = c.addrs[id]
	cfg.DataDir = filepath.Join(c.dataDir, "node")
	cfg.Timing = testTiming

	ids := make([]int, 0, len(c.addrs))
	for other := range c.addrs {
		ids = append(ids, other)
	}
	sort.Ints(ids)
	for _, other := range ids {
		if other != id {
			cfg.Peers = append(cfg.Peers, config.PeerConfig{ID: other, Addr: c.addrs[other]})
		}
	}
	return cfg
}

// start builds node id on its reserved address and runs it.
func (c *testCluster) start(id int) *Node {
	c.t.Helper()

	ln, err := listenRetry(c.addrs[id])
	if err != nil {
		c.t.Fatalf("node %d listen: %v", id, err)
	}

	n, err := New(c.config(id), Options{Listener: ln})
	if err != nil {
		ln.Close()
		c.t.Fatalf("New(node %d) error = %v", id, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()

	c.nodes[id] = n
	c.cancels[id] = cancel
	c.done[id] = done
	return n
}

// stop cancels node id and returns what Run returned.
func (c *testCluster) stop(id int) error {
	c.t.Helper()
	cancel, ok := c.cancels[id]
	if !ok {
		return nil
	}
	cancel()
	delete(c.cancels, id)

	select {
	case err := <-c.done[id]:
		return err
	case <-time.After(5 * time.Second):
		c.t.Fatalf("node %d did not stop", id)
		return nil
	}
}

func (c *testCluster) stopAll() {
	for id := range c.cancels {
		c.stop(id)
	}
}

func (c *testCluster) url(id int, path string) string {
	return "http://" + c.addrs[id] + path
}

// listenRetry rebinds a just-released port; the kernel may need a moment.
func listenRetry(addr string) (net.Listener, error) {
	var err error
	for i := 0; i < 50; i++ {
		var ln net.Listener
		if ln, err = net.Listen("tcp", addr); err == nil {
			return ln, nil
		}
		time.Sleep(20 * time.Millisecond)
	}
	return nil, err
}
