// Package node assembles one key-value node: durable log, in-memory store,
// cluster view, failure detector, leader elector, replication coordinator,
// peer transport and HTTP surface.
//
// Lifecycle:
//
//	n, err := node.New(cfg, node.Options{Logger: logger})
//	// the log has been replayed into the store here
//	err = n.Run(ctx) // serves until ctx is cancelled or the log fails
package node

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/dd0wney/cluso-kv/pkg/api"
	"github.com/dd0wney/cluso-kv/pkg/cluster"
	"github.com/dd0wney/cluso-kv/pkg/config"
	"github.com/dd0wney/cluso-kv/pkg/health"
	"github.com/dd0wney/cluso-kv/pkg/kv"
	"github.com/dd0wney/cluso-kv/pkg/logging"
	"github.com/dd0wney/cluso-kv/pkg/metrics"
	"github.com/dd0wney/cluso-kv/pkg/replication"
	"github.com/dd0wney/cluso-kv/pkg/server"
	"github.com/dd0wney/cluso-kv/pkg/wal"
)

// Options carries collaborators that callers may substitute.
type Options struct {
	Logger  logging.Logger
	Metrics *metrics.Registry // a fresh registry when nil
	Clock   cluster.Clock     // time.Now when nil

	// PeerClient replaces the transport chosen by the configuration.
	PeerClient replication.PeerClient

	// Listener, when set, is used for the HTTP API instead of binding
	// ListenAddr.
	Listener net.Listener
}

// Node is one member of the cluster.
type Node struct {
	cfg     config.Config
	cluster cluster.ClusterConfig
	logger  logging.Logger
	metrics *metrics.Registry
	clock   cluster.Clock

	log         *wal.Log
	store       *kv.MemoryStore
	directory   *cluster.Directory
	view        *cluster.View
	leadership  *cluster.Leadership
	detector    *cluster.FailureDetector
	elector     *cluster.LeaderElector
	client      replication.PeerClient
	coordinator *replication.Coordinator

	health *health.HealthChecker
	api    *api.Server
	http   *server.GracefulServer
	nng    *replication.NNGServer

	replayStats wal.ReplayStats
	replayed    atomic.Bool
	fatal       chan error
	startedAt   time.Time
	running     atomic.Bool
}

// New validates cfg, opens and replays the node's durable log, and wires
// every component. Nothing is served until Run.
func New(cfg config.Config, opts Options) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	n := &Node{
		cfg:       cfg,
		cluster:   cfg.ClusterConfig(),
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		clock:     opts.Clock,
		fatal:     make(chan error, 1),
		startedAt: time.Now(),
	}
	if n.logger == nil {
		n.logger = logging.NewNopLogger()
	}
	n.logger = n.logger.With(logging.NodeID(cfg.NodeID))
	if n.metrics == nil {
		n.metrics = metrics.NewRegistry()
	}
	if n.clock == nil {
		n.clock = time.Now
	}

	log, err := wal.Open(cfg.DataDir, cfg.NodeID, wal.Options{Logger: n.logger})
	if err != nil {
		return nil, err
	}
	n.log = log
	n.store = kv.NewMemoryStore()

	if err := n.replay(); err != nil {
		log.Close()
		return nil, err
	}

	n.directory = cluster.NewDirectory(n.cluster)
	n.view = cluster.NewView(cfg.NodeID, n.cluster.Peers, n.cluster.AliveTimeout)
	n.leadership = cluster.NewLeadership()

	n.client = opts.PeerClient
	if n.client == nil {
		n.client = n.newTransport()
	}

	deps := cluster.Deps{Logger: n.logger, Metrics: n.metrics, Clock: n.clock}
	n.detector = cluster.NewFailureDetector(n.cluster, n.view, n.client, deps)
	n.elector = cluster.NewLeaderElector(n.cluster, n.view, n.leadership, deps)
	n.elector.OnChange(n.onLeaderChange)

	n.coordinator = replication.NewCoordinator(replication.CoordinatorDeps{
		Log:        n.log,
		Store:      n.store,
		Leadership: n.leadership,
		Directory:  n.directory,
		Client:     n.client,
		FanOut:     replication.NewFanOut(n.cluster.CallTimeout, n.metrics),
		Logger:     n.logger,
		Metrics:    n.metrics,
		OnFatal:    n.onFatal,
	})

	n.health = n.newHealthChecker()
	n.api = api.NewServer(api.Config{
		Coordinator: n.coordinator,
		Status:      n.Status,
		Health:      n.health,
		Metrics:     n.metrics,
		Logger:      n.logger.With(logging.Component("api")),
	})
	n.http = server.NewGracefulServer(cfg.ListenAddr, n.api.Handler(), n.logger.With(logging.Component("http")))
	if opts.Listener != nil {
		n.http.UseListener(opts.Listener)
	}

	if cfg.Transport == string(replication.TransportNNG) {
		nng, err := replication.NewNNGServer(replication.NNGServerConfig{
			ListenAddr: cfg.NNGListenAddr,
			NodeID:     cfg.NodeID,
			Workers:    cfg.NNGWorkers,
		}, n.coordinator, n.logger)
		if err != nil {
			n.closeResources()
			return nil, fmt.Errorf("failed to create nng server: %w", err)
		}
		n.nng = nng
	}

	return n, nil
}

// replay loads the durable log into the store.
func (n *Node) replay() error {
	op := logging.StartTimer(n.logger, "replayed durable log", logging.Path(n.log.Path()))

	stats, err := n.log.Replay(func(rec wal.Record) error {
		n.store.Put(rec.Key, rec.Value)
		return nil
	})
	if err != nil {
		op.EndError(err)
		return fmt.Errorf("failed to replay durable log: %w", err)
	}

	n.replayStats = stats
	n.replayed.Store(true)
	n.metrics.LogReplayedRecords.Set(float64(stats.Applied))
	n.metrics.LogSkippedRecords.Set(float64(stats.Skipped))
	n.metrics.StoreKeysTotal.Set(float64(n.store.Len()))

	op.End(
		logging.Int("applied", stats.Applied),
		logging.Int("skipped", stats.Skipped),
		logging.Bool("truncated_tail", stats.TruncatedTail),
		logging.Count(n.store.Len()),
	)
	return nil
}

func (n *Node) newTransport() replication.PeerClient {
	if n.cfg.Transport == string(replication.TransportNNG) {
		return replication.NewNNGTransport(n.directory, n.logger)
	}
	return replication.NewHTTPTransport(nil)
}

func (n *Node) newHealthChecker() *health.HealthChecker {
	hc := health.NewHealthChecker()

	logCheck := health.DurableLogCheck(n.log.Err, n.log.Path())
	writeCheck := health.WritePathCheck(n.coordinator.Halted)
	replayCheck := health.ReplayCheck(n.replayed.Load)
	leaderCheck := health.LeadershipCheck(func() (int, int) {
		return n.leadership.Leader(), n.cfg.NodeID
	})
	peersCheck := health.PeersCheck(func() (int, int) {
		counts := n.view.CountByState(n.clock())
		return counts[cluster.PeerAlive], len(n.cluster.Peers)
	})

	hc.RegisterCheck("durable_log", logCheck)
	hc.RegisterCheck("write_path", writeCheck)
	hc.RegisterCheck("leadership", leaderCheck)
	hc.RegisterCheck("peers", peersCheck)

	hc.RegisterReadinessCheck("replay", replayCheck)
	hc.RegisterReadinessCheck("durable_log", logCheck)

	hc.RegisterLivenessCheck("process", health.AlwaysHealthy("process"))
	return hc
}

func (n *Node) onLeaderChange(change cluster.LeaderChange) {
	if change.Current == n.cfg.NodeID {
		n.logger.Info("this node is now leader", logging.Int("previous", change.Previous))
	}
}

// onFatal is the coordinator's durability hook. It must not block.
func (n *Node) onFatal(err error) {
	select {
	case n.fatal <- err:
	default:
	}
}

// closeResources releases the transport and the log.
func (n *Node) closeResources() error {
	var errs []error
	if c, ok := n.client.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close transport: %w", err))
		}
	}
	if err := n.log.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close durable log: %w", err))
	}
	return errors.Join(errs...)
}
