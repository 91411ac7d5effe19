package cluster

import (
	"context"
	"sync"
	"time"

	"github.com/dd0wney/cluso-kv/pkg/logging"
)

// Prober checks whether the node at addr answers.
type Prober interface {
	Probe(ctx context.Context, addr string) error
}

// FailureDetector probes every peer on a fixed interval and records
// successful contacts in the View. A failed probe changes nothing; the
// peer simply ages towards Suspected.
//
// Concurrent Safety:
// 1. Each peer is probed in its own goroutine with its own timeout
// 2. A cycle waits for all of its probes, so it is bounded by CallTimeout
// 3. The detector is the only writer of peer timestamps
type FailureDetector struct {
	config ClusterConfig
	view   *View
	prober Prober
	deps   Deps
}

// NewFailureDetector creates a detector over view.
func NewFailureDetector(config ClusterConfig, view *View, prober Prober, deps Deps) *FailureDetector {
	deps = deps.withDefaults()
	deps.Logger = deps.Logger.With(logging.Component("detector"))
	return &FailureDetector{
		config: config,
		view:   view,
		prober: prober,
		deps:   deps,
	}
}

// Run probes immediately and then every ProbeInterval until ctx is done.
func (d *FailureDetector) Run(ctx context.Context) error {
	d.deps.Logger.Info("failure detector started",
		logging.Duration("probe_interval", d.config.ProbeInterval),
		logging.Duration("alive_timeout", d.config.AliveTimeout),
		logging.Count(len(d.view.order)))

	d.ProbeOnce(ctx)

	ticker := time.NewTicker(d.config.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.deps.Logger.Info("failure detector stopped")
			return nil
		case <-ticker.C:
			d.ProbeOnce(ctx)
		}
	}
}

// ProbeOnce runs a single probe cycle and returns how many peers answered.
func (d *FailureDetector) ProbeOnce(ctx context.Context) int {
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)

	for _, id := range d.view.order {
		rec := d.view.peers[id]
		wg.Add(1)
		go func() {
			defer wg.Done()
			if d.probe(ctx, rec) {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if d.deps.Metrics != nil {
		now := d.deps.Clock()
		for _, id := range d.view.order {
			d.deps.Metrics.SetPeerState(id, d.view.peers[id].state(now, d.config.AliveTimeout).String())
		}
	}
	return successes
}

func (d *FailureDetector) probe(ctx context.Context, rec *PeerRecord) bool {
	callCtx, cancel := context.WithTimeout(ctx, d.config.CallTimeout)
	defer cancel()

	err := d.prober.Probe(callCtx, rec.Addr)
	if d.deps.Metrics != nil {
		d.deps.Metrics.RecordProbe(rec.ID, err == nil)
	}
	if err != nil {
		d.deps.Logger.Debug("probe failed",
			logging.PeerID(rec.ID), logging.Addr(rec.Addr), logging.Error(err))
		return false
	}

	// Peers come from the view itself, so the ID is always known.
	_ = d.view.RecordContact(rec.ID, d.deps.Clock())
	return true
}
