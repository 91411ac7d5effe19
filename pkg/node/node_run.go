package node

import (
	"context"
	"errors"

	"github.com/dd0wney/cluso-kv/pkg/logging"
	"golang.org/x/sync/errgroup"
)

// ErrAlreadyRunning is returned by a second concurrent Run.
var ErrAlreadyRunning = errors.New("node is already running")

// Listen binds the HTTP listener so that Addr reports the real address
// before Run. Run calls it when needed.
func (n *Node) Listen() error {
	return n.http.Listen()
}

// Run serves the node until ctx is cancelled or the durable log fails.
// Shutdown stops the servers and loops, drains in-flight fan-out calls and
// closes the log. A durability failure is returned as the error.
//
// A Node runs once; after Run returns its log is closed.
func (n *Node) Run(ctx context.Context) error {
	if !n.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	if err := n.Listen(); err != nil {
		n.closeResources()
		return err
	}

	n.logger.Info("node starting",
		logging.Addr(n.http.Addr()),
		logging.String("transport", n.cfg.Transport),
		logging.Count(len(n.cluster.Peers)),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return n.http.Run(gctx) })
	if n.nng != nil {
		g.Go(func() error { return n.nng.Run(gctx) })
	}
	g.Go(func() error { return n.detector.Run(gctx) })
	g.Go(func() error { return n.elector.Run(gctx) })
	g.Go(func() error {
		select {
		case err := <-n.fatal:
			n.logger.Error("durable log failed, stopping node", logging.Error(err))
			return err
		case <-gctx.Done():
			return nil
		}
	})

	err := g.Wait()

	n.coordinator.FanOut().Wait()
	if closeErr := n.closeResources(); closeErr != nil {
		n.logger.Warn("shutdown incomplete", logging.Error(closeErr))
	}
	n.logger.Info("node stopped")
	return err
}
