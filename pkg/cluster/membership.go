// Package cluster provides membership tracking and leader determination.
//
// This package handles:
//   - Static cluster configuration and address lookup
//   - Per-peer last-contact tracking (the cluster view)
//   - Periodic liveness probing (the failure detector)
//   - Highest-ID-alive leader determination (the elector)
package cluster

import (
	"time"

	"github.com/dd0wney/cluso-kv/pkg/logging"
	"github.com/dd0wney/cluso-kv/pkg/metrics"
)

// Clock returns the current time. Tests inject a manual clock.
type Clock func() time.Time

// Deps carries the ambient collaborators shared by the detector and the
// elector. Zero values are replaced by no-op defaults.
type Deps struct {
	Logger  logging.Logger
	Metrics *metrics.Registry
	Clock   Clock
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = logging.NewNopLogger()
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	return d
}
