package replication

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dd0wney/cluso-kv/pkg/metrics"
)

// FanOut runs detached, individually bounded calls that nobody waits for
// on the request path. Wait exists for draining at shutdown and in tests.
type FanOut struct {
	timeout  time.Duration
	metrics  *metrics.Registry
	wg       sync.WaitGroup
	inFlight atomic.Int64
}

// NewFanOut creates a task group whose calls each get timeout.
func NewFanOut(timeout time.Duration, reg *metrics.Registry) *FanOut {
	return &FanOut{timeout: timeout, metrics: reg}
}

// Go launches fn in its own goroutine. The context passed to fn keeps the
// values of parent but not its cancellation, and expires after the
// configured timeout.
func (f *FanOut) Go(parent context.Context, fn func(ctx context.Context)) {
	f.wg.Add(1)
	f.inFlight.Add(1)
	if f.metrics != nil {
		f.metrics.ReplicationFanOutPending.Inc()
	}

	go func() {
		defer func() {
			f.inFlight.Add(-1)
			if f.metrics != nil {
				f.metrics.ReplicationFanOutPending.Dec()
			}
			f.wg.Done()
		}()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), f.timeout)
		defer cancel()
		fn(ctx)
	}()
}

// InFlight returns the number of calls that have not finished.
func (f *FanOut) InFlight() int {
	return int(f.inFlight.Load())
}

// Wait blocks until every launched call has returned.
func (f *FanOut) Wait() {
	f.wg.Wait()
}
