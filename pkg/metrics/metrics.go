package metrics

import (
	"strconv"
	"time"
)

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// IncHTTPRequestsInFlight marks one more request in flight
func (r *Registry) IncHTTPRequestsInFlight() {
	r.HTTPRequestsInFlight.Inc()
}

// DecHTTPRequestsInFlight marks one request as finished
func (r *Registry) DecHTTPRequestsInFlight() {
	r.HTTPRequestsInFlight.Dec()
}

// RecordLogAppend records one durable log append
func (r *Registry) RecordLogAppend(err error, duration time.Duration) {
	if err != nil {
		r.LogAppendsTotal.WithLabelValues("error").Inc()
		r.LogFailed.Set(1)
		return
	}
	r.LogAppendsTotal.WithLabelValues("success").Inc()
	r.LogAppendDuration.Observe(duration.Seconds())
}

// RecordProbe records the result of one liveness probe
func (r *Registry) RecordProbe(peerID int, ok bool) {
	r.ClusterProbesTotal.WithLabelValues(strconv.Itoa(peerID), result(ok)).Inc()
}

// RecordFanOut records the result of one replication call
func (r *Registry) RecordFanOut(peerID int, ok bool) {
	r.ReplicationFanOutTotal.WithLabelValues(strconv.Itoa(peerID), result(ok)).Inc()
}

// SetPeerState marks state as the current state of peerID
func (r *Registry) SetPeerState(peerID int, state string) {
	peer := strconv.Itoa(peerID)
	for _, s := range []string{"unknown", "alive", "suspected"} {
		r.ClusterPeerState.WithLabelValues(peer, s).Set(0)
	}
	r.ClusterPeerState.WithLabelValues(peer, state).Set(1)
}

// SetLeader updates the leadership gauges
func (r *Registry) SetLeader(leaderID, selfID int) {
	r.ClusterLeaderID.Set(float64(leaderID))
	if leaderID == selfID {
		r.ClusterIsLeader.Set(1)
	} else {
		r.ClusterIsLeader.Set(0)
	}
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
