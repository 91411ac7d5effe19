package health

import "time"

// Node health checks

// SimpleCheck creates a check that always returns healthy
func SimpleCheck(name string) Check {
	return Check{
		Name:        name,
		Status:      StatusHealthy,
		LastChecked: time.Now(),
	}
}

// AlwaysHealthy wraps SimpleCheck as a CheckFunc, used for liveness.
func AlwaysHealthy(name string) CheckFunc {
	return func() Check {
		return SimpleCheck(name)
	}
}

// DurableLogCheck is unhealthy once the durable log has failed
func DurableLogCheck(getErr func() error, path string) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "durable_log",
			Details: map[string]any{"path": path},
		}

		if err := getErr(); err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
		} else {
			check.Status = StatusHealthy
			check.Message = "Appending"
		}

		return check
	}
}

// WritePathCheck is unhealthy once writes have been halted
func WritePathCheck(getHalted func() (bool, error)) CheckFunc {
	return func() Check {
		check := Check{Name: "write_path"}

		halted, cause := getHalted()
		switch {
		case halted && cause != nil:
			check.Status = StatusUnhealthy
			check.Message = "Writes halted: " + cause.Error()
		case halted:
			check.Status = StatusUnhealthy
			check.Message = "Writes halted"
		default:
			check.Status = StatusHealthy
			check.Message = "Accepting writes"
		}

		return check
	}
}

// LeadershipCheck is degraded while no leader is believed
func LeadershipCheck(getLeader func() (leaderID, selfID int)) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "leadership",
			Details: make(map[string]any),
		}

		leaderID, selfID := getLeader()
		check.Details["leader_id"] = leaderID
		check.Details["is_leader"] = leaderID == selfID

		switch {
		case leaderID < 0:
			check.Status = StatusDegraded
			check.Message = "No leader known"
		case leaderID == selfID:
			check.Status = StatusHealthy
			check.Message = "This node is leader"
		default:
			check.Status = StatusHealthy
			check.Message = "Following"
		}

		return check
	}
}

// PeersCheck is degraded while some configured peers are not alive
func PeersCheck(getPeers func() (alive, total int)) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "peers",
			Details: make(map[string]any),
		}

		alive, total := getPeers()
		check.Details["alive_peers"] = alive
		check.Details["total_peers"] = total

		switch {
		case total == 0:
			check.Status = StatusHealthy
			check.Message = "Single node cluster"
		case alive < total:
			check.Status = StatusDegraded
			check.Message = "Some peers unreachable"
		default:
			check.Status = StatusHealthy
			check.Message = "All peers alive"
		}

		return check
	}
}

// ReplayCheck is unhealthy until startup replay has finished
func ReplayCheck(isDone func() bool) CheckFunc {
	return func() Check {
		check := Check{Name: "replay"}
		if isDone() {
			check.Status = StatusHealthy
			check.Message = "Replay complete"
		} else {
			check.Status = StatusUnhealthy
			check.Message = "Replaying durable log"
		}
		return check
	}
}
