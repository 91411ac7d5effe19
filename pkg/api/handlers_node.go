package api

import (
	"fmt"
	"net/http"
)

// handlePing answers liveness probes from peers.
func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	s.respondText(w, http.StatusOK, fmt.Sprintf("pong from node %d", s.node.NodeID()))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		s.respondJSON(w, http.StatusOK, Status{NodeID: s.node.NodeID(), LeaderID: -1})
		return
	}
	s.respondJSON(w, http.StatusOK, s.status())
}
