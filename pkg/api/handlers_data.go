package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dd0wney/cluso-kv/pkg/kv"
	"github.com/dd0wney/cluso-kv/pkg/logging"
	"github.com/dd0wney/cluso-kv/pkg/replication"
	"github.com/gorilla/mux"
)

// handleWritePath serves POST /data/{key}/{value}.
func (s *Server) handleWritePath(w http.ResponseWriter, r *http.Request) {
	key, ok := s.pathVar(w, r, "key")
	if !ok {
		return
	}
	value, ok := s.pathVar(w, r, "value")
	if !ok {
		return
	}
	s.write(w, r, key, value, func(leaderAddr string) string {
		return "http://" + leaderAddr + "/data/" + escapeSegment(key) + "/" + escapeSegment(value)
	})
}

// handleWriteBody serves PUT /data/{key} with the value as the body.
func (s *Server) handleWriteBody(w http.ResponseWriter, r *http.Request) {
	key, ok := s.pathVar(w, r, "key")
	if !ok {
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondText(w, http.StatusRequestEntityTooLarge, "value too large")
			return
		}
		s.respondText(w, http.StatusBadRequest, "failed to read value")
		return
	}
	s.write(w, r, key, string(body), func(leaderAddr string) string {
		return "http://" + leaderAddr + "/data/" + escapeSegment(key)
	})
}

// write runs one client write and maps its outcome onto the response.
func (s *Server) write(w http.ResponseWriter, r *http.Request, key, value string, redirectURL func(string) string) {
	result, err := s.node.Write(r.Context(), key, value)
	id := s.node.NodeID()

	switch {
	case errors.Is(err, replication.ErrNoLeader):
		w.Header().Set("Retry-After", "1")
		s.respondText(w, http.StatusServiceUnavailable, "no leader available")
	case errors.Is(err, replication.ErrWritesHalted):
		w.Header().Set("Retry-After", "1")
		s.respondText(w, http.StatusServiceUnavailable, fmt.Sprintf("writes halted on node %d", id))
	case errors.Is(err, replication.ErrDurability):
		s.logger.Error("write failed durably", logging.Key(key), logging.Error(err))
		s.respondText(w, http.StatusInternalServerError, fmt.Sprintf("durability failure on node %d", id))
	case err != nil:
		s.logger.Error("write failed", logging.Key(key), logging.Error(err))
		s.respondText(w, http.StatusInternalServerError, "write failed")
	case result.Outcome == replication.OutcomeRedirect:
		target := redirectURL(result.RedirectTo)
		s.logger.Debug("redirecting write to leader", logging.LeaderID(result.LeaderID), logging.Addr(result.RedirectTo))
		http.Redirect(w, r, target, http.StatusTemporaryRedirect)
	default:
		s.respondText(w, http.StatusOK, fmt.Sprintf("write successful on leader %d", id))
	}
}

// handleRead serves GET /data/{key} from the local store.
func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	key, ok := s.pathVar(w, r, "key")
	if !ok {
		return
	}
	value, err := s.node.Read(key)
	if errors.Is(err, kv.ErrKeyNotFound) {
		s.respondText(w, http.StatusNotFound, fmt.Sprintf("key not found on node %d", s.node.NodeID()))
		return
	}
	if err != nil {
		s.logger.Error("read failed", logging.Key(key), logging.Error(err))
		s.respondText(w, http.StatusInternalServerError, "read failed")
		return
	}
	s.respondText(w, http.StatusOK, value)
}

// handleReplicate serves the leader's fan-out calls. The write arrives as
// a form body and is applied to memory only.
func (s *Server) handleReplicate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondText(w, http.StatusRequestEntityTooLarge, "write too large")
			return
		}
		s.respondText(w, http.StatusBadRequest, "invalid replication form")
		return
	}
	form := r.PostForm
	if !form.Has(replication.ReplicateKeyField) || !form.Has(replication.ReplicateValueField) {
		s.respondText(w, http.StatusBadRequest, "missing key or value")
		return
	}
	s.node.Apply(form.Get(replication.ReplicateKeyField), form.Get(replication.ReplicateValueField))
	s.respondText(w, http.StatusOK, "ok")
}

// pathVar returns the unescaped route variable name. The router matches
// encoded paths, so variables arrive escaped.
func (s *Server) pathVar(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	raw := mux.Vars(r)[name]
	v, err := url.PathUnescape(raw)
	if err != nil {
		s.respondText(w, http.StatusBadRequest, fmt.Sprintf("invalid %s encoding", name))
		return "", false
	}
	return v, true
}

// escapeSegment path-escapes s for use as one path segment. Dots are
// escaped too, so "." and ".." never become dot segments.
func escapeSegment(s string) string {
	return strings.ReplaceAll(url.PathEscape(s), ".", "%2E")
}
