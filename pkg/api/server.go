// Package api exposes a node over HTTP: client reads and writes, the
// replication apply endpoint, the liveness ping, status, health and metrics.
package api

import (
	"net/http"

	"github.com/dd0wney/cluso-kv/pkg/api/middleware"
	"github.com/dd0wney/cluso-kv/pkg/health"
	"github.com/dd0wney/cluso-kv/pkg/logging"
	"github.com/dd0wney/cluso-kv/pkg/metrics"
	"github.com/dd0wney/cluso-kv/pkg/replication"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultMaxBodyBytes limits PUT bodies.
const DefaultMaxBodyBytes = 1 << 20

// replicateBodyLimit bounds a form-encoded replication body. Percent
// encoding at most triples a value, and the key arrived in a URL.
func replicateBodyLimit(maxValue int64) int64 {
	return 3*maxValue + 3*http.DefaultMaxHeaderBytes
}

// Config wires a Server to its node.
type Config struct {
	Coordinator  Coordinator
	Status       StatusFunc
	Health       *health.HealthChecker
	Metrics      *metrics.Registry
	Logger       logging.Logger
	MaxBodyBytes int64
}

// Server represents the HTTP API server
type Server struct {
	node         Coordinator
	status       StatusFunc
	health       *health.HealthChecker
	metrics      *metrics.Registry
	logger       logging.Logger
	maxBodyBytes int64
	router       *mux.Router
}

// NewServer creates a new API server and registers its routes.
func NewServer(config Config) *Server {
	s := &Server{
		node:         config.Coordinator,
		status:       config.Status,
		health:       config.Health,
		metrics:      config.Metrics,
		logger:       config.Logger,
		maxBodyBytes: config.MaxBodyBytes,
	}
	if s.logger == nil {
		s.logger = logging.NewNopLogger()
	}
	if s.maxBodyBytes <= 0 {
		s.maxBodyBytes = DefaultMaxBodyBytes
	}
	if s.health == nil {
		s.health = health.NewHealthChecker()
	}
	s.router = s.routes()
	return s
}

// routes builds the router. Paths are matched in their encoded form so that
// keys and values may contain escaped slashes.
func (s *Server) routes() *mux.Router {
	r := mux.NewRouter().UseEncodedPath()

	var recorder middleware.MetricsRecorder
	if s.metrics != nil {
		recorder = s.metrics
	}
	r.Use(middleware.Metrics(recorder, routeTemplate))

	r.HandleFunc("/ping", s.handlePing).Methods(http.MethodGet)

	r.HandleFunc("/data/{key}/{value}", s.handleWritePath).Methods(http.MethodPost)
	r.Handle("/data/{key}", middleware.BodySizeLimit(s.maxBodyBytes)(http.HandlerFunc(s.handleWriteBody))).Methods(http.MethodPut)
	r.HandleFunc("/data/{key}", s.handleRead).Methods(http.MethodGet)

	r.Handle(replication.ReplicatePath, middleware.BodySizeLimit(replicateBodyLimit(s.maxBodyBytes))(http.HandlerFunc(s.handleReplicate))).Methods(http.MethodPost)

	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/health", s.health.HTTPHandler()).Methods(http.MethodGet)
	r.HandleFunc("/health/live", s.health.LivenessHandler()).Methods(http.MethodGet)
	r.HandleFunc("/health/ready", s.health.ReadinessHandler()).Methods(http.MethodGet)

	if s.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.metrics.GetPrometheusRegistry(), promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	return r
}

// Router returns the bare router without the outer middleware chain.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Handler returns the router wrapped in request id, logging and panic
// recovery middleware.
func (s *Server) Handler() http.Handler {
	handler := middleware.Logging(s.logger, middleware.GetRequestID)(s.router)
	handler = middleware.RequestID()(handler)
	handler = middleware.PanicRecovery(s.logger)(handler)
	return handler
}

func routeTemplate(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return ""
	}
	tpl, err := route.GetPathTemplate()
	if err != nil {
		return ""
	}
	return tpl
}
