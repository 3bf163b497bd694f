// Copyright 2025 Certen Protocol
//
// Request Pipeline
// The HTTP surface of the ceremony coordinator. Composes the signature,
// integrity and role guards in front of the coordinator state machine.

package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/certen/ceremony-coordinator/pkg/coordinator"
	"github.com/certen/ceremony-coordinator/pkg/metrics"
	"github.com/certen/ceremony-coordinator/pkg/objectstore"
	"github.com/certen/ceremony-coordinator/pkg/tokens"
)

// Config holds the server-side settings of the request pipeline
type Config struct {
	// AccessSecret guards the coordinator status endpoint
	AccessSecret string

	// VerifierKey is the public key of the coordinator's own verifier,
	// authorized for administrative endpoints
	VerifierKey string

	// HealthPath is the file served by the healthcheck endpoint
	HealthPath string

	// InitialReliability is the reputation given at admission
	InitialReliability uint8

	// DebugEndpoints mounts /update and /verify when true
	DebugEndpoints bool
}

// Server composes the guards, the coordinator, the token store and the
// object-store gateway into the HTTP surface.
type Server struct {
	cfg         Config
	coordinator *coordinator.Coordinator
	gateway     *objectstore.Gateway
	tokens      *tokens.Store
	driver      *Driver
	metrics     *metrics.Metrics
	registry    *prometheus.Registry
	logger      *log.Logger

	// stop shuts the owning HTTP server down after /stop
	stop func()
}

// NewServer creates the request pipeline
func NewServer(cfg Config, c *coordinator.Coordinator, gateway *objectstore.Gateway, store *tokens.Store, driver *Driver, m *metrics.Metrics, registry *prometheus.Registry, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.Writer(), "[Server] ", log.LstdFlags)
	}
	return &Server{
		cfg:         cfg,
		coordinator: c,
		gateway:     gateway,
		tokens:      store,
		driver:      driver,
		metrics:     m,
		registry:    registry,
		logger:      logger,
	}
}

// SetStopFunc installs the callback fired after a successful /stop
func (s *Server) SetStopFunc(stop func()) {
	s.stop = stop
}

// Routes mounts every endpoint on a new mux
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /contributor/join_queue", s.timed("join_queue", s.handleJoinQueue))
	mux.HandleFunc("GET /contributor/lock_chunk", s.timed("lock_chunk", s.handleLockChunk))
	mux.HandleFunc("POST /contributor/challenge", s.timed("challenge", s.handleChallenge))
	mux.HandleFunc("POST /upload/chunk", s.timed("upload_chunk", s.handleContributionURLs))
	mux.HandleFunc("POST /contributor/contribute_chunk", s.timed("contribute_chunk", s.handleContributeChunk))
	mux.HandleFunc("POST /contributor/heartbeat", s.timed("heartbeat", s.handleHeartbeat))
	mux.HandleFunc("GET /contributor/queue_status", s.timed("queue_status", s.handleQueueStatus))
	mux.HandleFunc("POST /contributor/contribution_info", s.timed("post_contribution_info", s.handlePostContributionInfo))
	mux.HandleFunc("GET /contribution_info", s.timed("get_contribution_info", s.handleGetContributionsInfo))
	mux.HandleFunc("GET /healthcheck", s.timed("healthcheck", s.handleHealthcheck))
	mux.HandleFunc("GET /coordinator_status", s.timed("coordinator_status", s.handleCoordinatorStatus))
	mux.HandleFunc("POST /update_cohorts", s.timed("update_cohorts", s.handleUpdateCohorts))
	mux.HandleFunc("GET /stop", s.timed("stop", s.handleStop))

	if s.cfg.DebugEndpoints {
		mux.HandleFunc("GET /update", s.timed("update", s.handleUpdate))
		mux.HandleFunc("GET /verify", s.timed("verify", s.handleVerify))
	}

	if s.registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	return mux
}

// timed wraps a handler with the request duration histogram
func (s *Server) timed(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	if s.metrics == nil {
		return handler
	}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		handler(w, r)
		s.metrics.RequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Printf("Error encoding response: %v", err)
	}
}

func (s *Server) writeOK(w http.ResponseWriter) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeError(w http.ResponseWriter, rerr *ResponseError) {
	s.writeJSON(w, rerr.Status, map[string]interface{}{
		"error": map[string]string{
			"code":    rerr.Code,
			"message": rerr.Message,
		},
	})
}
