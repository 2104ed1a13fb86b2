// Package httpapi exposes the context service over HTTP: the context
// endpoint, health probes, and the administrative cache flush.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ashok1995/kite-services-sub000/internal/history"
	"github.com/ashok1995/kite-services-sub000/internal/marketctx"
	"github.com/ashok1995/kite-services-sub000/internal/notify"
	"github.com/ashok1995/kite-services-sub000/internal/platform/cache"
	"github.com/ashok1995/kite-services-sub000/internal/platform/observability"
)

// Server handles the service's HTTP surface.
type Server struct {
	orch     *marketctx.Orchestrator
	store    cache.Store
	monitor  *notify.Monitor
	recorder *history.Recorder
	logger   *observability.Logger
	metrics  *observability.Metrics
	router   chi.Router
	now      func() time.Time
}

// ServerConfig holds server dependencies. Monitor and Recorder are
// optional; absent ones are skipped.
type ServerConfig struct {
	Orchestrator *marketctx.Orchestrator
	Store        cache.Store
	Monitor      *notify.Monitor
	Recorder     *history.Recorder
	Logger       *observability.Logger
	Metrics      *observability.Metrics
	Now          func() time.Time
}

// NewServer creates the HTTP server with its routes mounted.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Server{
		orch:     cfg.Orchestrator,
		store:    cfg.Store,
		monitor:  cfg.Monitor,
		recorder: cfg.Recorder,
		logger:   cfg.Logger.Component("http"),
		metrics:  cfg.Metrics,
		now:      cfg.Now,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/context", s.handleContext)
		r.Post("/cache/flush", s.handleCacheFlush)
	})

	s.router = r
	return s
}

// Handler returns the mounted router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// handleContext resolves the requested tiers and writes the aggregate with
// its quality report. Zero resolvable tiers map to 503, or 401 when the
// cause is expired upstream credentials.
func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	start := s.now()
	ctx := r.Context()

	requested, err := parseTiers(r.URL.Query().Get("tiers"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	set := s.orch.Resolve(ctx, requested)
	resp := marketctx.Aggregate(requested, set, s.now().Sub(start))

	if s.metrics != nil {
		s.metrics.RecordQualityScore(ctx, resp.Quality.OverallScore)
	}
	if s.monitor != nil {
		s.monitor.Observe(ctx, resp)
	}
	if s.recorder != nil {
		// Detached context: the record outlives this request's deadline
		go s.recorder.Record(context.WithoutCancel(ctx), requested, resp)
	}

	status := http.StatusOK
	if set.Len() == 0 {
		status = http.StatusServiceUnavailable
		if set.AuthExpired() {
			status = http.StatusUnauthorized
		}
	}

	s.writeJSON(w, status, resp)
	if s.metrics != nil {
		s.metrics.RecordRequest(ctx, "/v1/context", status, s.now().Sub(start))
	}
}

// handleCacheFlush deletes cache entries matching the pattern query
// parameter (default all entries under the service prefix).
func (s *Server) handleCacheFlush(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")
	if pattern == "" {
		pattern = "*"
	}

	deleted := s.orch.FlushPattern(r.Context(), pattern)
	s.logger.LogInfo(r.Context(), "cache flushed", "pattern", pattern, "deleted", deleted)

	s.writeJSON(w, http.StatusOK, map[string]any{
		"pattern": pattern,
		"deleted": deleted,
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz reports readiness. A dead cache backend degrades the
// service but does not fail the probe: requests still work fail-open.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	cacheStatus := "ok"
	if err := s.store.Ping(r.Context()); err != nil {
		status = "degraded"
		cacheStatus = err.Error()
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": status,
		"cache":  cacheStatus,
	})
}

// parseTiers parses the comma-separated tiers parameter. Empty means all
// tiers; duplicates collapse.
func parseTiers(raw string) ([]marketctx.Tier, error) {
	if strings.TrimSpace(raw) == "" {
		return marketctx.AllTiers(), nil
	}

	seen := make(map[marketctx.Tier]bool)
	var tiers []marketctx.Tier
	for _, part := range strings.Split(raw, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		tier, err := marketctx.ParseTier(name)
		if err != nil {
			return nil, fmt.Errorf("invalid tier %q", name)
		}
		if !seen[tier] {
			seen[tier] = true
			tiers = append(tiers, tier)
		}
	}
	if len(tiers) == 0 {
		return marketctx.AllTiers(), nil
	}
	return tiers, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.LogWarn(context.Background(), "response encode failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
