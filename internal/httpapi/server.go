// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package httpapi implements the external HTTP interface (§6): the
// uniform JSON envelope, the batch/job/coverage/orphan endpoints, and
// the /jobs/events SSE stream. Transport framing and routing mechanics
// beyond chi's own mounting are out of this service's scope; this
// package owns only the handlers spec.md names.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/mediavault/core/internal/applog"
	"github.com/mediavault/core/internal/artifact"
	"github.com/mediavault/core/internal/bus"
	"github.com/mediavault/core/internal/config"
	"github.com/mediavault/core/internal/coverage"
	"github.com/mediavault/core/internal/job"
	jobstore "github.com/mediavault/core/internal/job/store"
	"github.com/mediavault/core/internal/media"
	"github.com/mediavault/core/internal/orphan"
)

// Server holds every collaborator the HTTP layer reads through: the
// media inventory, the artifact resolver/cache, the job store/
// scheduler/planner, the event bus, the coverage aggregator, and the
// orphan scanner. It owns no state of its own beyond cfg.
type Server struct {
	Config    config.AppConfig
	Media     *media.Service
	Resolver  *artifact.Resolver
	Cache     *artifact.Cache
	Store     jobstore.Store
	Scheduler *job.Scheduler
	Planner   *job.Planner
	Bus       *bus.MemoryBus
	Coverage  *coverage.Aggregator
	Orphans   *orphan.Scanner
}

// Envelope is the uniform response shape every non-streaming endpoint
// returns (§6): "success" responses carry Data, "error" responses
// carry Message.
type Envelope struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(env)
}

func writeSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Envelope{Status: "success", Data: data})
}

func writeError(w http.ResponseWriter, code int, err error) {
	applog.WithComponent("httpapi").Warn().Err(err).Int("status", code).Msg("request error")
	writeJSON(w, code, Envelope{Status: "error", Message: err.Error()})
}

// NewRouter builds the chi router mounting every endpoint in spec.md
// §6, grounded on the teacher's chi mounting/middleware stack
// (internal/api/http.go's routes()) generalized from xg2g's IPTV
// concerns to this service's batch/job/coverage/orphan surface.
func (s *Server) NewRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(otelHTTP(s.Config.LogService))
	r.Use(applog.Middleware())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOriginsOrDefault(s.Config.AllowedOrigins),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "X-Request-ID"},
		MaxAge:           300,
		AllowCredentials: false,
	}))
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", s.handleHealthz)

	r.Route("/api", func(r chi.Router) {
		r.Get("/library", s.handleLibrary)

		r.Route("/artifacts", func(r chi.Router) {
			r.Get("/status", s.handleArtifactStatus)
			r.Get("/orphans", s.handleOrphans)
			r.Post("/repair-preview", s.handleRepairPreview)
			r.Post("/repair-preview/stream", s.handleRepairPreviewStream)
			r.Post("/cleanup", s.handleCleanup)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/coverage", s.handleCoverage)
			r.Post("/batch", s.handleBatch)
			r.Get("/jobs", s.handleJobsList)
			r.Post("/jobs/{id}/cancel", s.handleJobCancel)
			r.Post("/jobs/cancel-queued", s.handleCancelQueued)
			r.Post("/jobs/cancel-all", s.handleCancelAll)
			r.Post("/jobs/clear-completed", s.handleClearCompleted)
			r.Get("/concurrency", s.handleConcurrencyGet)
			r.Post("/concurrency", s.handleConcurrencySet)
			r.Get("/pause", s.handlePauseGet)
			r.Post("/pause", s.handlePauseSet)
		})
	})

	// Compatibility alias per spec.md §9: the SSE endpoint is
	// unprefixed while every state-changing endpoint lives under /api.
	r.Get("/jobs/events", s.handleEvents)

	return r
}

func allowedOriginsOrDefault(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, map[string]string{"status": "ok"})
}
