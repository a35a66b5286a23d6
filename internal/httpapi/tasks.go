// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/mediavault/core/internal/artifact"
	"github.com/mediavault/core/internal/job"
)

func (s *Server) handleCoverage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dir, _, err := s.Resolver.Canonicalize(q.Get("path"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid path: %w", err))
		return
	}

	kinds := artifact.AllKinds
	if raw := q.Get("kinds"); raw != "" {
		kinds = nil
		for _, name := range strings.Split(raw, ",") {
			k, err := artifact.ParseKind(strings.TrimSpace(name))
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			kinds = append(kinds, k)
		}
	}

	report, err := s.Coverage.Get(r.Context(), dir, kinds)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, report)
}

// batchRequestBody is the wire shape of a POST /api/tasks/batch body,
// translated into a job.BatchRequest.
type batchRequestBody struct {
	Operation     string         `json:"operation"`
	Mode          string         `json:"mode"`
	Scope         string         `json:"scope"`
	SelectedPaths []string       `json:"selectedPaths"`
	Path          string         `json:"path"`
	Params        map[string]any `json:"params"`
}

// batchResponse is the wire shape of a successful batch submission.
type batchResponse struct {
	FileCount int                `json:"fileCount"`
	BatchID   string             `json:"batchId"`
	JobIDs    []string           `json:"jobIds"`
	Cleared   int                `json:"cleared"`
	Skipped   []job.SkippedItem  `json:"skipped"`
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var body batchRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode batch request: %w", err))
		return
	}

	mode := job.Mode(body.Mode)
	if mode == "" {
		mode = job.ModeMissing
	}
	scope := job.Scope(body.Scope)
	if scope == "" {
		scope = job.ScopeAll
	}

	result, err := s.Planner.Plan(r.Context(), job.BatchRequest{
		Operation:     body.Operation,
		Mode:          mode,
		Scope:         scope,
		SelectedPaths: body.SelectedPaths,
		Path:          body.Path,
		Params:        body.Params,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	skipped := result.Skipped
	if skipped == nil {
		skipped = []job.SkippedItem{}
	}
	writeSuccess(w, batchResponse{
		FileCount: len(result.JobIDs) + len(skipped),
		BatchID:   job.NewJobID(),
		JobIDs:    result.JobIDs,
		Cleared:   result.Cleared,
		Skipped:   skipped,
	})
}

// jobsListResponse reports the current job set plus per-tool-class
// occupancy, the shape the UI's job panel polls.
type jobsListResponse struct {
	Jobs  []*job.Record  `json:"jobs"`
	Stats jobsStats      `json:"stats"`
}

type jobsStats struct {
	GlobalMax int            `json:"globalMax"`
	ToolCaps  map[string]int `json:"toolCaps"`
	Running   map[string]int `json:"running"`
	Paused    bool           `json:"paused"`
}

func (s *Server) handleJobsList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter job.Filter
	if states := q.Get("state"); states != "" {
		for _, raw := range strings.Split(states, ",") {
			filter.States = append(filter.States, job.State(strings.TrimSpace(raw)))
		}
	}
	filter.Target = q.Get("target")
	filter.Task = q.Get("task")

	records, err := s.Store.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeSuccess(w, jobsListResponse{
		Jobs: records,
		Stats: jobsStats{
			GlobalMax: s.Scheduler.GlobalMax(),
			ToolCaps:  s.Scheduler.ToolCaps(),
			Running:   s.Scheduler.Occupancy(),
			Paused:    s.Scheduler.Paused(),
		},
	})
}

func (s *Server) handleJobCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Scheduler.CancelJob(r.Context(), id); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeSuccess(w, map[string]string{"id": id})
}

func (s *Server) handleCancelQueued(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Scheduler.CancelQueuedAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, map[string]any{"canceled": ids})
}

func (s *Server) handleCancelAll(w http.ResponseWriter, r *http.Request) {
	queued, err := s.Scheduler.CancelQueuedAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	signaled := s.Scheduler.CancelAllActive()
	writeSuccess(w, map[string]any{"canceledQueued": queued, "signaledRunning": signaled})
}

func (s *Server) handleClearCompleted(w http.ResponseWriter, r *http.Request) {
	n, err := s.Scheduler.ClearFinished(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, map[string]int{"cleared": n})
}

type concurrencyResponse struct {
	GlobalMax int            `json:"globalMax"`
	ToolCaps  map[string]int `json:"toolCaps"`
}

func (s *Server) handleConcurrencyGet(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, concurrencyResponse{
		GlobalMax: s.Scheduler.GlobalMax(),
		ToolCaps:  s.Scheduler.ToolCaps(),
	})
}

func (s *Server) handleConcurrencySet(w http.ResponseWriter, r *http.Request) {
	var body concurrencyResponse
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode concurrency request: %w", err))
		return
	}
	if body.GlobalMax > 0 {
		s.Scheduler.SetGlobalMax(body.GlobalMax)
	}
	for class, n := range body.ToolCaps {
		s.Scheduler.SetToolCap(class, n)
	}
	writeSuccess(w, concurrencyResponse{
		GlobalMax: s.Scheduler.GlobalMax(),
		ToolCaps:  s.Scheduler.ToolCaps(),
	})
}

func (s *Server) handlePauseGet(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, map[string]bool{"paused": s.Scheduler.Paused()})
}

func (s *Server) handlePauseSet(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Paused bool `json:"paused"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode pause request: %w", err))
		return
	}
	if body.Paused {
		s.Scheduler.Pause()
	} else {
		s.Scheduler.Resume()
	}
	writeSuccess(w, map[string]bool{"paused": s.Scheduler.Paused()})
}
