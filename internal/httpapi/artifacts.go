// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/mediavault/core/internal/applog"
	"github.com/mediavault/core/internal/artifact"
	"github.com/mediavault/core/internal/orphan"
)

type artifactStatusResponse struct {
	Path  string                     `json:"path"`
	Kinds map[artifact.Kind]artifact.Status `json:"kinds"`
}

func (s *Server) handleArtifactStatus(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	relPath, isDir, err := s.Resolver.Canonicalize(q.Get("path"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid path: %w", err))
		return
	}
	if isDir {
		writeError(w, http.StatusBadRequest, fmt.Errorf("path %q is a directory", relPath))
		return
	}

	f, err := s.Media.Get(r.Context(), relPath)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
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

	out := make(map[artifact.Kind]artifact.Status, len(kinds))
	for _, k := range kinds {
		out[k] = s.Cache.Get(f.RelPath, f.ModTime, k)
	}
	writeSuccess(w, artifactStatusResponse{Path: relPath, Kinds: out})
}

// orphanListItem pairs a scanned orphan with its best repair
// suggestion, if any cleared the configured confidence floor.
type orphanListItem struct {
	Entry      orphan.Entry       `json:"entry"`
	Suggestion *orphan.Suggestion `json:"suggestion,omitempty"`
}

func (s *Server) handleOrphans(w http.ResponseWriter, r *http.Request) {
	entries, err := s.Orphans.Scan(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	candidates, err := s.Media.ListAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	floor := s.Config.OrphanConfidenceFloor
	if raw := r.URL.Query().Get("floor"); raw != "" {
		if f, err := parseFloat(raw); err == nil {
			floor = f
		}
	}

	items := make([]orphanListItem, 0, len(entries))
	for _, entry := range entries {
		item := orphanListItem{Entry: entry}
		if sug, ok := orphan.Rank(entry, candidates, floor); ok {
			item.Suggestion = &sug
		}
		items = append(items, item)
	}
	writeSuccess(w, map[string]any{"orphans": items})
}

type repairPreviewRequest struct {
	Floor float64 `json:"floor"`
}

func (s *Server) handleRepairPreview(w http.ResponseWriter, r *http.Request) {
	var body repairPreviewRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("decode repair preview request: %w", err))
			return
		}
	}
	floor := body.Floor
	if floor <= 0 {
		floor = s.Config.OrphanConfidenceFloor
	}

	entries, err := s.Orphans.Scan(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	candidates, err := s.Media.ListAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	suggestions := make([]orphan.Suggestion, 0, len(entries))
	for _, entry := range entries {
		if sug, ok := orphan.Rank(entry, candidates, floor); ok {
			suggestions = append(suggestions, sug)
		}
	}
	writeSuccess(w, map[string]any{"suggestions": suggestions})
}

// handleRepairPreviewStream streams one NDJSON line per orphan.StreamEvent,
// flushing after each line so a client sees progress live rather than
// waiting for the full scan to finish.
func (s *Server) handleRepairPreviewStream(w http.ResponseWriter, r *http.Request) {
	var body repairPreviewRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("decode repair preview request: %w", err))
			return
		}
	}
	floor := body.Floor
	if floor <= 0 {
		floor = s.Config.OrphanConfidenceFloor
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)

	err := s.Orphans.StreamSuggestions(r.Context(), floor, func(ev orphan.StreamEvent) error {
		if err := enc.Encode(ev); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		applog.WithComponent("httpapi").Warn().Err(err).Msg("repair preview stream ended early")
	}
}

// cleanupRequest names the suggestions a client chose to apply, as
// returned by /repair-preview.
type cleanupRequest struct {
	Suggestions []orphan.Suggestion `json:"suggestions"`
	Overwrite   bool                `json:"overwrite"`
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	var body cleanupRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode cleanup request: %w", err))
		return
	}

	results := make([]orphan.Result, 0, len(body.Suggestions))
	for _, sug := range body.Suggestions {
		res := orphan.Apply(s.Resolver.Root(), s.Resolver, sug, body.Overwrite)
		if res.State == orphan.StateMoved {
			s.Cache.Invalidate(sug.TargetRelPath, sug.Entry.Kind)
			s.Coverage.InvalidateDir(sug.Entry.MediaDir)
		}
		results = append(results, res)
	}
	writeSuccess(w, map[string]any{"results": results})
}

func parseFloat(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(s, "%g", &f)
	return f, err
}
