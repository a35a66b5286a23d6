// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package httpapi

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/mediavault/core/internal/media"
)

// libraryPage is the thin file-browsing response. Tag/performer
// filtering and resolution-floor filtering are out of this service's
// scope (spec.md §1: "the tag/performer registry CRUD... only its
// effect on artifact discovery matters here") — search and pagination
// are implemented since the Batch Planner consumes the same `path`
// semantics this endpoint exposes.
type libraryPage struct {
	Files      []media.File `json:"files"`
	Page       int          `json:"page"`
	PageSize   int          `json:"pageSize"`
	Total      int          `json:"total"`
	TotalPages int          `json:"totalPages"`
}

func (s *Server) handleLibrary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dir, _, err := s.Resolver.Canonicalize(q.Get("path"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid path: %w", err))
		return
	}

	files, err := s.Media.ListDir(r.Context(), dir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if search := strings.TrimSpace(q.Get("search")); search != "" {
		needle := strings.ToLower(search)
		filtered := files[:0]
		for _, f := range files {
			if strings.Contains(strings.ToLower(f.Filename), needle) {
				filtered = append(filtered, f)
			}
		}
		files = filtered
	}

	sortFiles(files, q.Get("sort"), q.Get("order"))

	page := parsePositiveInt(q.Get("page"), 1)
	pageSize := parsePositiveInt(q.Get("page_size"), 50)
	total := len(files)
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	writeSuccess(w, libraryPage{
		Files:      files[start:end],
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
	})
}

func sortFiles(files []media.File, by, order string) {
	desc := strings.EqualFold(order, "desc")
	less := func(i, j int) bool {
		switch by {
		case "size":
			return files[i].SizeBytes < files[j].SizeBytes
		case "modTime":
			return files[i].ModTime.Before(files[j].ModTime)
		default:
			return files[i].Filename < files[j].Filename
		}
	}
	sort.SliceStable(files, func(i, j int) bool {
		if desc {
			return less(j, i)
		}
		return less(i, j)
	})
}

func parsePositiveInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}
