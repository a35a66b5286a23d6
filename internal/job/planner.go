// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package job

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mediavault/core/internal/artifact"
	"github.com/mediavault/core/internal/media"
)

// Mode is how a BatchRequest treats each in-scope (file, kind) pair.
type Mode string

const (
	ModeMissing Mode = "missing"
	ModeAll     Mode = "all"
	ModeClear   Mode = "clear"
)

// Scope restricts a BatchRequest to every in-scope file or an
// explicit subset.
type Scope string

const (
	ScopeAll      Scope = "all"
	ScopeSelected Scope = "selected"
)

// KindAll is the special Operation value expanding to every
// ArtifactKind in fast-first order.
const KindAll = "all"

// BatchRequest describes one planning request, consumed by Plan to
// produce a job set (or, for ModeClear, a synchronous deletion pass).
type BatchRequest struct {
	Operation     string // an artifact.Kind, or KindAll
	Mode          Mode
	Scope         Scope
	SelectedPaths []string
	Path          string // root-relative subdirectory; "" means root
	Params        map[string]any
}

// fastFirstOrder is the ordered kind expansion for a composite
// request: cheap/quick kinds first so users see coverage progress
// sooner.
var fastFirstOrder = []artifact.Kind{
	artifact.KindMetadata, artifact.KindPhash, artifact.KindThumbnail,
	artifact.KindPreview, artifact.KindSprites, artifact.KindHeatmaps,
	artifact.KindMarkers, artifact.KindFaces, artifact.KindEmbeddings,
	artifact.KindSubtitles,
}

// SkippedItem names one (file, kind) pair the planner declined to
// enqueue and why, per spec.md §7's "conflict" error kind: reported in
// the batch response rather than treated as a planning failure.
type SkippedItem struct {
	File   string `json:"file"`
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

// PlanResult reports what a Plan call did.
type PlanResult struct {
	JobIDs      []string
	Cleared     int
	SkippedDupe int
	Skipped     []SkippedItem
}

// Planner implements the Batch Planner (C7): it expands a
// BatchRequest into an ordered job set (or a synchronous clear pass)
// against the media inventory, artifact probe, and worker registry.
type Planner struct {
	Media     *media.Service
	Resolver  *artifact.Resolver
	Cache     *artifact.Cache
	Scheduler *Scheduler
}

// Plan executes req: enqueues jobs for ModeMissing/ModeAll, or deletes
// sidecars synchronously for ModeClear. Directory walk is always
// recursive (ListUnderDir), matching spec.md §4.7's stated default.
func (p *Planner) Plan(ctx context.Context, req BatchRequest) (PlanResult, error) {
	dir, _, err := p.Resolver.Canonicalize(req.Path)
	if err != nil {
		return PlanResult{}, fmt.Errorf("canonicalize path: %w", err)
	}

	files, err := p.Media.ListUnderDir(ctx, dir)
	if err != nil {
		return PlanResult{}, fmt.Errorf("list files: %w", err)
	}
	if req.Scope == ScopeSelected {
		allowed := make(map[string]bool, len(req.SelectedPaths))
		for _, sp := range req.SelectedPaths {
			allowed[sp] = true
		}
		filtered := files[:0]
		for _, f := range files {
			if allowed[f.RelPath] {
				filtered = append(filtered, f)
			}
		}
		files = filtered
	}

	kinds, err := p.expandKinds(req.Operation)
	if err != nil {
		return PlanResult{}, err
	}

	validated := make(map[artifact.Kind]map[string]any, len(kinds))
	for _, k := range kinds {
		w, err := p.Scheduler.Registry.Get(k)
		if err != nil {
			return PlanResult{}, fmt.Errorf("no worker for kind %s: %w", k, err)
		}
		params, err := w.Validate(req.Params)
		if err != nil {
			return PlanResult{}, fmt.Errorf("validate params for %s: %w", k, err)
		}
		validated[k] = params
	}

	if req.Mode == ModeClear {
		return p.clear(ctx, files, kinds)
	}

	var result PlanResult
	seq := 0
	base := time.Now()
	for _, f := range files {
		for _, k := range kinds {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			include, err := p.shouldInclude(f.RelPath, f.ModTime, k, req.Mode)
			if err != nil {
				return result, err
			}
			if !include {
				continue
			}
			if p.Scheduler.HasActiveClaim(f.RelPath, string(k)) {
				result.SkippedDupe++
				result.Skipped = append(result.Skipped, SkippedItem{File: f.RelPath, Kind: string(k), Reason: "duplicate-active-job"})
				continue
			}

			params := cloneParams(validated[k])
			if req.Mode == ModeAll {
				params["overwrite"] = true
			}
			rec := &Record{
				ID:       NewJobID(),
				Task:     string(k),
				Target:   f.RelPath,
				Artifact: string(k),
				Params:   params,
				State:    StateQueued,
				Created:  base.Add(time.Duration(seq) * time.Nanosecond),
			}
			seq++
			if err := p.Scheduler.Enqueue(ctx, rec); err != nil {
				return result, fmt.Errorf("enqueue %s/%s: %w", f.RelPath, k, err)
			}
			result.JobIDs = append(result.JobIDs, rec.ID)
		}
	}
	return result, nil
}

func (p *Planner) shouldInclude(relPath string, sourceModTime time.Time, k artifact.Kind, mode Mode) (bool, error) {
	if mode == ModeAll {
		return true, nil
	}
	status := p.Cache.Get(relPath, sourceModTime, k)
	return status.State != artifact.StatePresent, nil
}

func (p *Planner) clear(ctx context.Context, files []media.File, kinds []artifact.Kind) (PlanResult, error) {
	var result PlanResult
	for _, f := range files {
		for _, k := range kinds {
			sidecars, err := p.Resolver.Resolve(f.RelPath, k)
			if err != nil {
				return result, err
			}
			for _, sc := range sidecars {
				abs := filepath.Join(p.Resolver.Root(), filepath.FromSlash(sc))
				if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
					return result, fmt.Errorf("remove %s: %w", sc, err)
				}
				result.Cleared++
			}
			p.Cache.Invalidate(f.RelPath, k)
		}
	}
	return result, nil
}

func (p *Planner) expandKinds(operation string) ([]artifact.Kind, error) {
	if operation == KindAll {
		return fastFirstOrder, nil
	}
	k, err := artifact.ParseKind(operation)
	if err != nil {
		return nil, err
	}
	return []artifact.Kind{k}, nil
}

func cloneParams(m map[string]any) map[string]any {
	out := make(map[string]any, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}
