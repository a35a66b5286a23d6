// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package orphan

import (
	"fmt"
	"path"
	"path/filepath"

	"github.com/mediavault/core/internal/artifact"
	"github.com/mediavault/core/internal/fsutil"
)

// ErrTemplateNotFound is returned by Apply when a suggestion's sidecar
// cannot be matched back to one of its kind's declared templates,
// which would indicate the resolver's template set changed underneath
// a stale suggestion.
var ErrTemplateNotFound = fmt.Errorf("sidecar does not match any template for its kind")

// Apply moves sug's orphaned sidecar to the resolver-computed path for
// its chosen target media file, as an atomic same-volume rename. It
// refuses to overwrite an existing non-empty sidecar unless overwrite
// is true.
func Apply(root string, resolver *artifact.Resolver, sug Suggestion, overwrite bool) Result {
	entry := sug.Entry

	idx, err := templateIndex(resolver, entry)
	if err != nil {
		return Result{Entry: entry, State: StateFailed, Error: err.Error()}
	}

	targetStem := stemOf(sug.TargetRelPath)
	targetDir := path.Dir(sug.TargetRelPath)
	if targetDir == "." {
		targetDir = ""
	}

	rendered, err := resolver.Resolve(joinRel(targetDir, targetStem), entry.Kind)
	if err != nil {
		return Result{Entry: entry, State: StateFailed, Error: err.Error()}
	}
	if idx >= len(rendered) {
		return Result{Entry: entry, State: StateFailed, Error: ErrTemplateNotFound.Error()}
	}
	targetSidecar := rendered[idx]

	srcAbs := filepath.Join(root, filepath.FromSlash(entry.SidecarPath))
	dstAbs := filepath.Join(root, filepath.FromSlash(targetSidecar))

	if srcAbs == dstAbs {
		return Result{Entry: entry, State: StateSkipped}
	}

	if err := fsutil.RenameAtomic(srcAbs, dstAbs, overwrite); err != nil {
		return Result{Entry: entry, State: StateFailed, Error: err.Error()}
	}
	return Result{Entry: entry, State: StateMoved}
}

// templateIndex finds which of entry.Kind's declared sidecar templates
// entry.SidecarPath corresponds to, by re-rendering the templates at
// entry's own (MediaDir, Stem) and matching by equality.
func templateIndex(resolver *artifact.Resolver, entry Entry) (int, error) {
	rendered, err := resolver.Resolve(joinRel(entry.MediaDir, entry.Stem), entry.Kind)
	if err != nil {
		return 0, err
	}
	for i, sc := range rendered {
		if sc == entry.SidecarPath {
			return i, nil
		}
	}
	return 0, ErrTemplateNotFound
}

// joinRel builds a root-relative POSIX "media path" good enough for
// Resolver.Resolve's stem extraction: dir/stem plus a placeholder
// extension, so the basename-without-extension Resolve consumes is
// exactly stem even when stem itself contains dots.
func joinRel(dir, stem string) string {
	name := stem + ".media"
	if dir == "" {
		return name
	}
	return dir + "/" + name
}
