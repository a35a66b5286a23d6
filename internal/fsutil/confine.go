// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package fsutil provides path confinement and atomic-publish helpers
// shared by the media scanner, the artifact resolver, and the orphan
// repair engine.
package fsutil

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrPathEscape is returned when a path resolves outside its root.
var ErrPathEscape = errors.New("path escapes root")

// Confine resolves candidate (which may be relative to root, or already
// absolute) and verifies the resolved path stays within root after
// symlink resolution. It returns the root-relative, POSIX-separated path.
//
// candidate need not exist on disk; only ancestor directories that do
// exist are symlink-resolved, mirroring the scanner's own confinement
// check so a not-yet-created sidecar can still be validated.
func Confine(root, candidate string) (string, error) {
	rootResolved, err := ResolveExisting(root)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}

	abs := candidate
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(rootResolved, candidate)
	}
	abs = filepath.Clean(abs)

	resolved, err := ResolveExisting(abs)
	if err != nil {
		return "", fmt.Errorf("resolve candidate: %w", err)
	}

	rel, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", fmt.Errorf("relativize: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, candidate)
	}

	return filepath.ToSlash(rel), nil
}

// ResolveExisting resolves symlinks along path, walking up to the nearest
// existing ancestor when path itself does not yet exist (e.g. a sidecar
// that has not been written yet). The non-existent suffix is rejoined
// unresolved onto the resolved ancestor.
func ResolveExisting(path string) (string, error) {
	path = filepath.Clean(path)

	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}

	parent := filepath.Dir(path)
	if parent == path {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}

	resolvedParent, perr := ResolveExisting(parent)
	if perr != nil {
		return "", perr
	}
	return filepath.Join(resolvedParent, filepath.Base(path)), nil
}
