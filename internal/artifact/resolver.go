// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package artifact

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/mediavault/core/internal/fsutil"
)

// ErrInvalidPath is returned by Canonicalize for input that cannot be
// safely resolved under the configured root.
var ErrInvalidPath = errors.New("invalid path")

const stemPlaceholder = "{stem}"

// Resolver maps (media path, ArtifactKind) to sidecar paths and back,
// is the single source of truth for sidecar layout, and canonicalizes
// user-supplied paths against the configured root. All operations are
// pure and side-effect free except that Canonicalize may stat the
// filesystem to distinguish a file from a directory.
type Resolver struct {
	root string
}

// NewResolver builds a Resolver rooted at root (an absolute path).
func NewResolver(root string) *Resolver {
	return &Resolver{root: root}
}

// Root returns the absolute path every sidecar/media path is resolved
// relative to.
func (r *Resolver) Root() string {
	return r.root
}

// Resolve returns the sidecar paths (root-relative, POSIX-separated)
// for mediaPath+kind. The first entry is always the primary sidecar.
// Deterministic and pure: Resolve never touches the filesystem.
func (r *Resolver) Resolve(mediaPath string, kind Kind) ([]string, error) {
	d, err := DescriptorFor(kind)
	if err != nil {
		return nil, err
	}

	mediaDir := path.Dir(mediaPath)
	if mediaDir == "." {
		mediaDir = ""
	}
	stem := stemOf(mediaPath)

	sidecars := make([]string, 0, len(d.Templates))
	for _, tmpl := range d.Templates {
		rendered := strings.ReplaceAll(tmpl, stemPlaceholder, stem)
		sidecars = append(sidecars, path.Join(mediaDir, rendered))
	}
	return sidecars, nil
}

// Canonicalize validates userInput against root: rejects ".." escapes,
// normalizes path separators, and returns the root-relative POSIX
// path. If the resolved path exists on disk, the returned bool
// reports whether it is a directory.
func (r *Resolver) Canonicalize(userInput string) (relPath string, isDir bool, err error) {
	rel, err := fsutil.Confine(r.root, userInput)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}

	abs := path.Join(r.root, rel)
	if info, statErr := os.Stat(abs); statErr == nil {
		isDir = info.IsDir()
	}
	return rel, isDir, nil
}

// InferFromSidecar is the inverse of Resolve: given a root-relative
// sidecar path, it returns the ArtifactKind and the media file's stem
// that produced it, or ok=false if sidecarPath matches no declared
// template. Used by the orphan engine to classify stray sidecars.
func (r *Resolver) InferFromSidecar(sidecarPath string) (kind Kind, stem string, ok bool) {
	dir := path.Dir(sidecarPath)
	if dir == "." {
		dir = ""
	}
	filename := path.Base(sidecarPath)

	for _, k := range AllKinds {
		d, err := DescriptorFor(k)
		if err != nil {
			continue
		}
		for _, tmpl := range d.Templates {
			tmplDir := path.Dir(tmpl)
			if tmplDir == "." {
				tmplDir = ""
			}
			tmplName := path.Base(tmpl)

			mediaDir, matched := stripTemplateDir(dir, tmplDir)
			if !matched {
				continue
			}

			prefix, suffix, found := strings.Cut(tmplName, stemPlaceholder)
			if !found {
				continue
			}
			if !strings.HasPrefix(filename, prefix) || !strings.HasSuffix(filename, suffix) {
				continue
			}
			candidateStem := strings.TrimSuffix(strings.TrimPrefix(filename, prefix), suffix)
			if candidateStem == "" {
				continue
			}

			_ = mediaDir // media directory is recoverable but unused by callers today
			return k, candidateStem, true
		}
	}
	return "", "", false
}

// stripTemplateDir checks that dir ends with tmplDir and returns the
// remaining prefix (the media file's directory).
func stripTemplateDir(dir, tmplDir string) (mediaDir string, ok bool) {
	if tmplDir == "" {
		return dir, true
	}
	if dir == tmplDir {
		return "", true
	}
	suffix := "/" + tmplDir
	if strings.HasSuffix(dir, suffix) {
		return strings.TrimSuffix(dir, suffix), true
	}
	return "", false
}

// stemOf returns the basename of mediaPath without its extension.
func stemOf(mediaPath string) string {
	base := path.Base(mediaPath)
	ext := path.Ext(base)
	return strings.TrimSuffix(base, ext)
}
