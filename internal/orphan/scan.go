// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package orphan

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/mediavault/core/internal/applog"
	"github.com/mediavault/core/internal/artifact"
	"github.com/mediavault/core/internal/fsutil"
	"github.com/mediavault/core/internal/media"
)

// Scanner walks a library root for sidecars whose originating media
// file is absent, grounded on media.Scanner's filepath.WalkDir +
// fsutil.Confine shape.
type Scanner struct {
	Root     string
	Resolver *artifact.Resolver
	Media    *media.Service
}

// NewScanner builds a Scanner rooted at root.
func NewScanner(root string, resolver *artifact.Resolver, svc *media.Service) *Scanner {
	return &Scanner{Root: root, Resolver: resolver, Media: svc}
}

// Scan walks root, inferring (kind, stem) for every file that matches
// a sidecar template, and reports every one for which no MediaFile
// with that stem exists in the same directory.
func (s *Scanner) Scan(ctx context.Context) ([]Entry, error) {
	log := applog.WithComponent("orphan.scan")
	rootResolved, err := fsutil.ResolveExisting(s.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	var entries []Entry
	walkErr := filepath.WalkDir(rootResolved, func(walkPath string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err != nil {
			log.Warn().Err(err).Str("path", walkPath).Msg("orphan scan: walk error")
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		rel, err := fsutil.Confine(rootResolved, walkPath)
		if err != nil {
			log.Warn().Err(err).Str("path", walkPath).Msg("orphan scan: confinement violation")
			return nil
		}

		kind, stem, ok := s.Resolver.InferFromSidecar(rel)
		if !ok {
			return nil
		}

		mediaDir := mediaDirOf(rel)
		exists, err := s.mediaExistsWithStem(ctx, mediaDir, stem)
		if err != nil {
			return fmt.Errorf("check media existence for %s: %w", rel, err)
		}
		if exists {
			return nil
		}

		entries = append(entries, Entry{SidecarPath: rel, MediaDir: mediaDir, Kind: kind, Stem: stem})
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk root: %w", walkErr)
	}
	return entries, nil
}

// mediaDirOf strips the trailing ".artifacts" sidecar directory from a
// sidecar's root-relative path, returning the directory its media file
// would live in.
func mediaDirOf(sidecarRelPath string) string {
	dir := path.Dir(sidecarRelPath)
	if dir == "." {
		dir = ""
	}
	if dir == ".artifacts" {
		return ""
	}
	return strings.TrimSuffix(dir, "/.artifacts")
}

func (s *Scanner) mediaExistsWithStem(ctx context.Context, dir, stem string) (bool, error) {
	files, err := s.Media.ListDir(ctx, dir)
	if err != nil {
		return false, err
	}
	for _, f := range files {
		if stemOf(f.RelPath) == stem {
			return true, nil
		}
	}
	return false, nil
}

// stemOf returns the basename of relPath without its extension.
func stemOf(relPath string) string {
	base := path.Base(relPath)
	ext := path.Ext(base)
	return strings.TrimSuffix(base, ext)
}
