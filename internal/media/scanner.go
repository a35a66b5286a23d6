// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mediavault/core/internal/applog"
	"github.com/mediavault/core/internal/fsutil"
)

// Scanner walks a library root and reconciles the inventory store with
// what is actually on disk.
type Scanner struct {
	store      *Store
	root       string
	maxDepth   int
	includeExt []string
}

// NewScanner builds a scanner rooted at root. maxDepth<=0 means
// unlimited. includeExt, when non-empty, restricts indexing to those
// extensions (case-insensitive, with or without a leading dot).
func NewScanner(store *Store, root string, maxDepth int, includeExt []string) *Scanner {
	return &Scanner{store: store, root: root, maxDepth: maxDepth, includeExt: includeExt}
}

// Scan walks the root, upserting every in-scope file and removing any
// inventory row not observed during this walk. Events describing the
// delta are returned for the caller to publish on the bus.
func (sc *Scanner) Scan(ctx context.Context) (*ScanResult, []Event, error) {
	log := applog.WithComponent("media.scanner")
	result := &ScanResult{Started: time.Now()}

	rootResolved, err := fsutil.ResolveExisting(sc.root)
	if err != nil {
		result.Finished = time.Now()
		result.ErrorCount++
		result.LastError = fmt.Sprintf("resolve root: %v", err)
		return result, nil, fmt.Errorf("resolve root: %w", err)
	}
	rootResolved = filepath.Clean(rootResolved)

	tx, err := sc.store.BeginTx(ctx)
	if err != nil {
		result.Finished = time.Now()
		return result, nil, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	scanTime := time.Now()
	var events []Event

	walkErr := filepath.WalkDir(rootResolved, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			result.ErrorCount++
			log.Warn().Err(err).Str("path", path).Msg("media scan: walk error")
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path == rootResolved {
				return nil
			}
			rel, relErr := filepath.Rel(rootResolved, path)
			if relErr != nil {
				result.ErrorCount++
				return nil
			}
			depth := strings.Count(rel, string(os.PathSeparator)) + 1
			if sc.maxDepth > 0 && depth > sc.maxDepth {
				return fs.SkipDir
			}
			return nil
		}

		rel, err := fsutil.Confine(rootResolved, path)
		if err != nil {
			result.ErrorCount++
			log.Warn().Err(err).Str("path", path).Msg("media scan: confinement violation")
			return nil
		}

		ext := strings.ToLower(filepath.Ext(d.Name()))
		if !isAllowedExtension(ext, sc.includeExt) {
			result.Skipped++
			return nil
		}

		info, err := d.Info()
		if err != nil {
			result.ErrorCount++
			log.Warn().Err(err).Str("path", rel).Msg("media scan: stat failed")
			return nil
		}

		f := File{
			RelPath:   rel,
			Filename:  d.Name(),
			Ext:       strings.TrimPrefix(ext, "."),
			SizeBytes: info.Size(),
			ModTime:   info.ModTime(),
			ScanTime:  scanTime,
		}

		inserted, err := sc.store.UpsertFile(ctx, tx, f)
		if err != nil {
			result.ErrorCount++
			log.Warn().Err(err).Str("path", rel).Msg("media scan: upsert failed")
			return nil
		}

		result.TotalWalked++
		if inserted {
			result.Inserted++
			events = append(events, Event{Type: EventAdded, RelPath: rel})
		} else {
			result.Updated++
			events = append(events, Event{Type: EventUpdated, RelPath: rel})
		}
		return nil
	})
	if walkErr != nil && walkErr != context.Canceled {
		result.Finished = time.Now()
		result.LastError = walkErr.Error()
		return result, nil, fmt.Errorf("walk root: %w", walkErr)
	}

	stale, err := sc.store.SweepStale(ctx, tx, scanTime)
	if err != nil {
		result.Finished = time.Now()
		return result, nil, fmt.Errorf("sweep stale entries: %w", err)
	}
	result.Removed = len(stale)
	for _, rel := range stale {
		events = append(events, Event{Type: EventRemoved, RelPath: rel})
	}

	if err := tx.Commit(); err != nil {
		result.Finished = time.Now()
		return result, nil, fmt.Errorf("commit tx: %w", err)
	}
	committed = true

	result.Finished = time.Now()
	log.Info().
		Int("walked", result.TotalWalked).
		Int("inserted", result.Inserted).
		Int("updated", result.Updated).
		Int("removed", result.Removed).
		Int("errors", result.ErrorCount).
		Dur("duration", result.Finished.Sub(result.Started)).
		Msg("media scan complete")

	return result, events, nil
}

func isAllowedExtension(ext string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if !strings.HasPrefix(a, ".") {
			a = "." + a
		}
		if strings.EqualFold(ext, a) {
			return true
		}
	}
	return false
}
