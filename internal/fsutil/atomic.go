// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// WriteFileAtomic writes data to path via a temp-file-then-rename so a
// reader never observes a partially-written sidecar. The artifact probe
// (§4.2) relies on this: "present" must never mean "still being written".
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create sidecar directory: %w", err)
	}

	t, err := renameio.TempFile("", path)
	if err != nil {
		return fmt.Errorf("create pending file: %w", err)
	}
	defer func() { _ = t.Cleanup() }()

	if err := t.Chmod(perm); err != nil {
		return fmt.Errorf("chmod pending file: %w", err)
	}
	if _, err := t.Write(data); err != nil {
		return fmt.Errorf("write pending file: %w", err)
	}
	if err := t.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace %s: %w", path, err)
	}
	return nil
}

// CopyFileAtomic streams src into a temp file under path's directory and
// atomically renames it into place, so workers can publish sidecars
// produced by an external tool that writes directly to a file.
func CopyFileAtomic(path string, src io.Reader, perm os.FileMode) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("create sidecar directory: %w", err)
	}

	t, err := renameio.TempFile("", path)
	if err != nil {
		return 0, fmt.Errorf("create pending file: %w", err)
	}
	defer func() { _ = t.Cleanup() }()

	if err := t.Chmod(perm); err != nil {
		return 0, fmt.Errorf("chmod pending file: %w", err)
	}
	n, err := io.Copy(t, src)
	if err != nil {
		return n, fmt.Errorf("write pending file: %w", err)
	}
	if err := t.CloseAtomicallyReplace(); err != nil {
		return n, fmt.Errorf("atomically replace %s: %w", path, err)
	}
	return n, nil
}

// RenameAtomic moves src to dst atomically within the same volume,
// refusing to clobber an existing non-empty destination unless overwrite
// is true. Used by the orphan repair engine (§4.10) for sidecar moves.
func RenameAtomic(src, dst string, overwrite bool) error {
	if !overwrite {
		if info, err := os.Stat(dst); err == nil && info.Size() > 0 {
			return fmt.Errorf("destination exists and is non-empty: %s", dst)
		}
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("rename %s -> %s: %w", src, dst, err)
	}
	return nil
}
