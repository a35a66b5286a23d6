// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver, no cgo
)

// Store provides SQLite persistence for the media inventory.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if necessary) the inventory database at
// dbPath and runs migrations. WAL + busy_timeout keep scans from
// colliding with concurrent status reads.
func NewStore(dbPath string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS media_files (
		rel_path   TEXT PRIMARY KEY,
		filename   TEXT NOT NULL,
		ext        TEXT NOT NULL,
		size_bytes INTEGER NOT NULL,
		mod_time   TEXT NOT NULL,
		scan_time  TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_media_files_dir ON media_files(rel_path);
	CREATE INDEX IF NOT EXISTS idx_media_files_scan_time ON media_files(scan_time);
	`
	_, err := s.db.Exec(schema)
	return err
}

// BeginTx starts a transaction, used by the scanner for atomic upserts
// followed by a stale-row sweep.
func (s *Store) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, nil)
}

// UpsertFile inserts or updates one inventory row within tx, reporting
// whether the row was newly inserted.
func (s *Store) UpsertFile(ctx context.Context, tx *sql.Tx, f File) (inserted bool, err error) {
	var existing string
	err = tx.QueryRowContext(ctx, `SELECT rel_path FROM media_files WHERE rel_path = ?`, f.RelPath).Scan(&existing)
	switch {
	case err == sql.ErrNoRows:
		inserted = true
	case err != nil:
		return false, err
	}

	_, err = tx.ExecContext(ctx, `
	INSERT INTO media_files (rel_path, filename, ext, size_bytes, mod_time, scan_time)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(rel_path) DO UPDATE SET
		filename   = excluded.filename,
		ext        = excluded.ext,
		size_bytes = excluded.size_bytes,
		mod_time   = excluded.mod_time,
		scan_time  = excluded.scan_time
	`,
		f.RelPath, f.Filename, f.Ext, f.SizeBytes,
		f.ModTime.Format(time.RFC3339Nano), f.ScanTime.Format(time.RFC3339Nano),
	)
	return inserted, err
}

// SweepStale deletes every row whose scan_time is older than cutoff,
// i.e. files that were not observed in the most recent walk, and
// returns their relative paths so callers can publish removal events.
func (s *Store) SweepStale(ctx context.Context, tx *sql.Tx, cutoff time.Time) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT rel_path FROM media_files WHERE scan_time < ?`, cutoff.Format(time.RFC3339Nano))
	if err != nil {
		return nil, err
	}
	var stale []string
	for rows.Next() {
		var rel string
		if err := rows.Scan(&rel); err != nil {
			_ = rows.Close()
			return nil, err
		}
		stale = append(stale, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	_ = rows.Close()

	if len(stale) == 0 {
		return nil, nil
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM media_files WHERE scan_time < ?`, cutoff.Format(time.RFC3339Nano)); err != nil {
		return nil, err
	}
	return stale, nil
}

// Get retrieves a single file by relative path, or nil if not found.
func (s *Store) Get(ctx context.Context, relPath string) (*File, error) {
	var f File
	var modTimeStr, scanTimeStr string
	err := s.db.QueryRowContext(ctx, `
	SELECT rel_path, filename, ext, size_bytes, mod_time, scan_time
	FROM media_files WHERE rel_path = ?
	`, relPath).Scan(&f.RelPath, &f.Filename, &f.Ext, &f.SizeBytes, &modTimeStr, &scanTimeStr)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	f.ModTime, _ = time.Parse(time.RFC3339Nano, modTimeStr)
	f.ScanTime, _ = time.Parse(time.RFC3339Nano, scanTimeStr)
	return &f, nil
}

// Remove deletes a file from the inventory by relative path.
func (s *Store) Remove(ctx context.Context, relPath string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM media_files WHERE rel_path = ?`, relPath)
	return err
}

// ListDir returns every file whose Dir() equals dir (non-recursive),
// ordered by relative path.
func (s *Store) ListDir(ctx context.Context, dir string) ([]File, error) {
	return s.listWhere(ctx, `rel_path LIKE ? AND rel_path NOT LIKE ?`, dirPrefix(dir)+"%", dirPrefix(dir)+"%/%")
}

// ListUnderDir returns every file that is a descendant of dir
// (recursive), ordered by relative path.
func (s *Store) ListUnderDir(ctx context.Context, dir string) ([]File, error) {
	return s.listWhere(ctx, `rel_path LIKE ?`, dirPrefix(dir)+"%")
}

// ListAll returns every file in the inventory, ordered by relative path.
func (s *Store) ListAll(ctx context.Context) ([]File, error) {
	return s.listWhere(ctx, `1 = 1`)
}

func (s *Store) listWhere(ctx context.Context, where string, args ...any) ([]File, error) {
	query := fmt.Sprintf(`
	SELECT rel_path, filename, ext, size_bytes, mod_time, scan_time
	FROM media_files WHERE %s ORDER BY rel_path
	`, where)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var files []File
	for rows.Next() {
		var f File
		var modTimeStr, scanTimeStr string
		if err := rows.Scan(&f.RelPath, &f.Filename, &f.Ext, &f.SizeBytes, &modTimeStr, &scanTimeStr); err != nil {
			return nil, err
		}
		f.ModTime, _ = time.Parse(time.RFC3339Nano, modTimeStr)
		f.ScanTime, _ = time.Parse(time.RFC3339Nano, scanTimeStr)
		files = append(files, f)
	}
	return files, rows.Err()
}

// dirPrefix returns the LIKE prefix matching files directly under dir
// ("" for the root itself).
func dirPrefix(dir string) string {
	if dir == "" {
		return ""
	}
	return dir + "/"
}
