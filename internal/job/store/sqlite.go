// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mediavault/core/internal/job"

	_ "modernc.org/sqlite" // pure-Go SQLite driver, no cgo
)

// SQLiteStore is the durable Store, grounded on internal/media.Store's
// WAL-mode DSN and migration shape.
type SQLiteStore struct {
	db               *sql.DB
	retentionHorizon time.Duration
}

// NewSQLiteStore opens (creating if necessary) the job database at
// dbPath. retentionHorizon bounds how long terminal records survive:
// LoadNonTerminalAsPaused deletes older ones; zero disables pruning.
func NewSQLiteStore(dbPath string, retentionHorizon time.Duration) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db, retentionHorizon: retentionHorizon}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id         TEXT PRIMARY KEY,
		task       TEXT NOT NULL,
		target     TEXT NOT NULL,
		artifact   TEXT NOT NULL,
		params     TEXT NOT NULL,
		state      TEXT NOT NULL,
		paused     INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		started_at TEXT,
		ended_at   TEXT,
		progress   INTEGER,
		processed  INTEGER NOT NULL,
		total      INTEGER NOT NULL,
		error      TEXT NOT NULL,
		result     TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_jobs_state ON jobs(state);
	CREATE INDEX IF NOT EXISTS idx_jobs_target ON jobs(target);
	`
	_, err := s.db.Exec(schema)
	return err
}

func timeOrNull(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(time.RFC3339Nano)
}

func (s *SQLiteStore) Enqueue(ctx context.Context, rec *job.Record) error {
	return s.write(ctx, rec)
}

func (s *SQLiteStore) write(ctx context.Context, rec *job.Record) error {
	params, err := json.Marshal(rec.Params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	result, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	var progress any
	if rec.Progress != nil {
		progress = *rec.Progress
	}

	_, err = s.db.ExecContext(ctx, `
	INSERT INTO jobs (id, task, target, artifact, params, state, paused, created_at, started_at, ended_at, progress, processed, total, error, result)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		task=excluded.task, target=excluded.target, artifact=excluded.artifact,
		params=excluded.params, state=excluded.state, paused=excluded.paused,
		created_at=excluded.created_at, started_at=excluded.started_at, ended_at=excluded.ended_at,
		progress=excluded.progress, processed=excluded.processed, total=excluded.total,
		error=excluded.error, result=excluded.result
	`,
		rec.ID, rec.Task, rec.Target, rec.Artifact, string(params), string(rec.State), rec.Paused,
		timeOrNull(rec.Created), timeOrNull(rec.Started), timeOrNull(rec.Ended),
		progress, rec.Processed, rec.Total, rec.Error, string(result),
	)
	return err
}

func (s *SQLiteStore) Update(ctx context.Context, id string, fn func(*job.Record) error) (*job.Record, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(rec); err != nil {
		return nil, err
	}
	if err := s.write(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func scanRecord(row interface {
	Scan(dest ...any) error
}) (*job.Record, error) {
	var rec job.Record
	var paramsStr, resultStr, state string
	var createdStr string
	var startedStr, endedStr sql.NullString
	var progress sql.NullInt64

	err := row.Scan(
		&rec.ID, &rec.Task, &rec.Target, &rec.Artifact, &paramsStr, &state, &rec.Paused,
		&createdStr, &startedStr, &endedStr, &progress, &rec.Processed, &rec.Total,
		&rec.Error, &resultStr,
	)
	if err != nil {
		return nil, err
	}

	rec.State = job.State(state)
	rec.Created, _ = time.Parse(time.RFC3339Nano, createdStr)
	if startedStr.Valid {
		rec.Started, _ = time.Parse(time.RFC3339Nano, startedStr.String)
	}
	if endedStr.Valid {
		rec.Ended, _ = time.Parse(time.RFC3339Nano, endedStr.String)
	}
	if progress.Valid {
		p := int(progress.Int64)
		rec.Progress = &p
	}
	if err := json.Unmarshal([]byte(paramsStr), &rec.Params); err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	if err := json.Unmarshal([]byte(resultStr), &rec.Result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return &rec, nil
}

const selectColumns = `id, task, target, artifact, params, state, paused, created_at, started_at, ended_at, progress, processed, total, error, result`

func (s *SQLiteStore) Get(ctx context.Context, id string) (*job.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM jobs WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return rec, err
}

func (s *SQLiteStore) List(ctx context.Context, f job.Filter) ([]*job.Record, error) {
	query := `SELECT ` + selectColumns + ` FROM jobs WHERE 1=1`
	var args []any
	if len(f.States) > 0 {
		query += ` AND state IN (` + placeholders(len(f.States)) + `)`
		for _, st := range f.States {
			args = append(args, string(st))
		}
	}
	if f.Target != "" {
		query += ` AND target = ?`
		args = append(args, f.Target)
	}
	if f.Task != "" {
		query += ` AND task = ?`
		args = append(args, f.Task)
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*job.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			out += ","
		}
		out += "?"
	}
	return out
}

func (s *SQLiteStore) CancelQueuedAll(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM jobs WHERE state = ?`, string(job.StateQueued))
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := s.db.ExecContext(ctx, `UPDATE jobs SET state = ? WHERE state = ?`, string(job.StateCanceled), string(job.StateQueued)); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *SQLiteStore) ClearFinished(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE state IN (?, ?, ?)`,
		string(job.StateCompleted), string(job.StateFailed), string(job.StateCanceled))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *SQLiteStore) LoadNonTerminalAsPaused(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
	UPDATE jobs SET state = ?, paused = 1
	WHERE state NOT IN (?, ?, ?)
	`, string(job.StateQueued), string(job.StateCompleted), string(job.StateFailed), string(job.StateCanceled))
	if err != nil {
		return err
	}

	if s.retentionHorizon <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-s.retentionHorizon).Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx, `
	DELETE FROM jobs WHERE state IN (?, ?, ?) AND ended_at IS NOT NULL AND ended_at < ?
	`, string(job.StateCompleted), string(job.StateFailed), string(job.StateCanceled), cutoff)
	return err
}
