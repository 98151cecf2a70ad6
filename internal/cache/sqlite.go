package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite persists entries in a single table so a restarted server keeps
// its warm cache.
type SQLite struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS fetch_cache (
	key TEXT PRIMARY KEY,
	body BLOB NOT NULL,
	expires_at INTEGER NOT NULL
) WITHOUT ROWID;
CREATE INDEX IF NOT EXISTS idx_fetch_cache_expires ON fetch_cache(expires_at);
`

// OpenSQLite opens (or creates) the cache database at path and drops rows
// that expired while it was closed.
func OpenSQLite(ctx context.Context, path string, ttl time.Duration, opts ...Option) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// Single connection; concurrent writers otherwise see SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	o := buildOptions(opts)
	s := &SQLite{db: db, ttl: ttl, now: o.now}
	if _, err := s.Purge(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Get returns the body under key unless it has expired.
func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		body      []byte
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT body, expires_at FROM fetch_cache WHERE key = ?`, key).Scan(&body, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query cache %s: %w", key, err)
	}
	if s.now().UnixMilli() >= expiresAt {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM fetch_cache WHERE key = ? AND expires_at <= ?`, key, expiresAt); err != nil {
			return nil, false, fmt.Errorf("evict cache %s: %w", key, err)
		}
		return nil, false, nil
	}
	return body, true, nil
}

// Put stores body under key, replacing any previous entry.
func (s *SQLite) Put(ctx context.Context, key string, body []byte) error {
	if s.ttl <= 0 {
		return nil
	}
	expiresAt := s.now().Add(s.ttl).UnixMilli()
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO fetch_cache (key, body, expires_at) VALUES (?, ?, ?)`,
		key, body, expiresAt); err != nil {
		return fmt.Errorf("store cache %s: %w", key, err)
	}
	return nil
}

// Purge deletes expired rows and reports how many were removed.
func (s *SQLite) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM fetch_cache WHERE expires_at <= ?`, s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge cache: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
