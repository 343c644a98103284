// Package snapshot caches the last successfully fetched dashboard data in a
// local SQLite database so the console can still render tool and incident
// state while the backend is unreachable.
package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNoSnapshot is returned when no cached copy exists for a collection.
var ErrNoSnapshot = errors.New("no snapshot for collection")

// Store persists one JSON payload per collection.
//
// WAL is enabled so a watch session can read while a refresh writes.
type Store struct {
	db *sql.DB
}

// Open opens or creates the snapshot database at path.
func Open(path string) (*Store, error) {
	p := filepath.Clean(strings.TrimSpace(path))
	if p == "" {
		return nil, errors.New("missing snapshot db path")
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put stores v as the cached payload for collection, replacing any previous
// snapshot.
func (s *Store) Put(ctx context.Context, collection string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot %q: %w", collection, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (collection, payload, fetched_at_unix_ms)
		VALUES (?, ?, ?)
		ON CONFLICT(collection) DO UPDATE SET
			payload = excluded.payload,
			fetched_at_unix_ms = excluded.fetched_at_unix_ms
	`, collection, payload, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to store snapshot %q: %w", collection, err)
	}
	return nil
}

// Get decodes the cached payload for collection into v and returns when it
// was fetched. Returns ErrNoSnapshot when nothing is cached.
func (s *Store) Get(ctx context.Context, collection string, v any) (time.Time, error) {
	var payload []byte
	var fetchedMs int64
	err := s.db.QueryRowContext(ctx, `
		SELECT payload, fetched_at_unix_ms FROM snapshots WHERE collection = ?
	`, collection).Scan(&payload, &fetchedMs)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, fmt.Errorf("%w: %s", ErrNoSnapshot, collection)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to load snapshot %q: %w", collection, err)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return time.Time{}, fmt.Errorf("failed to decode snapshot %q: %w", collection, err)
	}
	return time.UnixMilli(fetchedMs), nil
}

func initSchema(db *sql.DB) error {
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return fmt.Errorf("pragma journal_mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=3000;`); err != nil {
		return fmt.Errorf("pragma busy_timeout: %w", err)
	}
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			collection TEXT PRIMARY KEY,
			payload BLOB NOT NULL,
			fetched_at_unix_ms INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create snapshots table: %w", err)
	}
	return nil
}
