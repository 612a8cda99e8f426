package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on a single SQLite table.
type SQLiteStore struct {
	conn *sql.DB
}

// sqliteMigrations are applied in order; PRAGMA user_version records how many ran.
var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS kv (
		key        TEXT PRIMARY KEY,
		value      BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
}

// NewSQLiteStore creates or opens a SQLite database at path.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, &StorageError{Op: "open", Backend: "sqlite", Err: ErrInvalidInput}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &StorageError{Op: "open", Backend: "sqlite", Err: fmt.Errorf("creating data directory: %w", err)}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &StorageError{Op: "open", Backend: "sqlite", Err: err}
	}
	// A single connection keeps writes serialized.
	conn.SetMaxOpenConns(1)

	if _, err := conn.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, &StorageError{Op: "open", Backend: "sqlite", Err: fmt.Errorf("setting journal mode: %w", err)}
	}
	if err := migrateSQLite(ctx, conn); err != nil {
		conn.Close()
		return nil, &StorageError{Op: "migrate", Backend: "sqlite", Err: err}
	}

	return &SQLiteStore{conn: conn}, nil
}

func migrateSQLite(ctx context.Context, conn *sql.DB) error {
	var current int
	if err := conn.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for i := current; i < len(sqliteMigrations); i++ {
		if _, err := conn.ExecContext(ctx, sqliteMigrations[i]); err != nil {
			return fmt.Errorf("applying migration %d: %w", i+1, err)
		}
		if _, err := conn.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			return fmt.Errorf("stamping version %d: %w", i+1, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.conn.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &StorageError{Op: "get", Backend: "sqlite", Key: key, Err: ErrNotFound}
	}
	if err != nil {
		return nil, &StorageError{Op: "get", Backend: "sqlite", Key: key, Err: err}
	}
	return value, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	if !validKey(key) {
		return &StorageError{Op: "set", Backend: "sqlite", Err: ErrInvalidInput}
	}
	if value == nil {
		value = []byte{}
	}
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Unix())
	if err != nil {
		return &StorageError{Op: "set", Backend: "sqlite", Key: key, Err: err}
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.conn.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return &StorageError{Op: "delete", Backend: "sqlite", Key: key, Err: err}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}
