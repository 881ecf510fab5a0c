package kv

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"shippingbox/internal/db"
)

//go:embed schema.sql
var schemaSQL string

// SQLite keeps values in the kv_store table of a SQLite database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens the database at path and initializes the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		path = filepath.Join("data", "shippingbox.db")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite store: create dir: %w", err)
		}
	}
	conn, err := db.OpenSQLite(ctx, path)
	if err != nil {
		return nil, err
	}
	s, err := NewSQLite(ctx, conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLite wraps an open database and creates kv_store if missing.
func NewSQLite(ctx context.Context, conn *sql.DB) (*SQLite, error) {
	if conn == nil {
		return nil, errors.New("sqlite store: DB is nil")
	}
	if _, err := conn.ExecContext(ctx, schemaSQL); err != nil {
		return nil, fmt.Errorf("sqlite store: create schema: %w", err)
	}
	return &SQLite{db: conn}, nil
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var v sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlite store: get %q: %w", key, err)
	}
	if !v.Valid {
		return nil, false, nil
	}
	return []byte(v.String), true, nil
}

func (s *SQLite) Update(ctx context.Context, key string, fn UpdateFunc) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite store: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var v sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = ?`, key).Scan(&v)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("sqlite store: read %q: %w", key, err)
	}
	var old []byte
	if v.Valid {
		old = []byte(v.String)
	}
	next, err := fn(old, v.Valid)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO kv_store (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, string(next))
	if err != nil {
		return fmt.Errorf("sqlite store: write %q: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite store: commit: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error { return s.db.Close() }
