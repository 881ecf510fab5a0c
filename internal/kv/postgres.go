package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shippingbox/internal/db"
)

// Postgres keeps values in the kv_store table and locks the row for the
// duration of an Update, so writers on different hosts queue up.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to databaseURL and initializes the schema.
func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := db.NewPool(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres store: %w", err)
	}
	s, err := NewPostgres(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgres wraps an existing pool and creates kv_store if missing.
func NewPostgres(ctx context.Context, pool *pgxpool.Pool) (*Postgres, error) {
	if pool == nil {
		return nil, errors.New("postgres store: pool is nil")
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return nil, fmt.Errorf("postgres store: create schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var v *string
	err := p.pool.QueryRow(ctx, `SELECT value FROM kv_store WHERE key = $1`, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("postgres store: get %q: %w", key, err)
	}
	if v == nil {
		return nil, false, nil
	}
	return []byte(*v), true, nil
}

func (p *Postgres) Update(ctx context.Context, key string, fn UpdateFunc) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres store: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Make sure a row exists so FOR UPDATE has something to lock.
	if _, err := tx.Exec(ctx, `INSERT INTO kv_store (key, value) VALUES ($1, NULL) ON CONFLICT (key) DO NOTHING`, key); err != nil {
		return fmt.Errorf("postgres store: reserve %q: %w", key, err)
	}
	var v *string
	if err := tx.QueryRow(ctx, `SELECT value FROM kv_store WHERE key = $1 FOR UPDATE`, key).Scan(&v); err != nil {
		return fmt.Errorf("postgres store: lock %q: %w", key, err)
	}
	var old []byte
	if v != nil {
		old = []byte(*v)
	}
	next, err := fn(old, v != nil)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE kv_store SET value = $2 WHERE key = $1`, key, string(next)); err != nil {
		return fmt.Errorf("postgres store: write %q: %w", key, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres store: commit %q: %w", key, err)
	}
	return nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
