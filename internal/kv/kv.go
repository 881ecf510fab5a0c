// Package kv holds the key-value backends that box records are persisted in.
//
// Every backend stores opaque blobs under string keys and offers one atomic
// read-modify-write primitive, Update, so that callers appending to a blob
// never lose a concurrent writer's change.
package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownDriver is returned by Open for an unsupported driver name.
	ErrUnknownDriver = errors.New("unknown store driver")
	// ErrConflict is returned when an optimistic update kept losing races.
	ErrConflict = errors.New("concurrent update conflict")
)

// UpdateFunc receives the current value (found is false when the key is
// absent) and returns the value to store. Returning an error aborts the
// update and leaves the stored value untouched.
type UpdateFunc func(old []byte, found bool) ([]byte, error)

// Store is a key-value backend.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Update(ctx context.Context, key string, fn UpdateFunc) error
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Driver      string
	Path        string
	DatabaseURL string
	RedisAddr   string
}

// Open returns the backend named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		s   Store
		err error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "memory":
		s = NewMemory()
	case "file", "":
		s, err = NewFile(cfg.Path)
	case "sqlite":
		s, err = OpenSQLite(ctx, cfg.Path)
	case "postgres":
		s, err = OpenPostgres(ctx, cfg.DatabaseURL)
	case "redis":
		s, err = OpenRedis(ctx, cfg.RedisAddr)
	default:
		return nil, fmt.Errorf("open store %q: %w", cfg.Driver, ErrUnknownDriver)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
