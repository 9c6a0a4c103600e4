// Package postgres opens the database/sql pool used by the durable registry.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"trackgen/internal/platform/config"
)

// DB wraps *sql.DB with health checking.
type DB struct {
	*sql.DB
}

// Open connects using lib/pq. Returns nil if the DSN is empty.
func Open(ctx context.Context, cfg config.PostgresConfig) (*DB, error) {
	if cfg.DSN == "" {
		return nil, nil
	}
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return &DB{DB: db}, nil
}

// Health checks if the database is reachable.
func (d *DB) Health(ctx context.Context) error {
	return d.PingContext(ctx)
}
