package registry

import (
	"context"
	"database/sql"
	"fmt"

	"trackgen/internal/tracking/models"
	"trackgen/pkg/platform/sentinel"
)

// Schema creates the durable registry table.
const Schema = `
CREATE TABLE IF NOT EXISTS tracking_numbers (
	tracking_number CHAR(16) PRIMARY KEY,
	recorded_at     TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const (
	existsQuery = `SELECT EXISTS (SELECT 1 FROM tracking_numbers WHERE tracking_number = $1)`
	recordQuery = `INSERT INTO tracking_numbers (tracking_number) VALUES ($1) ON CONFLICT (tracking_number) DO NOTHING`
)

// PostgresRegistry persists issued codes in PostgreSQL.
type PostgresRegistry struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed registry.
func NewPostgres(db *sql.DB) *PostgresRegistry {
	return &PostgresRegistry{db: db}
}

// EnsureSchema creates the registry table if it does not exist.
func (r *PostgresRegistry) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create tracking_numbers table: %w", err)
	}
	return nil
}

func (r *PostgresRegistry) Exists(ctx context.Context, code models.TrackingNumber) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, existsQuery, string(code)).Scan(&exists); err != nil {
		return false, fmt.Errorf("check tracking number %s: %w: %w", code, sentinel.ErrUnavailable, err)
	}
	return exists, nil
}

// Record relies on the primary key: a conflicting insert affects zero rows.
func (r *PostgresRegistry) Record(ctx context.Context, code models.TrackingNumber) error {
	res, err := r.db.ExecContext(ctx, recordQuery, string(code))
	if err != nil {
		return fmt.Errorf("record tracking number %s: %w: %w", code, sentinel.ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record tracking number %s: %w: %w", code, sentinel.ErrUnavailable, err)
	}
	if n == 0 {
		return fmt.Errorf("record tracking number %s: %w", code, sentinel.ErrConflict)
	}
	return nil
}
