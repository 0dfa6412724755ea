// Package database provides PostgreSQL storage for profiles and partner matches.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"studybuddy-matcher/internal/config"
)

// DB holds the database connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// New creates a new database connection.
func New(cfg *config.Config) (*DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// NewFromURL creates a new database connection from a URL string.
func NewFromURL(databaseURL string) (*DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the database connection pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// HealthCheck verifies database connectivity.
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// ExecContext executes a query that doesn't return rows.
func (db *DB) ExecContext(ctx context.Context, sql string, args ...any) (int64, error) {
	result, err := db.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

// QueryRowContext executes a query that returns a single row.
func (db *DB) QueryRowContext(ctx context.Context, sql string, args ...any) pgx.Row {
	return db.pool.QueryRow(ctx, sql, args...)
}

// QueryContext executes a query that returns rows.
func (db *DB) QueryContext(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return db.pool.Query(ctx, sql, args...)
}

// WithTransaction executes a function within a transaction.
func (db *DB) WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	uid             TEXT PRIMARY KEY,
	name            TEXT NOT NULL DEFAULT '',
	school          TEXT NOT NULL DEFAULT '',
	email           TEXT NOT NULL DEFAULT '',
	academic_level  TEXT NOT NULL DEFAULT '',
	region          TEXT NOT NULL,
	subjects        TEXT[] NOT NULL DEFAULT '{}',
	study_style     TEXT[] NOT NULL DEFAULT '{}',
	preferred_time  TEXT[] NOT NULL DEFAULT '{}',
	group_size      TEXT NOT NULL DEFAULT '',
	session_length  TEXT NOT NULL DEFAULT '',
	weekdays        TEXT[] NOT NULL DEFAULT '{}',
	weekends        TEXT[] NOT NULL DEFAULT '{}',
	notifications   BOOLEAN NOT NULL DEFAULT TRUE,
	visibility      TEXT NOT NULL DEFAULT 'public',
	matching_radius INTEGER NOT NULL DEFAULT 25,
	languages       TEXT[] NOT NULL DEFAULT '{}',
	batch_id        TEXT NOT NULL DEFAULT '',
	is_active       BOOLEAN NOT NULL DEFAULT TRUE,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS partner_matches (
	id            BIGSERIAL PRIMARY KEY,
	requester_uid TEXT NOT NULL REFERENCES profiles(uid) ON DELETE CASCADE,
	candidate_uid TEXT NOT NULL REFERENCES profiles(uid) ON DELETE CASCADE,
	score         INTEGER NOT NULL CHECK (score BETWEEN 0 AND 100),
	color_tag     TEXT NOT NULL,
	reasons       TEXT[] NOT NULL DEFAULT '{}',
	breakdown     JSONB NOT NULL,
	computed_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (requester_uid, candidate_uid)
);

CREATE INDEX IF NOT EXISTS idx_partner_matches_requester ON partner_matches (requester_uid, score DESC);
`

// Migrate creates the tables used by the matcher if they do not exist.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// isNoRows reports whether err means the query matched nothing.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
