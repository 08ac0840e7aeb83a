// Package ledger persists the lifecycle of grading runs: run records,
// finished reports, a URL-to-report cache, per-IP rate limit counters and
// admin prompt overrides. Every record carries an expiry and expired rows
// are never served.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Record lifetimes.
const (
	TTLRun       = 90 * 24 * time.Hour
	TTLReport    = 90 * 24 * time.Hour
	TTLURLCache  = 7 * 24 * time.Hour
	TTLRateLimit = time.Hour
)

// MaxIndexedRuns bounds the run index; older runs beyond it are pruned.
const MaxIndexedRuns = 1000

// RateLimitCap is the number of runs a single IP may start per window.
const RateLimitCap = 5

// Store wraps a PostgreSQL connection pool
type Store struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close closes the connection pool
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS grader_runs (
	id         TEXT PRIMARY KEY,
	store_url  TEXT NOT NULL,
	status     TEXT NOT NULL,
	source     TEXT NOT NULL,
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	expires_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS grader_runs_created_idx ON grader_runs (created_at DESC);

CREATE TABLE IF NOT EXISTS grader_reports (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL,
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS grader_url_cache (
	url_hash   TEXT PRIMARY KEY,
	report_id  TEXT NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS grader_rate_limits (
	key               TEXT PRIMARY KEY,
	count             INTEGER NOT NULL,
	window_started_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS grader_prompts (
	key        TEXT PRIMARY KEY,
	content    TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS grader_prompt_history (
	id         BIGSERIAL PRIMARY KEY,
	key        TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS grader_prompt_history_key_idx
	ON grader_prompt_history (key, created_at DESC);
`

// Migrate creates the ledger tables if they do not exist
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to run ledger migrations: %w", err)
	}
	return nil
}
