package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNoDatabase = errors.New("database url is required")

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	if databaseURL == "" {
		return nil, ErrNoDatabase
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}

// Migrate creates the provider registry tables. Statements are idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS llm_providers (
		id BIGSERIAL PRIMARY KEY,
		provider_name TEXT NOT NULL,
		api_key TEXT NOT NULL,
		model_name TEXT NOT NULL,
		base_url TEXT NOT NULL DEFAULT '',
		temperature DOUBLE PRECISION NOT NULL DEFAULT 0.3,
		max_tokens INTEGER NOT NULL DEFAULT 500,
		cost_per_1k_input DOUBLE PRECISION NOT NULL DEFAULT 0,
		cost_per_1k_output DOUBLE PRECISION NOT NULL DEFAULT 0,
		max_requests_per_minute INTEGER NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		is_default BOOLEAN NOT NULL DEFAULT FALSE,
		health_status TEXT NOT NULL DEFAULT 'unknown',
		last_health_check TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS llm_usage_logs (
		id BIGSERIAL PRIMARY KEY,
		provider_id BIGINT NOT NULL REFERENCES llm_providers(id) ON DELETE CASCADE,
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		total_tokens INTEGER NOT NULL DEFAULT 0,
		input_cost DOUBLE PRECISION NOT NULL DEFAULT 0,
		output_cost DOUBLE PRECISION NOT NULL DEFAULT 0,
		total_cost DOUBLE PRECISION NOT NULL DEFAULT 0,
		response_time_ms BIGINT NOT NULL DEFAULT 0,
		success BOOLEAN NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		feature_used TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS llm_provider_health (
		id BIGSERIAL PRIMARY KEY,
		provider_id BIGINT NOT NULL REFERENCES llm_providers(id) ON DELETE CASCADE,
		check_time TIMESTAMPTZ NOT NULL,
		status TEXT NOT NULL,
		latency_ms BIGINT NOT NULL DEFAULT 0,
		error_message TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}
