// Package repository provides read access to the external profile store.
// Profiles, links, and access tokens are written by the main product; this
// service only resolves handles, tiers, and token candidates from them.
package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool sizing fallbacks. The workload is short point reads on the track
// and auth paths, so a small pool is enough.
const (
	defaultMaxConns int32 = 10
	defaultMinConns int32 = 2
)

// Config controls the profile store connection pool.
type Config struct {
	URL      string
	MaxConns int32
	MinConns int32
}

// Repository reads profile store rows over a pgx connection pool.
type Repository struct {
	pool *pgxpool.Pool
}

// New connects to the profile store and verifies the connection.
// Zero pool bounds fall back to the defaults.
func New(ctx context.Context, cfg Config) (*Repository, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	if poolCfg.MaxConns <= 0 {
		poolCfg.MaxConns = defaultMaxConns
	}
	poolCfg.MinConns = cfg.MinConns
	if poolCfg.MinConns <= 0 {
		poolCfg.MinConns = defaultMinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{pool: pool}, nil
}

// Ping checks profile store connectivity. Used by the readiness probe.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the connection pool.
func (r *Repository) Close() {
	r.pool.Close()
}

// Pool returns the underlying connection pool. Integration tests use it
// for schema setup and seeding; handlers go through Repository methods.
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}
