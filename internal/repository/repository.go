// Package repository stores the connected Gmail token and reads the
// account sentiment change feed from PostgreSQL.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolOptions sizes the connection pool. Zero values keep pgxpool defaults.
type PoolOptions struct {
	MaxConns        int32
	MinConns        int32
	MaxConnIdleTime time.Duration
}

// Repository owns the pgx pool behind the token store and the change feed.
type Repository struct {
	pool *pgxpool.Pool
}

// New connects to databaseURL and pings it before returning.
func New(ctx context.Context, databaseURL string, opts PoolOptions) (*Repository, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	opts.apply(poolCfg)

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

func (o PoolOptions) apply(cfg *pgxpool.Config) {
	if o.MaxConns > 0 {
		cfg.MaxConns = o.MaxConns
	}
	if o.MinConns > 0 && o.MinConns <= cfg.MaxConns {
		cfg.MinConns = o.MinConns
	}
	if o.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = o.MaxConnIdleTime
	}
}

// Ping is the readiness check for /readyz.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close releases every pooled connection.
func (r *Repository) Close() {
	r.pool.Close()
}

// Pool exposes the pool to migration helpers in tests.
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}
