// Package database owns the PostgreSQL connection pool, schema migrations and
// transaction handling.
package database

import (
	"context"
	"fmt"
	"time"

	"innerbloom-server/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const connectTimeout = 10 * time.Second

// NewPool connects to cfg.DatabaseURL and pings the server once.
func NewPool(ctx context.Context, cfg config.Config, log *zap.Logger) (*pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	if cfg.DBMaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.DBMaxConns)
	}
	if cfg.DBIdleTimeout > 0 {
		poolConfig.MaxConnIdleTime = cfg.DBIdleTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	log.Info("Connected to PostgreSQL",
		zap.Int32("max_conns", poolConfig.MaxConns),
		zap.Duration("max_conn_idle_time", poolConfig.MaxConnIdleTime))
	return pool, nil
}
