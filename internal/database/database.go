// Package database wraps PostgreSQL access behind a package-level pool and
// free query functions, one per persistent entity.
package database

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

//go:embed schema.sql
var schema string

// DB is the shared connection pool. Callers guard on nil so the match logic
// stays runnable without a database (tests, local tooling).
var DB *pgxpool.Pool

// Connect opens the pool and verifies the connection.
func Connect(ctx context.Context, databaseURL string) error {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	DB = pool
	logrus.Info("database connected")
	return nil
}

// EnsureSchema applies the idempotent schema.
func EnsureSchema(ctx context.Context) error {
	if _, err := DB.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close releases the pool.
func Close() {
	if DB != nil {
		DB.Close()
		DB = nil
	}
}
