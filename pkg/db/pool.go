// Package db provides the Postgres side of the gateway: pgx pooling, migrations, the
// properties-backed Config Store and the cache_entries cache.
package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const logPrefix = "db:pool"

// Pool sizing. The gateway's queries are single-row lookups, so a small pool is enough.
const (
	poolMaxConns = 10
	poolMinConns = 1
	connectWait  = 10 * time.Second
)

// NewPool opens a pgx pool for databaseURL and pings it before returning.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to parse database URL: %w", logPrefix, err)
	}
	cfg.MaxConns = poolMaxConns
	cfg.MinConns = poolMinConns
	slog.Info(fmt.Sprintf("%s - Connecting to %s:%d/%s", logPrefix, cfg.ConnConfig.Host, cfg.ConnConfig.Port, cfg.ConnConfig.Database))

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to create pool: %w", logPrefix, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectWait)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s - failed to ping database: %w", logPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Database connection established", logPrefix))
	return pool, nil
}

// RunMigrations executes each SQL body in order and stops at the first failure.
func RunMigrations(ctx context.Context, db DBTX, migrations []string) error {
	slog.Info(fmt.Sprintf("%s - Running %d migrations", logPrefix, len(migrations)))
	for i, sql := range migrations {
		if _, err := db.Exec(ctx, sql); err != nil {
			return fmt.Errorf("%s - migration %d of %d failed: %w", logPrefix, i+1, len(migrations), err)
		}
	}
	slog.Info(fmt.Sprintf("%s - Migrations complete", logPrefix))
	return nil
}

// MigrationStatus prints whether the gateway schema (properties and cache_entries) is present.
func MigrationStatus(ctx context.Context, pool *pgxpool.Pool, migrationPath string) error {
	const statusLogPrefix = "db:MigrationStatus"

	var tables int
	err := pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM information_schema.tables
		 WHERE table_schema = 'public' AND table_name IN ('properties', 'cache_entries')`).Scan(&tables)
	if err != nil {
		return fmt.Errorf("%s - failed to check schema: %w", statusLogPrefix, err)
	}

	files, err := LoadMigrationFiles(migrationPath)
	if err != nil {
		return fmt.Errorf("%s - load migration list: %w", statusLogPrefix, err)
	}

	switch tables {
	case 2:
		fmt.Printf("Migration status: applied (schema present, %d migration files in %s)\n", len(files), migrationPath)
	case 0:
		fmt.Printf("Migration status: not applied (run 'action-gateway migrate up'). %d migration files in %s\n", len(files), migrationPath)
	default:
		fmt.Printf("Migration status: partial (%d of 2 tables present, %d migration files in %s)\n", tables, len(files), migrationPath)
	}
	return nil
}
