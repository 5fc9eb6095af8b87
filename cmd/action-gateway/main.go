// Package main is the entrypoint for the action-gateway.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morezero/action-gateway/internal/config"
	"github.com/morezero/action-gateway/internal/server"
	"github.com/morezero/action-gateway/pkg/bootstrap"
	"github.com/morezero/action-gateway/pkg/db"
	"github.com/morezero/action-gateway/pkg/redact"
)

const usage = `Usage: action-gateway [command]

Commands:
  serve                 (default) Start the gateway (HTTP, optional NATS dispatch and audit events).
  migrate up            Run database migrations.
  migrate status        Show migration status.
  ensure-db [name]      Create the database if missing. Default name comes from DATABASE_URL.
  seed [file]           Write bootstrap properties into the Postgres Config Store.
  clear-cache           Delete every cache entry; schema is preserved.
  props list            List Config Store properties (sensitive values masked).
  props get KEY         Print one property.
  props set KEY VALUE   Create or update one property.
  help                  Show this message.

Environment: DATABASE_URL, MIGRATION_PATH, BOOTSTRAP_FILE, HTTP_PORT, COMMS_URL, STORE_BACKEND,
CACHE_BACKEND, LOG_LEVEL. See README for the full list.
`

var errUsage = errors.New("invalid usage")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "%v\n%s", err, usage)
			os.Exit(2)
		}
		log.Fatalf("action-gateway: %v", err)
	}
}

func run(args []string, out io.Writer) error {
	cmd := ""
	if len(args) > 0 {
		cmd = args[0]
	}

	switch cmd {
	case "serve", "":
		return server.Run()
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	case "migrate":
		if len(args) < 2 {
			return fmt.Errorf("%w: migrate requires a subcommand (up, status)", errUsage)
		}
		switch args[1] {
		case "up":
			return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				return db.ApplyMigrations(ctx, pool, cfg.MigrationPath)
			})
		case "status":
			return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				return db.MigrationStatus(ctx, pool, cfg.MigrationPath)
			})
		default:
			return fmt.Errorf("%w: unknown migrate subcommand %q (use up, status)", errUsage, args[1])
		}
	case "ensure-db":
		name := ""
		if len(args) > 1 {
			name = args[1]
		}
		return runEnsureDB(out, name)
	case "seed":
		file := ""
		if len(args) > 1 {
			file = args[1]
		}
		return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
			return runSeed(ctx, out, pool, file, cfg.BootstrapFile)
		})
	case "clear-cache":
		return withPool(func(ctx context.Context, _ *config.Config, pool *pgxpool.Pool) error {
			n, err := db.ClearCache(ctx, pool)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Cleared %d cache entries.\n", n)
			return nil
		})
	case "props":
		return runProps(args[1:], out)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

// withPool loads config, opens a pool for the duration of fn and closes it afterwards.
func withPool(fn func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	return fn(ctx, cfg, pool)
}

func runEnsureDB(out io.Writer, name string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	target := cfg.DatabaseURL
	if name != "" {
		if target, err = db.WithDatabaseName(cfg.DatabaseURL, name); err != nil {
			return err
		}
	}
	if err := db.EnsureDatabase(context.Background(), target); err != nil {
		return err
	}
	fmt.Fprintln(out, "Database is ready.")
	return nil
}

func runSeed(ctx context.Context, out io.Writer, pool *pgxpool.Pool, file, fallback string) error {
	path := file
	if path == "" {
		path = fallback
	}
	boot, err := bootstrap.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("load bootstrap: %w", err)
	}
	n, err := db.SeedProperties(ctx, db.NewPropertyStore(pool), boot)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Seeded %d properties.\n", n)
	return nil
}

func runProps(args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: props requires a subcommand (list, get, set)", errUsage)
	}
	switch {
	case args[0] == "list" && len(args) == 1:
	case args[0] == "get" && len(args) == 2:
	case args[0] == "set" && len(args) == 3:
	default:
		return fmt.Errorf("%w: props %v", errUsage, args)
	}

	return withPool(func(ctx context.Context, _ *config.Config, pool *pgxpool.Pool) error {
		store := db.NewPropertyStore(pool)
		switch args[0] {
		case "list":
			list, err := store.List(ctx)
			if err != nil {
				return err
			}
			for _, p := range list {
				fmt.Fprintf(out, "%s=%v\n", p.Key, redact.MaskValue(p.Key, p.Value))
			}
			return nil
		case "get":
			v, ok, err := store.Get(ctx, args[1])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("property %s not set", args[1])
			}
			fmt.Fprintln(out, v)
			return nil
		default:
			return store.Set(ctx, args[1], args[2])
		}
	})
}
