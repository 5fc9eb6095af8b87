package db

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"
)

const migrationsLogPrefix = "db:migrations"

// MigrationFile is one forward-only schema step.
type MigrationFile struct {
	Name string
	SQL  string
}

// ReadMigrations returns every .sql file in dir, sorted by name. Subdirectories are ignored.
func ReadMigrations(dir string) ([]MigrationFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to read migration dir %s: %w", migrationsLogPrefix, dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".sql" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	out := make([]MigrationFile, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s - failed to read %s: %w", migrationsLogPrefix, path, err)
		}
		out = append(out, MigrationFile{Name: name, SQL: string(data)})
	}
	slog.Info(fmt.Sprintf("%s - Loaded %d migration files from %s", migrationsLogPrefix, len(out), dir))
	return out, nil
}

// LoadMigrationFiles returns the SQL bodies of ReadMigrations(dir).
func LoadMigrationFiles(dir string) ([]string, error) {
	files, err := ReadMigrations(dir)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.SQL
	}
	return out, nil
}

// ApplyMigrations loads dir and runs it against pool. Migrations must be idempotent.
func ApplyMigrations(ctx context.Context, pool *pgxpool.Pool, dir string) error {
	sqls, err := LoadMigrationFiles(dir)
	if err != nil {
		return err
	}
	return RunMigrations(ctx, pool, sqls)
}
