package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/morezero/action-gateway/pkg/props"
)

const propertiesLogPrefix = "db:properties"

// DBTX is the part of pgxpool.Pool and pgx.Tx the stores need.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Property is one row of the properties table.
type Property struct {
	Key      string
	Value    string
	Modified time.Time
}

// PropertyStore is a props.Store over the properties table.
type PropertyStore struct {
	db DBTX
}

var _ props.Store = (*PropertyStore)(nil)

// NewPropertyStore creates a new PropertyStore.
func NewPropertyStore(db DBTX) *PropertyStore {
	return &PropertyStore{db: db}
}

// Get returns the stored value. A missing row is ("", false, nil).
func (s *PropertyStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(ctx, `SELECT value FROM properties WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%s - get %s: %w", propertiesLogPrefix, key, err)
	}
	return value, true, nil
}

// Set upserts key.
func (s *PropertyStore) Set(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%s - property key is required", propertiesLogPrefix)
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO properties (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, modified = NOW()`,
		key, value)
	if err != nil {
		return fmt.Errorf("%s - set %s: %w", propertiesLogPrefix, key, err)
	}
	return nil
}

// List returns every property ordered by key.
func (s *PropertyStore) List(ctx context.Context) ([]Property, error) {
	rows, err := s.db.Query(ctx, `SELECT key, value, modified FROM properties ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("%s - list: %w", propertiesLogPrefix, err)
	}
	defer rows.Close()

	var out []Property
	for rows.Next() {
		var p Property
		if err := rows.Scan(&p.Key, &p.Value, &p.Modified); err != nil {
			return nil, fmt.Errorf("%s - scan: %w", propertiesLogPrefix, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s - rows: %w", propertiesLogPrefix, err)
	}
	return out, nil
}
