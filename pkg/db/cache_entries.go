package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/morezero/action-gateway/pkg/cache"
)

const cacheLogPrefix = "db:cache_entries"

// CacheStore is a cache.Cache over the cache_entries table. Expired rows are misses and are
// overwritten by the next Put.
type CacheStore struct {
	db  DBTX
	now func() time.Time
}

var _ cache.Cache = (*CacheStore)(nil)

// NewCacheStore creates a new CacheStore.
func NewCacheStore(db DBTX) *CacheStore {
	return &CacheStore{db: db, now: time.Now}
}

func (c *CacheStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := c.db.QueryRow(ctx,
		`SELECT value FROM cache_entries WHERE key = $1 AND expires_at > $2`,
		key, c.now().UTC()).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s - get %s: %w", cacheLogPrefix, key, err)
	}
	return value, true, nil
}

func (c *CacheStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	expiresAt := c.now().UTC().Add(cache.ClampTTL(ttl))
	_, err := c.db.Exec(ctx,
		`INSERT INTO cache_entries (key, value, expires_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at, modified = NOW()`,
		key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("%s - put %s: %w", cacheLogPrefix, key, err)
	}
	return nil
}

// PurgeExpired deletes rows whose expiry has passed and returns how many were removed.
func (c *CacheStore) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := c.db.Exec(ctx, `DELETE FROM cache_entries WHERE expires_at <= $1`, c.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("%s - purge: %w", cacheLogPrefix, err)
	}
	return tag.RowsAffected(), nil
}

// ClearCache removes every cache entry. The schema is preserved.
func ClearCache(ctx context.Context, db DBTX) (int64, error) {
	slog.Info(fmt.Sprintf("%s - Clearing cache_entries", cacheLogPrefix))
	tag, err := db.Exec(ctx, `DELETE FROM cache_entries`)
	if err != nil {
		return 0, fmt.Errorf("%s - clear failed: %w", cacheLogPrefix, err)
	}
	slog.Info(fmt.Sprintf("%s - Cleared %d cache entries", cacheLogPrefix, tag.RowsAffected()))
	return tag.RowsAffected(), nil
}
