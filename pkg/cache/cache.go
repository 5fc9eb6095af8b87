// Package cache provides the shared key/value cache used by external lookups.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const logPrefix = "cache:cache"

const (
	// DefaultTTL applies when a caller asks for no TTL.
	DefaultTTL = time.Hour
	// MaxTTL is the ceiling for every entry.
	MaxTTL = 6 * time.Hour
)

// Cache stores opaque values with a TTL. The store owns expiry; expired keys read as misses.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// ClampTTL maps ttl into (0, MaxTTL]: non-positive values become DefaultTTL.
func ClampTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}
	if ttl > MaxTTL {
		return MaxTTL
	}
	return ttl
}

// Result of a GetJSON call.
type Result string

const (
	Hit     Result = "hit"
	Miss    Result = "miss"
	Corrupt Result = "corrupt"
)

// GetJSON reads key and decodes it into out. Store errors and undecodable entries are reported
// as misses so a broken cache never fails the caller.
func GetJSON(ctx context.Context, c Cache, key string, out interface{}) Result {
	raw, ok, err := c.Get(ctx, key)
	if err != nil {
		slog.Warn(fmt.Sprintf("%s - get failed key=%s: %v", logPrefix, key, err))
		return Miss
	}
	if !ok {
		return Miss
	}
	if err := json.Unmarshal(raw, out); err != nil {
		slog.Warn(fmt.Sprintf("%s - corrupt entry key=%s: %v", logPrefix, key, err))
		return Corrupt
	}
	return Hit
}

// PutJSON encodes value and stores it with a clamped TTL. Failures are logged, never returned.
func PutJSON(ctx context.Context, c Cache, key string, value interface{}, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		slog.Warn(fmt.Sprintf("%s - encode failed key=%s: %v", logPrefix, key, err))
		return
	}
	if err := c.Put(ctx, key, raw, ClampTTL(ttl)); err != nil {
		slog.Warn(fmt.Sprintf("%s - put failed key=%s: %v", logPrefix, key, err))
	}
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process Cache. Expired entries are evicted when read.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemory creates a Memory cache using the wall clock.
func NewMemory() *Memory {
	return NewMemoryWithClock(time.Now)
}

// NewMemoryWithClock creates a Memory cache using now for expiry decisions.
func NewMemoryWithClock(now func() time.Time) *Memory {
	return &Memory{entries: make(map[string]entry), now: now}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return nil, false, nil
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

func (m *Memory) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry{value: stored, expiresAt: m.now().Add(ttl)}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
