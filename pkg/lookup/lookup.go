// Package lookup wraps an external call with a read-through cache keyed on the normalized query.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/morezero/action-gateway/pkg/cache"
	"github.com/morezero/action-gateway/pkg/metrics"
)

const logPrefix = "lookup:lookup"

// ErrEmptyQuery is returned when the query is blank after trimming.
var ErrEmptyQuery = errors.New("query must be a non-empty string")

// Config describes one cache-backed lookup.
type Config[Q any, T any] struct {
	// Namespace prefixes cache keys and labels metrics.
	Namespace string
	Cache     cache.Cache
	// Key validates q and returns the key parts that affect the result.
	Key func(q Q) ([]string, error)
	// Fetch performs the external call. Its errors are returned as-is and never cached.
	Fetch func(ctx context.Context, q Q) (T, error)
	// TTL returns the requested lifetime for a fresh result. It is clamped by cache.ClampTTL.
	TTL func(q Q) time.Duration
}

// Lookup is a read-through cache around Config.Fetch. Concurrent misses for the same key share
// one external call.
type Lookup[Q any, T any] struct {
	cfg   Config[Q, T]
	group singleflight.Group
}

// Outcome reports how a result was produced.
type Outcome struct {
	Key    string
	Cached bool
}

// New creates a Lookup.
func New[Q any, T any](cfg Config[Q, T]) *Lookup[Q, T] {
	return &Lookup[Q, T]{cfg: cfg}
}

// Get returns the cached result for q or fetches, caches and returns a fresh one.
func (l *Lookup[Q, T]) Get(ctx context.Context, q Q) (T, Outcome, error) {
	var zero T
	parts, err := l.cfg.Key(q)
	if err != nil {
		return zero, Outcome{}, err
	}
	key := BuildKey(l.cfg.Namespace, parts...)

	var cached T
	switch res := cache.GetJSON(ctx, l.cfg.Cache, key, &cached); res {
	case cache.Hit:
		metrics.CacheLookups.WithLabelValues(l.cfg.Namespace, string(res)).Inc()
		slog.Debug(fmt.Sprintf("%s - hit key=%s", logPrefix, key))
		return cached, Outcome{Key: key, Cached: true}, nil
	default:
		metrics.CacheLookups.WithLabelValues(l.cfg.Namespace, string(res)).Inc()
	}

	// Waiters share one fetch, so it must outlive the caller that started it.
	fetchCtx := context.WithoutCancel(ctx)
	v, err, _ := l.group.Do(key, func() (interface{}, error) {
		fresh, err := l.cfg.Fetch(fetchCtx, q)
		if err != nil {
			metrics.UpstreamCalls.WithLabelValues(l.cfg.Namespace, "error").Inc()
			return nil, err
		}
		metrics.UpstreamCalls.WithLabelValues(l.cfg.Namespace, "ok").Inc()
		ttl := cache.DefaultTTL
		if l.cfg.TTL != nil {
			ttl = l.cfg.TTL(q)
		}
		cache.PutJSON(fetchCtx, l.cfg.Cache, key, fresh, ttl)
		return fresh, nil
	})
	if err != nil {
		return zero, Outcome{Key: key}, err
	}
	return v.(T), Outcome{Key: key}, nil
}

// BuildKey joins namespace and the trimmed, lower-cased parts with ":".
func BuildKey(namespace string, parts ...string) string {
	var b strings.Builder
	b.WriteString(namespace)
	for _, p := range parts {
		b.WriteByte(':')
		b.WriteString(Normalize(p))
	}
	return b.String()
}

// Normalize trims and lower-cases s and collapses inner whitespace runs to one space.
func Normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// RequireText returns the normalized form of s or ErrEmptyQuery.
func RequireText(s string) (string, error) {
	n := Normalize(s)
	if n == "" {
		return "", ErrEmptyQuery
	}
	return n, nil
}
