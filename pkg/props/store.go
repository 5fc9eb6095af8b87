// Package props is the key/value Config Store read by the authenticator and handlers.
package props

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

const logPrefix = "props:store"

// Well-known property keys.
const (
	KeyPrimaryToken     = "PRIMARY_TOKEN"
	KeySecondaryToken   = "SECONDARY_TOKEN"
	KeyIntegrationToken = "INTEGRATION_TOKEN"
	KeyGoogleMapsAPIKey = "GOOGLE_MAPS_API_KEY"
	KeyGeocodeURL       = "GOOGLE_MAPS_GEOCODE_URL"
)

// ErrReadOnly is returned by Set on stores that cannot be written.
var ErrReadOnly = errors.New("property store is read-only")

// Store reads and writes string properties.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Options controls Lookup.
type Options struct {
	Required bool
	Default  string
}

// MissingError reports a required property that is absent or blank.
type MissingError struct {
	Key string
}

func (e *MissingError) Error() string {
	return "Missing required config property: " + e.Key
}

// Lookup reads key and trims it. Blank values fall back to opts.Default; with no default a
// required key yields *MissingError and an optional key yields "".
func Lookup(ctx context.Context, store Store, key string, opts Options) (string, error) {
	value, _, err := store.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("%s - get %s: %w", logPrefix, key, err)
	}
	value = strings.TrimSpace(value)
	if value != "" {
		return value, nil
	}
	if opts.Default != "" {
		return opts.Default, nil
	}
	if opts.Required {
		return "", &MissingError{Key: key}
	}
	return "", nil
}

// MemoryStore keeps properties in a map. Safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates a MemoryStore seeded with initial.
func NewMemoryStore(initial map[string]string) *MemoryStore {
	values := make(map[string]string, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &MemoryStore{values: values}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Keys returns the stored keys, sorted.
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// EnvStore reads properties from the process environment as Prefix+key. It is read-only.
type EnvStore struct {
	Prefix string
	lookup func(string) (string, bool)
}

// NewEnvStore creates an EnvStore over os.LookupEnv.
func NewEnvStore(prefix string) *EnvStore {
	return &EnvStore{Prefix: prefix, lookup: os.LookupEnv}
}

func (e *EnvStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := e.lookup(e.Prefix + key)
	return v, ok, nil
}

func (e *EnvStore) Set(_ context.Context, key, _ string) error {
	return fmt.Errorf("%s - set %s: %w", logPrefix, key, ErrReadOnly)
}

// Layered reads from each store in order and returns the first non-blank value. Writes go to
// the first store.
type Layered []Store

func (l Layered) Get(ctx context.Context, key string) (string, bool, error) {
	for _, s := range l {
		v, ok, err := s.Get(ctx, key)
		if err != nil {
			return "", false, err
		}
		if ok && strings.TrimSpace(v) != "" {
			return v, true, nil
		}
	}
	return "", false, nil
}

func (l Layered) Set(ctx context.Context, key, value string) error {
	if len(l) == 0 {
		return fmt.Errorf("%s - set %s: %w", logPrefix, key, ErrReadOnly)
	}
	return l[0].Set(ctx, key, value)
}
