package db

import (
	"context"
	"errors"
	"testing"

	"github.com/morezero/action-gateway/pkg/bootstrap"
	"github.com/morezero/action-gateway/pkg/props"
)

const seedTestPrefix = "db:seed_test"

type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, bool, error) { return "", false, nil }
func (failingStore) Set(context.Context, string, string) error         { return errors.New("boom") }

func TestSeedProperties(t *testing.T) {
	ctx := context.Background()
	store := props.NewMemoryStore(nil)
	cfg := &bootstrap.Config{
		Name:    "gateway",
		Version: "1.0.0",
		Properties: map[string]string{
			props.KeyPrimaryToken:     "primary-secret",
			props.KeyGoogleMapsAPIKey: "maps-key",
			"  ":                      "ignored",
		},
	}

	n, err := SeedProperties(ctx, store, cfg)
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", seedTestPrefix, err)
	}
	if n != 2 {
		t.Errorf("%s - seeded %d, want 2", seedTestPrefix, n)
	}
	if v, ok, _ := store.Get(ctx, props.KeyPrimaryToken); !ok || v != "primary-secret" {
		t.Errorf("%s - PRIMARY_TOKEN = %q (found=%v)", seedTestPrefix, v, ok)
	}
	if len(store.Keys()) != 2 {
		t.Errorf("%s - keys = %v", seedTestPrefix, store.Keys())
	}
}

func TestSeedProperties_Empty(t *testing.T) {
	for _, cfg := range []*bootstrap.Config{nil, {Name: "empty"}} {
		n, err := SeedProperties(context.Background(), props.NewMemoryStore(nil), cfg)
		if err != nil || n != 0 {
			t.Errorf("%s - SeedProperties(%v) = %d, %v", seedTestPrefix, cfg, n, err)
		}
	}
}

func TestSeedProperties_StoreError(t *testing.T) {
	cfg := &bootstrap.Config{Properties: map[string]string{"A": "1"}}
	if _, err := SeedProperties(context.Background(), failingStore{}, cfg); err == nil {
		t.Errorf("%s - expected store error", seedTestPrefix)
	}
}
