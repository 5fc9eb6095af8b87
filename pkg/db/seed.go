package db

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/morezero/action-gateway/pkg/bootstrap"
	"github.com/morezero/action-gateway/pkg/props"
)

const seedLogPrefix = "db:seed"

// SeedProperties writes the bootstrap properties into store in key order. Blank keys are skipped.
// Existing values are overwritten. Returns the number of properties written.
func SeedProperties(ctx context.Context, store props.Store, cfg *bootstrap.Config) (int, error) {
	if cfg == nil || len(cfg.Properties) == 0 {
		slog.Info(fmt.Sprintf("%s - no properties to seed", seedLogPrefix))
		return 0, nil
	}

	keys := make([]string, 0, len(cfg.Properties))
	for k := range cfg.Properties {
		if strings.TrimSpace(k) == "" {
			slog.Warn(fmt.Sprintf("%s - skip blank property key", seedLogPrefix))
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := store.Set(ctx, strings.TrimSpace(k), cfg.Properties[k]); err != nil {
			return 0, fmt.Errorf("%s - seed %s: %w", seedLogPrefix, k, err)
		}
	}
	slog.Info(fmt.Sprintf("%s - Seeded %d properties from %s %s", seedLogPrefix, len(keys), cfg.Name, cfg.Version))
	return len(keys), nil
}
