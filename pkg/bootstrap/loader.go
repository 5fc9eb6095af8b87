package bootstrap

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

const logPrefix = "bootstrap:loader"

// EnvFile names the environment variable holding the bootstrap file path.
const EnvFile = "BOOTSTRAP_FILE"

// LoadConfig loads the bootstrap config. It tries paths in order: first any paths passed in, then
// BOOTSTRAP_FILE, then the default locations. The first readable, parseable file is merged over
// the defaults. With no file the defaults are returned.
func LoadConfig(paths ...string) (*Config, error) {
	all := make([]string, 0, len(paths)+4)
	for _, p := range paths {
		if p != "" {
			all = append(all, p)
		}
	}
	if envPath := os.Getenv(EnvFile); envPath != "" {
		all = append(all, envPath)
	}
	all = append(all, "config/bootstrap.yaml", "bootstrap.yaml", "config/bootstrap.json")

	for _, p := range all {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		cfg, err := Parse(data)
		if err != nil {
			slog.Warn(fmt.Sprintf("%s - Failed to parse bootstrap file %s: %v", logPrefix, p, err))
			continue
		}
		slog.Info(fmt.Sprintf("%s - Loaded bootstrap config from %s properties=%d tiers=%d", logPrefix, p, len(cfg.Properties), len(cfg.DepositTiers)))
		return Merge(GetDefaultConfig(), cfg), nil
	}

	slog.Info(fmt.Sprintf("%s - Using default bootstrap config", logPrefix))
	return GetDefaultConfig(), nil
}

// Parse decodes a YAML or JSON bootstrap document and validates it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%s - decode: %w", logPrefix, err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects tiers with a non-positive value and duplicate tier IDs.
func Validate(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.DepositTiers))
	for i, t := range cfg.DepositTiers {
		if t.ID == "" {
			return fmt.Errorf("%s - deposit tier %d has no id", logPrefix, i)
		}
		if t.Value <= 0 {
			return fmt.Errorf("%s - deposit tier %s has non-positive value %v", logPrefix, t.ID, t.Value)
		}
		if t.ID != UnavailableTierID && seen[t.ID] {
			return fmt.Errorf("%s - duplicate deposit tier %s", logPrefix, t.ID)
		}
		seen[t.ID] = true
	}
	for k := range cfg.Properties {
		if k == "" {
			return fmt.Errorf("%s - empty property key", logPrefix)
		}
	}
	return nil
}

// GetDefaultConfig returns the built-in configuration: no properties and the standard deposit tiers.
func GetDefaultConfig() *Config {
	return &Config{
		Name:        "action-gateway-bootstrap",
		Version:     "1.0.0",
		Description: "Default bootstrap configuration",
		Properties:  map[string]string{},
		DepositTiers: []DepositTier{
			{ID: "price_booking_deposit_50", Value: 50},
			{ID: "price_booking_deposit_100", Value: 100},
			{ID: "price_booking_deposit_150", Value: 150},
			{ID: "price_booking_deposit_200", Value: 200},
			{ID: UnavailableTierID, Value: 250},
		},
	}
}

// Merge merges override into base. Properties are merged key by key; a non-empty tier list
// in override replaces base's.
func Merge(base, override *Config) *Config {
	merged := *base
	merged.Properties = make(map[string]string, len(base.Properties)+len(override.Properties))
	for k, v := range base.Properties {
		merged.Properties[k] = v
	}
	for k, v := range override.Properties {
		merged.Properties[k] = v
	}
	merged.DepositTiers = append([]DepositTier(nil), base.DepositTiers...)
	if len(override.DepositTiers) > 0 {
		merged.DepositTiers = append([]DepositTier(nil), override.DepositTiers...)
	}
	if override.Name != "" {
		merged.Name = override.Name
	}
	if override.Version != "" {
		merged.Version = override.Version
	}
	if override.Description != "" {
		merged.Description = override.Description
	}
	return &merged
}
