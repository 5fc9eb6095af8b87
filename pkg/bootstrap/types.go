// Package bootstrap loads the gateway's bootstrap file: seed properties for the Config Store
// and the booking deposit tiers.
package bootstrap

// DepositTier is one booking deposit price. Tiers with ID "N/A" are placeholders and never match.
type DepositTier struct {
	ID    string  `yaml:"id" json:"id"`
	Value float64 `yaml:"value" json:"value"`
}

// UnavailableTierID marks a placeholder tier.
const UnavailableTierID = "N/A"

// Config is the root bootstrap configuration. The file may be YAML or JSON.
type Config struct {
	Name         string            `yaml:"name" json:"name"`
	Version      string            `yaml:"version" json:"version"`
	Description  string            `yaml:"description,omitempty" json:"description,omitempty"`
	Properties   map[string]string `yaml:"properties,omitempty" json:"properties,omitempty"`
	DepositTiers []DepositTier     `yaml:"depositTiers,omitempty" json:"depositTiers,omitempty"`
}

// ActiveTiers returns the tiers that can be selected, in file order.
func (c *Config) ActiveTiers() []DepositTier {
	out := make([]DepositTier, 0, len(c.DepositTiers))
	for _, t := range c.DepositTiers {
		if t.ID == "" || t.ID == UnavailableTierID {
			continue
		}
		out = append(out, t)
	}
	return out
}
