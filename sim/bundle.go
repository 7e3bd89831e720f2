package sim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PolicyBundle holds the caching policies compared in a scenario, loadable from YAML.
type PolicyBundle struct {
	Policies []PolicyConfig `yaml:"policies"`
}

// PolicyConfig configures one CachingPolicy.
// Nil pointer fields mean "not set in YAML" and take the defaults below.
type PolicyConfig struct {
	Name        string       `yaml:"name"`
	Valuation   string       `yaml:"valuation"`
	LocalWeight *float64     `yaml:"local_weight"` // popularity valuation, default 0.5
	Lambda      *float64     `yaml:"lambda"`       // mobility valuation, default 0.1
	GainScale   *float64     `yaml:"gain_scale"`   // comparator resolution, default DefaultGainScale
	HandoffLock string       `yaml:"handoff_lock"` // "", "a", "b", "c1" or "c2"
	Price       *PriceConfig `yaml:"price"`        // nil for non-priced policies
}

const (
	defaultLocalWeight = 0.5
	defaultLambda      = 0.1
)

// LoadPolicyBundle reads and parses a YAML policy configuration file.
func LoadPolicyBundle(path string) (*PolicyBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy config: %w", err)
	}
	var bundle PolicyBundle
	if err := yaml.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("parsing policy config: %w", err)
	}
	return &bundle, nil
}

// Validate checks every policy and that names are unique.
func (b *PolicyBundle) Validate() error {
	if len(b.Policies) == 0 {
		return fmt.Errorf("at least one caching policy is required")
	}
	seen := make(map[string]bool, len(b.Policies))
	for i := range b.Policies {
		p := &b.Policies[i]
		if err := p.Validate(); err != nil {
			return fmt.Errorf("policy %d (%q): %w", i, p.Name, err)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate policy name %q", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// Validate checks names and parameter ranges of a single policy.
func (c *PolicyConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("policy name must not be empty")
	}
	if !IsValidValuation(c.Valuation) {
		return fmt.Errorf("unknown valuation %q", c.Valuation)
	}
	if !ValidHandoffLocks[c.HandoffLock] {
		return fmt.Errorf("unknown handoff lock %q", c.HandoffLock)
	}
	if c.LocalWeight != nil && (*c.LocalWeight < 0 || *c.LocalWeight > 1) {
		return fmt.Errorf("local_weight must be in [0,1], got %f", *c.LocalWeight)
	}
	if c.Lambda != nil && *c.Lambda < 0 {
		return fmt.Errorf("lambda must be non-negative, got %f", *c.Lambda)
	}
	if c.GainScale != nil && *c.GainScale <= 0 {
		return fmt.Errorf("gain_scale must be positive, got %f", *c.GainScale)
	}
	if c.Price != nil {
		if err := c.Price.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *PolicyConfig) valuationConfig() ValuationConfig {
	vc := ValuationConfig{Name: c.Valuation, LocalWeight: defaultLocalWeight, Lambda: defaultLambda}
	if c.LocalWeight != nil {
		vc.LocalWeight = *c.LocalWeight
	}
	if c.Lambda != nil {
		vc.Lambda = *c.Lambda
	}
	return vc
}

func (c *PolicyConfig) comparator() GainComparator {
	if c.GainScale != nil {
		return GainComparator{Scale: *c.GainScale}
	}
	return GainComparator{Scale: DefaultGainScale}
}
