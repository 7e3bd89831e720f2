// Package scenario runs caching policies over a simulated small-cell network:
// users move, request documents and hand their demand to the policies under test.
package scenario

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/inference-sim/cachesim/sim"
	"github.com/inference-sim/cachesim/sim/mobility"
	"github.com/inference-sim/cachesim/sim/workload"
)

// Config describes one scenario.
type Config struct {
	Name     string  `yaml:"name"`
	Seed     int64   `yaml:"seed"`
	HorizonS float64 `yaml:"horizon_s"`
	// StepS is the mobility update period; demand for cells a user no longer
	// approaches is cancelled at each step.
	StepS float64 `yaml:"step_s"`
	Users int     `yaml:"users"`

	Grid     mobility.GridConfig   `yaml:"grid"`
	Mobility mobility.ModelConfig  `yaml:"mobility"`
	Workload workload.WorkloadSpec `yaml:"workload"`

	// LookaheadS bounds how far ahead transition probabilities look.
	LookaheadS float64 `yaml:"lookahead_s"`
	// MinProbability is the smallest transition probability worth registering demand for.
	MinProbability float64 `yaml:"min_probability"`
	// MaxTargets caps the cells one request registers demand at; 0 means no cap.
	MaxTargets int `yaml:"max_targets"`

	HandoffLockTimes sim.HandoffLockTimes `yaml:"handoff_lock_times"`
	Policies         []sim.PolicyConfig   `yaml:"policies"`
}

// Batch is a file of scenarios run together.
type Batch struct {
	Scenarios []Config `yaml:"scenarios"`
}

// LoadBatch reads and parses a YAML scenario file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadBatch(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}
	var b Batch
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&b); err != nil {
		return nil, fmt.Errorf("parsing scenario file: %w", err)
	}
	return &b, nil
}

// Validate checks every scenario and that names are unique.
func (b *Batch) Validate() error {
	if len(b.Scenarios) == 0 {
		return fmt.Errorf("at least one scenario is required")
	}
	seen := make(map[string]bool, len(b.Scenarios))
	for i := range b.Scenarios {
		c := &b.Scenarios[i]
		if err := c.Validate(); err != nil {
			return fmt.Errorf("scenario %d (%q): %w", i, c.Name, err)
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate scenario name %q", c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}

// Validate checks the scenario and its embedded sections.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("scenario name must not be empty")
	}
	if c.HorizonS <= 0 {
		return fmt.Errorf("horizon_s must be positive, got %f", c.HorizonS)
	}
	if c.StepS <= 0 {
		return fmt.Errorf("step_s must be positive, got %f", c.StepS)
	}
	if c.Users <= 0 {
		return fmt.Errorf("users must be positive, got %d", c.Users)
	}
	if c.LookaheadS <= 0 {
		return fmt.Errorf("lookahead_s must be positive, got %f", c.LookaheadS)
	}
	if c.MinProbability <= 0 || c.MinProbability > 1 {
		return fmt.Errorf("min_probability must be in (0,1], got %f", c.MinProbability)
	}
	if c.MaxTargets < 0 {
		return fmt.Errorf("max_targets must be non-negative, got %d", c.MaxTargets)
	}
	if err := c.Grid.Validate(); err != nil {
		return fmt.Errorf("grid: %w", err)
	}
	if err := c.Mobility.Validate(); err != nil {
		return fmt.Errorf("mobility: %w", err)
	}
	if err := c.Workload.Validate(); err != nil {
		return fmt.Errorf("workload: %w", err)
	}
	bundle := sim.PolicyBundle{Policies: c.Policies}
	if err := bundle.Validate(); err != nil {
		return err
	}
	return nil
}

func seconds(s float64) int64 { return int64(s * workload.MicrosPerSecond) }
