package workload

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// WorkloadSpec describes the content catalog and how often users request from it.
type WorkloadSpec struct {
	Documents int     `yaml:"documents"`   // catalog size
	MinSizeMB float64 `yaml:"min_size_mb"` // document sizes are clamped to [min, max]
	MaxSizeMB float64 `yaml:"max_size_mb"`
	ChunkMB   float64 `yaml:"chunk_mb"` // chunk size; the last chunk of a document holds the remainder
	// ZipfS and ZipfV shape content popularity: P(k) ∝ (v+k)^(-s), s > 1, v >= 1.
	ZipfS float64 `yaml:"zipf_s"`
	ZipfV float64 `yaml:"zipf_v"`
	// RatePerUser is each user's mean request rate in requests per second.
	RatePerUser float64     `yaml:"rate_per_user"`
	Arrival     ArrivalSpec `yaml:"arrival"`
	// DeliveryS is how long after a request its chunks are considered delivered
	// and the user's demand for them ends.
	DeliveryS float64 `yaml:"delivery_s"`

	// SizeDist shapes document sizes; nil means uniform in [min, max].
	SizeDist *DistSpec `yaml:"size_dist,omitempty"`
}

// ArrivalSpec configures the inter-arrival time process.
type ArrivalSpec struct {
	Process string   `yaml:"process"`
	CV      *float64 `yaml:"cv,omitempty"`
}

var validArrivalProcesses = map[string]bool{"poisson": true, "gamma": true, "weibull": true}

// IsValidArrivalProcess reports whether name is a recognized arrival process.
func IsValidArrivalProcess(name string) bool {
	return validArrivalProcesses[name]
}

// LoadWorkloadSpec reads and parses a YAML workload specification file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadWorkloadSpec(path string) (*WorkloadSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workload spec: %w", err)
	}
	var spec WorkloadSpec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("parsing workload spec: %w", err)
	}
	return &spec, nil
}

// Validate checks that all fields in the spec are valid.
func (s *WorkloadSpec) Validate() error {
	if s.Documents <= 0 {
		return fmt.Errorf("documents must be positive, got %d", s.Documents)
	}
	if err := validateFinitePositive("min_size_mb", s.MinSizeMB); err != nil {
		return err
	}
	if s.MaxSizeMB < s.MinSizeMB {
		return fmt.Errorf("max_size_mb (%f) must be at least min_size_mb (%f)", s.MaxSizeMB, s.MinSizeMB)
	}
	if _, err := NewSizeSampler(s.SizeDist, s.MinSizeMB, s.MaxSizeMB); err != nil {
		return fmt.Errorf("size_dist: %w", err)
	}
	if err := validateFinitePositive("chunk_mb", s.ChunkMB); err != nil {
		return err
	}
	if s.ZipfS <= 1 {
		return fmt.Errorf("zipf_s must be greater than 1, got %f", s.ZipfS)
	}
	if s.ZipfV < 1 {
		return fmt.Errorf("zipf_v must be at least 1, got %f", s.ZipfV)
	}
	if err := validateFinitePositive("rate_per_user", s.RatePerUser); err != nil {
		return err
	}
	if !validArrivalProcesses[s.Arrival.Process] {
		return fmt.Errorf("unknown arrival process %q; valid: poisson, gamma, weibull", s.Arrival.Process)
	}
	if s.Arrival.CV != nil {
		if err := validateFinitePositive("arrival.cv", *s.Arrival.CV); err != nil {
			return err
		}
		if s.Arrival.Process == "weibull" && (*s.Arrival.CV < 0.01 || *s.Arrival.CV > 10.4) {
			return fmt.Errorf("weibull CV must be in [0.01, 10.4], got %f", *s.Arrival.CV)
		}
	}
	if s.DeliveryS < 0 {
		return fmt.Errorf("delivery_s must be non-negative, got %f", s.DeliveryS)
	}
	return nil
}

func validateFinitePositive(name string, val float64) error {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return fmt.Errorf("%s must be a finite number, got %f", name, val)
	}
	if val <= 0 {
		return fmt.Errorf("%s must be positive, got %f", name, val)
	}
	return nil
}
