package sim

import "fmt"

// ValuationFunction computes the gain of caching a chunk at a cell.
// Higher is more valuable; zero means the chunk is worth nothing right now.
// Gains are only comparable across chunk sizes after dividing by SizeMB, see NormalizedGain.
// Assess must be deterministic for a given registry state and cheap enough to call
// once per requested chunk.
type ValuationFunction interface {
	Name() string
	Assess(c *Chunk, cell *SmallCell) (float64, error)
}

// NormalizedGain returns gain per MB, the quantity admission and eviction compare.
func NormalizedGain(v ValuationFunction, c *Chunk, cell *SmallCell) (float64, error) {
	gain, err := v.Assess(c, cell)
	if err != nil {
		return 0, err
	}
	size := c.SizeMB()
	if size == 0 {
		return 0, nil
	}
	return gain / size, nil
}

// ValidValuations is the set of recognized valuation function names.
var ValidValuations = map[string]bool{"demand": true, "popularity": true, "mobility": true}

// IsValidValuation returns true if name is a recognized valuation function.
func IsValidValuation(name string) bool {
	return ValidValuations[name]
}

// ValuationConfig parameterizes NewValuationFunction.
type ValuationConfig struct {
	Name        string  // one of ValidValuations
	LocalWeight float64 // popularity: weight of cell-local over global popularity, in [0,1]
	Lambda      float64 // mobility: weight of local popularity added to transition demand
}

// NewValuationFunction builds the named valuation function reading demand for policy.
// Panics on unrecognized names.
func NewValuationFunction(cfg ValuationConfig, registry *DemandRegistry, policy string) ValuationFunction {
	switch cfg.Name {
	case "demand":
		return &DemandValuation{registry: registry, policy: policy}
	case "popularity":
		return &PopularityValuation{registry: registry, policy: policy, localWeight: cfg.LocalWeight}
	case "mobility":
		return &MobilityValuation{registry: registry, policy: policy, lambda: cfg.Lambda}
	default:
		panic(fmt.Sprintf("unknown valuation function %q", cfg.Name))
	}
}

func requireCell(registry *DemandRegistry, name, policy string, c *Chunk, cell *SmallCell) error {
	if registry.Tracks(cell.ID) {
		return nil
	}
	return &ValuationError{
		Policy: policy,
		Cell:   cell.ID,
		Chunk:  c.ID,
		Err:    fmt.Errorf("%w: %s has no demand state for the cell", ErrMissingDemandState, name),
	}
}

// DemandValuation values a chunk by the transition-probability mass of the users
// currently demanding it at the cell. A chunk nobody demands is worth zero.
type DemandValuation struct {
	registry *DemandRegistry
	policy   string
}

func (v *DemandValuation) Name() string { return "demand" }

func (v *DemandValuation) Assess(c *Chunk, cell *SmallCell) (float64, error) {
	if err := requireCell(v.registry, v.Name(), v.policy, c, cell); err != nil {
		return 0, err
	}
	info, ok := v.registry.Lookup(cell.ID, c.ID, v.policy)
	if !ok {
		return 0, nil
	}
	return info.SumTransProbs() * c.SizeMB(), nil
}

// PopularityValuation values a chunk by the request frequency of its content,
// blending the cell's local popularity with the global one.
type PopularityValuation struct {
	registry    *DemandRegistry
	policy      string
	localWeight float64
}

func (v *PopularityValuation) Name() string { return "popularity" }

func (v *PopularityValuation) Assess(c *Chunk, cell *SmallCell) (float64, error) {
	if err := requireCell(v.registry, v.Name(), v.policy, c, cell); err != nil {
		return 0, err
	}
	local := v.registry.LocalPopularity(cell.ID, c.Content)
	global := v.registry.GlobalPopularity(c.Content)
	return c.SizeMB() * (v.localWeight*local + (1-v.localWeight)*global), nil
}

// MobilityValuation is the expected-popularity-caching gain: the transition
// demand of approaching users plus lambda times the content's local popularity.
type MobilityValuation struct {
	registry *DemandRegistry
	policy   string
	lambda   float64
}

func (v *MobilityValuation) Name() string { return "mobility" }

func (v *MobilityValuation) Assess(c *Chunk, cell *SmallCell) (float64, error) {
	if err := requireCell(v.registry, v.Name(), v.policy, c, cell); err != nil {
		return 0, err
	}
	var demand float64
	if info, ok := v.registry.Lookup(cell.ID, c.ID, v.policy); ok {
		demand = info.SumTransProbs()
	}
	return c.SizeMB() * (demand + v.lambda*v.registry.LocalPopularity(cell.ID, c.Content)), nil
}
