package sim

import (
	"fmt"

	"github.com/inference-sim/cachesim/sim/stats"
	"github.com/inference-sim/cachesim/sim/trace"
)

// CachingPolicy is the complete admission and eviction behavior of one policy
// variant. Implementations are owned by a single simulation and are not safe for
// concurrent use.
type CachingPolicy interface {
	Name() string
	Assess(c *Chunk, cell *SmallCell) (float64, error)
	Compare(a, b float64) int
	CacheDecision(req CacheRequest) (Decision, error)
	OptForEviction(cell *SmallCell, candidate *Chunk) ([]*Chunk, error)
}

// PolicyDeps are the collaborators a policy is wired to.
type PolicyDeps struct {
	Registry         *DemandRegistry
	Positions        PositionProvider // required when a handoff lock is configured
	HandoffLockTimes HandoffLockTimes
	Sink             stats.Sink             // nil discards observations
	Trace            *trace.SimulationTrace // nil disables tracing
}

// Policy composes a valuation function, an eviction search with an optional
// handoff-lock veto, and an optional congestion price.
type Policy struct {
	name      string
	valuation ValuationFunction
	eviction  *EvictionSearch
	cmp       GainComparator
	price     PriceController
	sink      stats.Sink
	trace     *trace.SimulationTrace
}

var _ CachingPolicy = (*Policy)(nil)

// NewCachingPolicy builds the policy described by cfg.
// cfg must have passed Validate; unknown names panic.
func NewCachingPolicy(cfg PolicyConfig, deps PolicyDeps) *Policy {
	if deps.Registry == nil {
		panic("NewCachingPolicy: Registry must not be nil")
	}
	sink := deps.Sink
	if sink == nil {
		sink = stats.Nop{}
	}
	valuation := NewValuationFunction(cfg.valuationConfig(), deps.Registry, cfg.Name)

	var veto EvictionVeto
	if cfg.HandoffLock != "" {
		threshold, err := deps.HandoffLockTimes.Select(cfg.HandoffLock)
		if err != nil {
			panic(fmt.Sprintf("NewCachingPolicy(%s): %v", cfg.Name, err))
		}
		if deps.Positions == nil {
			panic(fmt.Sprintf("NewCachingPolicy(%s): handoff lock needs a position provider", cfg.Name))
		}
		veto = &HandoffLockVeto{Threshold: threshold, Positions: deps.Positions}
	}

	var price PriceController
	if cfg.Price != nil {
		price = NewPriceController(*cfg.Price)
	}

	cmp := cfg.comparator()
	return &Policy{
		name:      cfg.Name,
		valuation: valuation,
		eviction:  NewEvictionSearch(cfg.Name, valuation, deps.Registry, cmp, veto, sink),
		cmp:       cmp,
		price:     price,
		sink:      sink,
		trace:     deps.Trace,
	}
}

func (p *Policy) Name() string { return p.name }

// Assess returns the raw (not size-normalized) gain of c at cell.
func (p *Policy) Assess(c *Chunk, cell *SmallCell) (float64, error) {
	gain, err := p.valuation.Assess(c, cell)
	if err != nil {
		return 0, wrapValuationError(err, p.name, cell, c)
	}
	return gain, nil
}

// Compare is the eviction comparator over normalized gains.
func (p *Policy) Compare(a, b float64) int { return p.cmp.Compare(a, b) }

// OptForEviction delegates to the policy's eviction search.
func (p *Policy) OptForEviction(cell *SmallCell, candidate *Chunk) ([]*Chunk, error) {
	return p.eviction.OptForEviction(cell, candidate)
}

// Priced reports whether admissions are gated by a congestion price.
func (p *Policy) Priced() bool { return p.price != nil }

// Price returns the current price at cell, or 0 for non-priced policies.
func (p *Policy) Price(cell CellID) float64 {
	if p.price == nil {
		return 0
	}
	return p.price.Price(cell)
}

func (p *Policy) observe(cell *SmallCell, m stats.Metric, v float64, clock int64) {
	p.sink.Record(stats.Observation{Cell: string(cell.ID), Policy: p.name, Metric: m, Value: v, Clock: clock})
}
