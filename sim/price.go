package sim

import (
	"fmt"
	"sync"

	"go.uber.org/atomic"
)

// PriceController keeps the congestion price of each cell for one priced policy.
// Update is called once per admission by the owning simulation and never lowers
// the price; Price may be read concurrently by statistics readers.
type PriceController interface {
	Price(cell CellID) float64
	Update(cell CellID, utilization float64) float64
	Reset(cell CellID)
}

// ValidPriceModels is the set of recognized price model names.
var ValidPriceModels = map[string]bool{"linear": true, "congestion": true}

// PriceConfig parameterizes NewPriceController.
type PriceConfig struct {
	Model   string  `yaml:"model"`   // "linear" or "congestion"
	Initial float64 `yaml:"initial"` // starting price per MB of gain
	Step    float64 `yaml:"step"`    // linear: increment per admission
	Base    float64 `yaml:"base"`    // congestion: price at zero utilization
	Max     float64 `yaml:"max"`     // congestion: ceiling reached as utilization approaches 1
}

// Validate checks model name and parameter ranges.
func (c *PriceConfig) Validate() error {
	if !ValidPriceModels[c.Model] {
		return fmt.Errorf("unknown price model %q", c.Model)
	}
	if c.Initial < 0 {
		return fmt.Errorf("price initial must be non-negative, got %f", c.Initial)
	}
	switch c.Model {
	case "linear":
		if c.Step < 0 {
			return fmt.Errorf("price step must be non-negative, got %f", c.Step)
		}
	case "congestion":
		if c.Base < 0 {
			return fmt.Errorf("price base must be non-negative, got %f", c.Base)
		}
		if c.Max < c.Base {
			return fmt.Errorf("price max (%f) must be at least base (%f)", c.Max, c.Base)
		}
	}
	return nil
}

// NewPriceController builds the configured model. Panics on unrecognized names.
func NewPriceController(cfg PriceConfig) PriceController {
	switch cfg.Model {
	case "linear":
		return &LinearPrice{table: newPriceTable(cfg.Initial), step: cfg.Step}
	case "congestion":
		return &CongestionPrice{table: newPriceTable(cfg.Initial), base: cfg.Base, max: cfg.Max}
	default:
		panic(fmt.Sprintf("unknown price model %q", cfg.Model))
	}
}

// priceTable holds one atomic scalar per cell. The map lock only guards
// insertion of new cells; reads and writes of a price go through the atomic.
type priceTable struct {
	initial float64
	mu      sync.RWMutex
	prices  map[CellID]*atomic.Float64
}

func newPriceTable(initial float64) *priceTable {
	return &priceTable{initial: initial, prices: make(map[CellID]*atomic.Float64)}
}

func (t *priceTable) get(cell CellID) *atomic.Float64 {
	t.mu.RLock()
	p, ok := t.prices[cell]
	t.mu.RUnlock()
	if ok {
		return p
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok = t.prices[cell]; !ok {
		p = atomic.NewFloat64(t.initial)
		t.prices[cell] = p
	}
	return p
}

// LinearPrice raises the price by a fixed step per admission.
type LinearPrice struct {
	table *priceTable
	step  float64
}

func (l *LinearPrice) Price(cell CellID) float64 { return l.table.get(cell).Load() }

func (l *LinearPrice) Update(cell CellID, _ float64) float64 {
	return l.table.get(cell).Add(l.step)
}

func (l *LinearPrice) Reset(cell CellID) { l.table.get(cell).Store(l.table.initial) }

// CongestionPrice tracks base/(1-u) of the buffer utilization u, capped at max.
// The price only moves up: an admission at lower utilization leaves it unchanged.
type CongestionPrice struct {
	table *priceTable
	base  float64
	max   float64
}

func (c *CongestionPrice) Price(cell CellID) float64 { return c.table.get(cell).Load() }

func (c *CongestionPrice) Update(cell CellID, utilization float64) float64 {
	target := c.max
	if utilization < 1 {
		target = min(c.max, c.base/(1-utilization))
	}
	p := c.table.get(cell)
	for {
		cur := p.Load()
		if target <= cur {
			return cur
		}
		if p.CompareAndSwap(cur, target) {
			return target
		}
	}
}

func (c *CongestionPrice) Reset(cell CellID) { c.table.get(cell).Store(c.table.initial) }
