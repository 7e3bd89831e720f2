package sim

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLinearPrice_RisesByStep(t *testing.T) {
	p := NewPriceController(PriceConfig{Model: "linear", Initial: 1, Step: 0.5})
	assert.Equal(t, 1.0, p.Price("c0"))
	assert.Equal(t, 1.5, p.Update("c0", 0.2))
	assert.Equal(t, 2.0, p.Update("c0", 0.1))
	assert.Equal(t, 1.0, p.Price("c1"), "cells are priced independently")

	p.Reset("c0")
	assert.Equal(t, 1.0, p.Price("c0"))
}

func TestCongestionPrice_FollowsUtilizationUpOnly(t *testing.T) {
	p := NewPriceController(PriceConfig{Model: "congestion", Base: 1, Max: 10})

	assert.InDelta(t, 2.0, p.Update("c0", 0.5), 1e-12)
	assert.InDelta(t, 4.0, p.Update("c0", 0.75), 1e-12)
	// lower utilization never lowers the price
	assert.InDelta(t, 4.0, p.Update("c0", 0.1), 1e-12)
	// a full buffer pins the ceiling
	assert.InDelta(t, 10.0, p.Update("c0", 1), 1e-12)
	assert.InDelta(t, 10.0, p.Update("c0", 0.99), 1e-12)
}

func TestPriceController_MonotoneAcrossAdmissions(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, cfg := range []PriceConfig{
		{Model: "linear", Initial: 0.2, Step: 0.01},
		{Model: "congestion", Initial: 0, Base: 0.1, Max: 5},
	} {
		t.Run(cfg.Model, func(t *testing.T) {
			p := NewPriceController(cfg)
			prev := p.Price("c0")
			for i := 0; i < 500; i++ {
				cur := p.Update("c0", rng.Float64())
				assert.GreaterOrEqual(t, cur, prev)
				prev = cur
			}
		})
	}
}

func TestPriceController_ConcurrentReaders(t *testing.T) {
	p := NewPriceController(PriceConfig{Model: "linear", Step: 1})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = p.Price("c0")
			}
		}()
	}
	for j := 0; j < 100; j++ {
		p.Update("c0", 0)
	}
	wg.Wait()
	assert.Equal(t, 100.0, p.Price("c0"))
}

func TestPriceConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  PriceConfig
		ok   bool
	}{
		{"linear", PriceConfig{Model: "linear", Step: 0.1}, true},
		{"congestion", PriceConfig{Model: "congestion", Base: 1, Max: 2}, true},
		{"unknown model", PriceConfig{Model: "auction"}, false},
		{"negative step", PriceConfig{Model: "linear", Step: -1}, false},
		{"max below base", PriceConfig{Model: "congestion", Base: 2, Max: 1}, false},
		{"negative initial", PriceConfig{Model: "linear", Initial: -1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
	assert.Panics(t, func() { NewPriceController(PriceConfig{Model: "auction"}) })
}
