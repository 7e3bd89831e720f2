// Package mobility moves caching users over a grid of small cells and estimates
// how likely each user is to enter a cell soon.
package mobility

import (
	"fmt"

	"github.com/inference-sim/cachesim/sim"
)

// GridConfig lays out Rows x Cols small cells on a square lattice.
type GridConfig struct {
	Rows       int     `yaml:"rows"`
	Cols       int     `yaml:"cols"`
	SpacingM   float64 `yaml:"spacing_m"`   // distance between neighboring cell centers
	RadiusM    float64 `yaml:"radius_m"`    // coverage radius of every cell
	CapacityMB float64 `yaml:"capacity_mb"` // cache capacity per cell and policy
}

// Validate checks that the grid is non-empty and physically sensible.
func (g GridConfig) Validate() error {
	if g.Rows <= 0 || g.Cols <= 0 {
		return fmt.Errorf("grid needs at least one row and column, got %dx%d", g.Rows, g.Cols)
	}
	if g.SpacingM <= 0 {
		return fmt.Errorf("spacing_m must be positive, got %f", g.SpacingM)
	}
	if g.RadiusM <= 0 {
		return fmt.Errorf("radius_m must be positive, got %f", g.RadiusM)
	}
	if g.CapacityMB < 0 {
		return fmt.Errorf("capacity_mb must be non-negative, got %f", g.CapacityMB)
	}
	return nil
}

// Width and Height are the extent of the area users roam in.
func (g GridConfig) Width() float64  { return float64(g.Cols) * g.SpacingM }
func (g GridConfig) Height() float64 { return float64(g.Rows) * g.SpacingM }

// NewGrid builds the cells row by row. Centers sit in the middle of their lattice square.
func NewGrid(g GridConfig) []*sim.SmallCell {
	capacity := int64(g.CapacityMB * sim.BytesPerMB)
	cells := make([]*sim.SmallCell, 0, g.Rows*g.Cols)
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			center := sim.Point{
				X: (float64(c) + 0.5) * g.SpacingM,
				Y: (float64(r) + 0.5) * g.SpacingM,
			}
			id := sim.CellID(fmt.Sprintf("cell_%d_%d", r, c))
			cells = append(cells, sim.NewSmallCell(id, center, g.RadiusM, capacity))
		}
	}
	return cells
}

// Host returns the cell serving p: the nearest covering cell, or the nearest
// cell at all when p is in a coverage hole.
func Host(cells []*sim.SmallCell, p sim.Point) *sim.SmallCell {
	var best *sim.SmallCell
	bestDist := 0.0
	for _, c := range cells {
		d := p.Distance(c.Center)
		if best == nil || d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
