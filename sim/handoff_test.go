package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimeToHandoff(t *testing.T) {
	cell := NewSmallCell("c", Point{}, 100, BytesPerMB)
	tests := []struct {
		name string
		user CachingUser
		want float64
	}{
		{"outside moving", CachingUser{Position: Point{X: 300}, Velocity: 20}, 10},
		{"inside", CachingUser{Position: Point{X: 30, Y: 40}, Velocity: 5}, 0},
		{"stationary far away", CachingUser{Position: Point{X: 1e6}}, math.Inf(1)},
		{"stationary inside", CachingUser{Position: Point{}}, math.Inf(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TimeToHandoff(tt.user, cell))
		})
	}
}

func TestHandoffLockVeto(t *testing.T) {
	cell := NewSmallCell("c", Point{}, 100, BytesPerMB)
	positions := staticPositions{
		"near": {ID: "near", Position: Point{X: 120}, Velocity: 10}, // 2 s
		"far":  {ID: "far", Position: Point{X: 1100}, Velocity: 10}, // 100 s
	}
	veto := &HandoffLockVeto{Threshold: 5, Positions: positions}
	registry := NewDemandRegistry()
	registry.Register(cell.ID, "x", testPolicy, "far", 0.5)
	registry.Register(cell.ID, "x", testPolicy, "ghost", 0.5)
	info, _ := registry.Lookup(cell.ID, "x", testPolicy)

	assert.False(t, veto.Veto(mbChunk("x", 1), info, cell), "far and unknown users do not veto")

	registry.Register(cell.ID, "x", testPolicy, "near", 0.1)
	assert.True(t, veto.Veto(mbChunk("x", 1), info, cell))
	assert.False(t, veto.Veto(mbChunk("x", 1), nil, cell))
}

func TestHandoffLockTimes_Select(t *testing.T) {
	h := HandoffLockTimes{A: 1, B: 2, C1: 3, C2: 4}
	for sel, want := range map[string]float64{"a": 1, "b": 2, "c1": 3, "c2": 4} {
		got, err := h.Select(sel)
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := h.Select("d")
	assert.Error(t, err)
}
