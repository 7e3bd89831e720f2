package sim

import (
	"fmt"
	"math"
)

// HandoffLockTimes are the per-scenario handoff-lock thresholds in seconds.
// Each tuned policy selects one of them by name.
type HandoffLockTimes struct {
	A  float64 `yaml:"a"`
	B  float64 `yaml:"b"`
	C1 float64 `yaml:"c1"`
	C2 float64 `yaml:"c2"`
}

// ValidHandoffLocks is the set of recognized handoff-lock selectors; "" disables the lock.
var ValidHandoffLocks = map[string]bool{"": true, "a": true, "b": true, "c1": true, "c2": true}

// Select returns the threshold named by sel.
func (h HandoffLockTimes) Select(sel string) (float64, error) {
	switch sel {
	case "a":
		return h.A, nil
	case "b":
		return h.B, nil
	case "c1":
		return h.C1, nil
	case "c2":
		return h.C2, nil
	default:
		return 0, fmt.Errorf("unknown handoff lock %q", sel)
	}
}

// EvictionVeto can postpone the eviction of an actively demanded chunk.
type EvictionVeto interface {
	Veto(m *Chunk, info *RegistrationInfo, cell *SmallCell) bool
}

// HandoffLockVeto refuses to evict a chunk while one of its demanding users is
// expected to reach the cell within Threshold seconds.
type HandoffLockVeto struct {
	Threshold float64
	Positions PositionProvider
}

// TimeToHandoff returns the seconds user needs to reach the cell's edge at its
// current speed. Users already inside the cell get zero. Stationary users get
// +Inf: they are never about to hand off, whatever their distance.
func TimeToHandoff(u CachingUser, cell *SmallCell) float64 {
	if u.IsStationary() {
		return math.Inf(1)
	}
	gap := u.Position.Distance(cell.Center) - cell.Radius
	if gap < 0 {
		gap = 0
	}
	return gap / u.Velocity
}

// Veto reports whether any demanding user of m is within Threshold of handing off.
// Users the position provider does not know are ignored.
func (h *HandoffLockVeto) Veto(m *Chunk, info *RegistrationInfo, cell *SmallCell) bool {
	if info == nil || h.Positions == nil {
		return false
	}
	for _, id := range info.Users() {
		u, ok := h.Positions.User(id)
		if !ok {
			continue
		}
		if TimeToHandoff(u, cell) < h.Threshold {
			return true
		}
	}
	return false
}
