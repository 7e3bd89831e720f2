package mobility

import (
	"fmt"
	"math"

	"github.com/hashicorp/golang-lru/arc/v2"

	"github.com/inference-sim/cachesim/sim"
)

// transitionKey is the quantized geometry a probability depends on.
// Quantization keeps the memo small and makes nearby queries share entries.
type transitionKey struct {
	gapDm    int64 // distance to the cell edge, decimeters
	speedCms int64 // speed, cm/s
	align    int64 // cosine between heading and cell direction, hundredths
}

// TransitionEstimator estimates the probability that a user enters a cell
// within a look-ahead window, from distance, speed and heading.
//
// The estimate is (1 - t/LookaheadS) * max(0, cos θ), where t is the time to
// reach the cell edge at the current speed and θ the angle between the
// heading and the direction to the cell center. A user already inside the cell
// has probability 1; a stationary user outside has 0.
type TransitionEstimator struct {
	LookaheadS float64
	memo       *arc.ARCCache[transitionKey, float64]
}

// NewTransitionEstimator creates an estimator memoizing up to memoSize distinct geometries.
func NewTransitionEstimator(lookaheadS float64, memoSize int) (*TransitionEstimator, error) {
	if lookaheadS <= 0 {
		return nil, fmt.Errorf("lookahead must be positive, got %f", lookaheadS)
	}
	memo, err := arc.NewARC[transitionKey, float64](memoSize)
	if err != nil {
		return nil, fmt.Errorf("creating transition memo: %w", err)
	}
	return &TransitionEstimator{LookaheadS: lookaheadS, memo: memo}, nil
}

// Probability returns the chance that u, travelling along heading, enters cell
// within the look-ahead window.
func (e *TransitionEstimator) Probability(u sim.CachingUser, heading sim.Point, cell *sim.SmallCell) float64 {
	if cell.Covers(u.Position) {
		return 1
	}
	if u.IsStationary() {
		return 0
	}
	toCell := unit(sim.Point{X: cell.Center.X - u.Position.X, Y: cell.Center.Y - u.Position.Y})
	align := heading.X*toCell.X + heading.Y*toCell.Y
	gap := u.Position.Distance(cell.Center) - cell.Radius

	key := transitionKey{
		gapDm:    int64(math.Round(gap * 10)),
		speedCms: int64(math.Round(u.Velocity * 100)),
		align:    int64(math.Round(align * 100)),
	}
	if p, ok := e.memo.Get(key); ok {
		return p
	}
	p := e.compute(key)
	e.memo.Add(key, p)
	return p
}

func (e *TransitionEstimator) compute(k transitionKey) float64 {
	align := float64(k.align) / 100
	speed := float64(k.speedCms) / 100
	if align <= 0 || speed <= 0 {
		return 0
	}
	t := float64(k.gapDm) / 10 / speed
	if t >= e.LookaheadS {
		return 0
	}
	return math.Min(1, (1-t/e.LookaheadS)*align)
}

// MemoLen reports how many geometries are memoized.
func (e *TransitionEstimator) MemoLen() int { return e.memo.Len() }
