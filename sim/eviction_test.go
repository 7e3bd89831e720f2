package sim

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/cachesim/sim/stats"
)

func TestEvictionSearch_AbortsWhenDemandedValueReachesCandidate(t *testing.T) {
	// GIVEN a 100 MB cell holding A (60 MB, gain 10, actively demanded)
	cell := newTestCell(100)
	registry := NewDemandRegistry()
	v := newStubValuation()
	a, b := mbChunk("A", 60), mbChunk("B", 50)
	v.gains["A"], v.gains["B"] = 10, 8
	cache(cell, a)
	registry.Register(cell.ID, a.ID, testPolicy, "u1", 0.5)
	agg := stats.NewAggregator()
	search := NewEvictionSearch(testPolicy, v, registry, GainComparator{}, nil, agg)

	// WHEN B (50 MB, gain 8) needs room
	res, err := search.Search(cell, b)

	// THEN A's 0.167/MB already reaches B's 0.16/MB and nothing is evicted
	require.NoError(t, err)
	assert.Equal(t, EvictionAborted, res.Outcome)
	assert.Empty(t, res.Chunks)
	assert.InDelta(t, 0.16, res.Threshold, 1e-12)
	assert.True(t, cell.Buffer(testPolicy).Contains("A"), "search must not modify the buffer")
	s, ok := agg.Lookup("", testPolicy, stats.MetricEvictionAborts)
	require.True(t, ok)
	assert.Equal(t, 1.0, s.Sum)
}

func TestEvictionSearch_LegacyChunksAreAlwaysEvictable(t *testing.T) {
	for _, candidateGain := range []float64{0, 5} {
		t.Run(fmt.Sprintf("candidate gain %v", candidateGain), func(t *testing.T) {
			// GIVEN a legacy chunk nobody demands any more
			cell := newTestCell(100)
			registry := NewDemandRegistry()
			registry.TrackCell(cell.ID)
			v := newStubValuation()
			legacy, b := mbChunk("C", 60), mbChunk("B", 50)
			v.gains["B"] = candidateGain
			cache(cell, legacy)
			search := NewEvictionSearch(testPolicy, v, registry, GainComparator{}, nil, nil)

			// WHEN room is sought for B
			evict, err := search.OptForEviction(cell, b)

			// THEN the legacy chunk is chosen
			require.NoError(t, err)
			assert.Equal(t, []ChunkID{"C"}, chunkIDs(evict))
		})
	}
}

func TestEvictionSearch_ImpossibleWhenCandidateExceedsBuffer(t *testing.T) {
	cell := newTestCell(100)
	registry := NewDemandRegistry()
	registry.TrackCell(cell.ID)
	v := newStubValuation()
	cache(cell, mbChunk("C", 60))
	big := mbChunk("huge", 150)
	v.gains["huge"] = 1000

	res, err := NewEvictionSearch(testPolicy, v, registry, GainComparator{}, nil, nil).Search(cell, big)

	require.NoError(t, err)
	assert.Equal(t, EvictionImpossible, res.Outcome)
	assert.Empty(t, res.Chunks)
}

func TestEvictionSearch_EvictsLowestGainFirst(t *testing.T) {
	// GIVEN three demanded chunks of increasing value and a valuable candidate
	cell := newTestCell(30)
	registry := NewDemandRegistry()
	v := newStubValuation()
	for i, id := range []string{"mid", "low", "high"} {
		c := mbChunk(id, 10)
		cache(cell, c)
		registry.Register(cell.ID, c.ID, testPolicy, UserID(fmt.Sprintf("u%d", i)), 0.1)
	}
	v.gains["low"], v.gains["mid"], v.gains["high"] = 1, 2, 3
	cand := mbChunk("cand", 15)
	v.gains["cand"] = 15 // 1.0 per MB

	res, err := NewEvictionSearch(testPolicy, v, registry, GainComparator{}, nil, nil).Search(cell, cand)

	// THEN the two cheapest go, in ascending order
	require.NoError(t, err)
	assert.Equal(t, EvictionFound, res.Outcome)
	assert.Equal(t, []ChunkID{"low", "mid"}, chunkIDs(res.Chunks))
}

func TestEvictionSearch_HandoffVetoSkipsWithoutAborting(t *testing.T) {
	// GIVEN demanded chunk A whose user reaches the cell in 5 s, and legacy chunk D
	newFixture := func() (*SmallCell, *DemandRegistry, *stubValuation) {
		cell := newTestCell(100)
		registry := NewDemandRegistry()
		v := newStubValuation()
		a, d := mbChunk("A", 50), mbChunk("D", 30)
		cache(cell, a)
		cache(cell, d)
		registry.Register(cell.ID, a.ID, testPolicy, "mover", 0.5)
		v.gains["A"] = 5
		v.gains["cand"] = 60
		return cell, registry, v
	}
	cand := mbChunk("cand", 60)

	t.Run("approaching user vetoes", func(t *testing.T) {
		cell, registry, v := newFixture()
		positions := staticPositions{"mover": {ID: "mover", Position: Point{X: 150}, Velocity: 10}}
		agg := stats.NewAggregator()
		veto := &HandoffLockVeto{Threshold: 10, Positions: positions}

		res, err := NewEvictionSearch(testPolicy, v, registry, GainComparator{}, veto, agg).Search(cell, cand)

		// THEN A is skipped, the search runs dry instead of aborting
		require.NoError(t, err)
		assert.Equal(t, EvictionImpossible, res.Outcome)
		assert.Equal(t, 1, res.Vetoed)
		s, ok := agg.Lookup("", testPolicy, stats.MetricHandoffVetoes)
		require.True(t, ok)
		assert.Equal(t, 1.0, s.Sum)
	})

	t.Run("stationary user never vetoes", func(t *testing.T) {
		cell, registry, v := newFixture()
		positions := staticPositions{"mover": {ID: "mover", Position: Point{X: 150}}}
		veto := &HandoffLockVeto{Threshold: 10, Positions: positions}

		res, err := NewEvictionSearch(testPolicy, v, registry, GainComparator{}, veto, nil).Search(cell, cand)

		require.NoError(t, err)
		assert.Equal(t, EvictionFound, res.Outcome)
		assert.Equal(t, []ChunkID{"D", "A"}, chunkIDs(res.Chunks))
		assert.Zero(t, res.Vetoed)
	})
}

func TestEvictionSearch_ValuationFailureIsWrapped(t *testing.T) {
	cell := newTestCell(10)
	registry := NewDemandRegistry()
	v := newStubValuation()
	cache(cell, mbChunk("bad", 8))
	boom := errors.New("boom")
	v.errs["bad"] = boom

	_, err := NewEvictionSearch(testPolicy, v, registry, GainComparator{}, nil, nil).Search(cell, mbChunk("c", 5))

	var ve *ValuationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, testPolicy, ve.Policy)
	assert.ErrorIs(t, err, boom)
}

// TestEvictionSearch_NetGainInvariant checks on random buffers that a found
// eviction set never carries demanded value at or above the candidate's gain
// per MB, and always frees enough space.
func TestEvictionSearch_NetGainInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 200; trial++ {
		cell := newTestCell(100)
		registry := NewDemandRegistry()
		registry.TrackCell(cell.ID)
		v := newStubValuation()
		buf := cell.Buffer(testPolicy)
		for i := 0; buf.Available() > 0; i++ {
			c := mbChunk(fmt.Sprintf("c%d", i), float64(1+rng.Intn(20)))
			if c.SizeBytes > buf.Available() {
				break
			}
			cache(cell, c)
			if rng.Float64() < 0.6 {
				registry.Register(cell.ID, c.ID, testPolicy, "u", rng.Float64())
				v.gains[c.ID] = rng.Float64() * c.SizeMB()
			}
		}
		cand := mbChunk("cand", float64(1+rng.Intn(60)))
		v.gains[cand.ID] = rng.Float64() * cand.SizeMB()

		res, err := NewEvictionSearch(testPolicy, v, registry, GainComparator{}, nil, nil).Search(cell, cand)
		require.NoError(t, err)
		if res.Outcome != EvictionFound {
			assert.Empty(t, res.Chunks)
			continue
		}

		freed := buf.Available()
		var demandedGain, demandedSize float64
		for _, m := range res.Chunks {
			freed += m.SizeBytes
			if _, ok := registry.Lookup(cell.ID, m.ID, testPolicy); ok {
				demandedGain += v.gains[m.ID]
				demandedSize += m.SizeMB()
			}
		}
		assert.GreaterOrEqual(t, freed, cand.SizeBytes, "trial %d", trial)
		if demandedSize > 0 {
			assert.Less(t, demandedGain/demandedSize, res.Threshold, "trial %d", trial)
		}
	}
}
