package sim

import (
	"fmt"

	"github.com/inference-sim/cachesim/sim/stats"
)

const testPolicy = "gain"

// stubValuation returns fixed raw gains per chunk; unknown chunks are worth zero.
type stubValuation struct {
	gains map[ChunkID]float64
	errs  map[ChunkID]error
	calls int
}

func newStubValuation() *stubValuation {
	return &stubValuation{gains: make(map[ChunkID]float64), errs: make(map[ChunkID]error)}
}

func (s *stubValuation) Name() string { return "stub" }

func (s *stubValuation) Assess(c *Chunk, _ *SmallCell) (float64, error) {
	s.calls++
	if err, ok := s.errs[c.ID]; ok {
		return 0, err
	}
	return s.gains[c.ID], nil
}

// mbChunk creates a single chunk of the given size in MB.
func mbChunk(id string, sizeMB float64) *Chunk {
	return &Chunk{ID: ChunkID(id), Content: ContentID(id), SizeBytes: int64(sizeMB * BytesPerMB)}
}

func newTestCell(capacityMB float64) *SmallCell {
	return NewSmallCell("cell_0", Point{}, 100, int64(capacityMB*BytesPerMB))
}

// newTestPolicy wires a Policy around a stub valuation the way NewCachingPolicy would.
func newTestPolicy(v ValuationFunction, registry *DemandRegistry, price PriceController, veto EvictionVeto, sink stats.Sink) *Policy {
	if sink == nil {
		sink = stats.Nop{}
	}
	cmp := GainComparator{Scale: DefaultGainScale}
	return &Policy{
		name:      testPolicy,
		valuation: v,
		eviction:  NewEvictionSearch(testPolicy, v, registry, cmp, veto, sink),
		cmp:       cmp,
		price:     price,
		sink:      sink,
	}
}

// cache commits c directly into the policy buffer of cell.
func cache(cell *SmallCell, c *Chunk) {
	if err := cell.Buffer(testPolicy).Admit(c, "seed"); err != nil {
		panic(fmt.Sprintf("seeding buffer: %v", err))
	}
}

type staticPositions map[UserID]CachingUser

func (s staticPositions) User(id UserID) (CachingUser, bool) {
	u, ok := s[id]
	return u, ok
}

func chunkIDs(chunks []*Chunk) []ChunkID {
	out := make([]ChunkID, len(chunks))
	for i, c := range chunks {
		out[i] = c.ID
	}
	return out
}

func float64Ptr(v float64) *float64 { return &v }
