package sim

import (
	"github.com/inference-sim/cachesim/sim/internal/pq"
)

// DefaultGainScale is the comparator resolution used when a policy does not set one.
const DefaultGainScale = 1000

// GainComparator is the eviction ordering over normalized gains (gain per MB).
//
// The difference of two gains is multiplied by Scale and truncated toward zero,
// so gains closer than 1/Scale compare equal and fall back to insertion order.
// Ties are not transitive: with Scale 1000, 0 ties 0.0006 and 0.0006 ties 0.0012
// but 0 is below 0.0012, so a working set may pop a near-tie before the true minimum.
type GainComparator struct {
	Scale float64
}

// Compare returns -1, 0 or +1 as a is below, tied with, or above b.
func (c GainComparator) Compare(a, b float64) int {
	scale := c.Scale
	if scale <= 0 {
		scale = DefaultGainScale
	}
	d := (a - b) * scale
	switch {
	case d >= 1:
		return 1
	case d <= -1:
		return -1
	default:
		// |d| < 1 truncates to zero; NaN lands here too.
		return 0
	}
}

type orderEntry struct {
	chunk *Chunk
	seq   uint64
}

// CachedOrderByGain tracks the chunks cached in one buffer together with their
// insertion sequence. Its membership always equals the owning buffer's; the gain
// ordering is materialized on demand by WorkingSet because gains move with demand.
type CachedOrderByGain struct {
	seq     uint64
	entries map[ChunkID]orderEntry
}

// NewCachedOrderByGain creates an empty order.
func NewCachedOrderByGain() *CachedOrderByGain {
	return &CachedOrderByGain{entries: make(map[ChunkID]orderEntry)}
}

// Add inserts c. Adding a chunk twice keeps its original position.
func (o *CachedOrderByGain) Add(c *Chunk) {
	if _, ok := o.entries[c.ID]; ok {
		return
	}
	o.seq++
	o.entries[c.ID] = orderEntry{chunk: c, seq: o.seq}
}

// Remove deletes the chunk and reports whether it was present.
func (o *CachedOrderByGain) Remove(id ChunkID) bool {
	if _, ok := o.entries[id]; !ok {
		return false
	}
	delete(o.entries, id)
	return true
}

// Contains reports whether id is tracked.
func (o *CachedOrderByGain) Contains(id ChunkID) bool {
	_, ok := o.entries[id]
	return ok
}

// Len returns the number of tracked chunks.
func (o *CachedOrderByGain) Len() int {
	return len(o.entries)
}

// Chunks returns the tracked chunks in insertion order.
func (o *CachedOrderByGain) Chunks() []*Chunk {
	entries := o.sortedEntries()
	out := make([]*Chunk, len(entries))
	for i, e := range entries {
		out[i] = e.chunk
	}
	return out
}

func (o *CachedOrderByGain) sortedEntries() []orderEntry {
	h := pq.NewHeap(func(a, b orderEntry) bool { return a.seq < b.seq })
	for _, e := range o.entries {
		h.Push(e)
	}
	out := make([]orderEntry, 0, h.Len())
	for h.Len() > 0 {
		out = append(out, h.Pop())
	}
	return out
}

type scoredChunk struct {
	chunk *Chunk
	score float64
	seq   uint64
}

// WorkingSet is a throwaway min-heap over the cached chunks, ordered by the
// comparator at the moment it was built. Popping from it never touches the buffer.
type WorkingSet struct {
	heap *pq.Heap[scoredChunk]
}

// WorkingSet scores every tracked chunk once with score (normalized gain) and
// returns a min-heap ordered by cmp, ties by insertion order.
// The first scoring error aborts the snapshot.
func (o *CachedOrderByGain) WorkingSet(cmp GainComparator, score func(*Chunk) (float64, error)) (*WorkingSet, error) {
	h := pq.NewHeap(func(a, b scoredChunk) bool {
		if c := cmp.Compare(a.score, b.score); c != 0 {
			return c < 0
		}
		return a.seq < b.seq
	})
	// Score in insertion order so valuation side effects (stats) are deterministic.
	for _, e := range o.sortedEntries() {
		s, err := score(e.chunk)
		if err != nil {
			return nil, err
		}
		h.Push(scoredChunk{chunk: e.chunk, score: s, seq: e.seq})
	}
	return &WorkingSet{heap: h}, nil
}

// Len returns the number of chunks not yet popped.
func (w *WorkingSet) Len() int {
	return w.heap.Len()
}

// Pop removes and returns the minimum chunk and the score it was ordered by.
func (w *WorkingSet) Pop() (*Chunk, float64) {
	sc := w.heap.Pop()
	return sc.chunk, sc.score
}
