package sim

import (
	"fmt"
	"sort"
)

type bufferEntry struct {
	chunk   *Chunk
	cachers map[UserID]struct{}
	seq     uint64 // admission order
}

// Buffer is the capacity-bounded chunk store of one (cell, policy) pair.
// It owns the CachedOrderByGain mirror, so admit and evict keep both in sync.
type Buffer struct {
	capacity int64
	used     int64
	seq      uint64
	chunks   map[ChunkID]*bufferEntry
	order    *CachedOrderByGain
}

// NewBuffer creates an empty buffer. Panics on a negative capacity.
func NewBuffer(capacityBytes int64) *Buffer {
	if capacityBytes < 0 {
		panic(fmt.Sprintf("NewBuffer: capacity must be non-negative, got %d", capacityBytes))
	}
	return &Buffer{
		capacity: capacityBytes,
		chunks:   make(map[ChunkID]*bufferEntry),
		order:    NewCachedOrderByGain(),
	}
}

// Capacity returns the buffer capacity in bytes.
func (b *Buffer) Capacity() int64 { return b.capacity }

// Used returns the bytes occupied by cached chunks.
func (b *Buffer) Used() int64 { return b.used }

// Available returns the free bytes.
func (b *Buffer) Available() int64 { return b.capacity - b.used }

// Len returns the number of cached chunks.
func (b *Buffer) Len() int { return len(b.chunks) }

// Utilization returns used/capacity in [0, 1]; an empty-capacity buffer is fully utilized.
func (b *Buffer) Utilization() float64 {
	if b.capacity == 0 {
		return 1
	}
	return float64(b.used) / float64(b.capacity)
}

// Contains reports whether the chunk is cached.
func (b *Buffer) Contains(id ChunkID) bool {
	_, ok := b.chunks[id]
	return ok
}

// Order returns the gain-order mirror of the buffer.
func (b *Buffer) Order() *CachedOrderByGain { return b.order }

// Admit caches c on behalf of user. Admitting a cached chunk only records the cacher.
// Returns ErrCapacityExceeded, leaving the buffer unchanged, if c does not fit.
func (b *Buffer) Admit(c *Chunk, user UserID) error {
	if e, ok := b.chunks[c.ID]; ok {
		e.cachers[user] = struct{}{}
		return nil
	}
	if c.SizeBytes > b.Available() {
		return fmt.Errorf("%w: chunk %s needs %d bytes, %d free", ErrCapacityExceeded, c.ID, c.SizeBytes, b.Available())
	}
	b.seq++
	b.chunks[c.ID] = &bufferEntry{chunk: c, cachers: map[UserID]struct{}{user: {}}, seq: b.seq}
	b.used += c.SizeBytes
	b.order.Add(c)
	return nil
}

// Evict removes the chunk and returns it, or nil if it was not cached.
func (b *Buffer) Evict(id ChunkID) *Chunk {
	e, ok := b.chunks[id]
	if !ok {
		return nil
	}
	delete(b.chunks, id)
	b.used -= e.chunk.SizeBytes
	b.order.Remove(id)
	return e.chunk
}

// AddCacher records user as an additional cacher of a cached chunk.
// Returns false if the chunk is not cached.
func (b *Buffer) AddCacher(id ChunkID, user UserID) bool {
	e, ok := b.chunks[id]
	if !ok {
		return false
	}
	e.cachers[user] = struct{}{}
	return true
}

// Cachers returns the users that caused or reused the cached chunk, sorted.
func (b *Buffer) Cachers(id ChunkID) []UserID {
	e, ok := b.chunks[id]
	if !ok {
		return nil
	}
	out := make([]UserID, 0, len(e.cachers))
	for u := range e.cachers {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Chunks returns the cached chunks in admission order.
func (b *Buffer) Chunks() []*Chunk {
	entries := make([]*bufferEntry, 0, len(b.chunks))
	for _, e := range b.chunks {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	out := make([]*Chunk, len(entries))
	for i, e := range entries {
		out[i] = e.chunk
	}
	return out
}
