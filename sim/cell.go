package sim

import "sort"

// CellID identifies a small cell.
type CellID string

// SmallCell is a base station with a circular coverage area and one cache
// buffer per caching policy under comparison.
type SmallCell struct {
	ID       CellID
	Center   Point
	Radius   float64
	capacity int64
	buffers  map[string]*Buffer
}

// NewSmallCell creates a cell whose buffers each hold capacityBytes.
func NewSmallCell(id CellID, center Point, radius float64, capacityBytes int64) *SmallCell {
	return &SmallCell{
		ID:       id,
		Center:   center,
		Radius:   radius,
		capacity: capacityBytes,
		buffers:  make(map[string]*Buffer),
	}
}

// Buffer returns the buffer of the given policy, creating it on first use.
func (c *SmallCell) Buffer(policy string) *Buffer {
	b, ok := c.buffers[policy]
	if !ok {
		b = NewBuffer(c.capacity)
		c.buffers[policy] = b
	}
	return b
}

// AvailableBytes returns the free bytes of the policy's buffer.
func (c *SmallCell) AvailableBytes(policy string) int64 {
	return c.Buffer(policy).Available()
}

// Covers reports whether p lies within the cell's radius.
func (c *SmallCell) Covers(p Point) bool {
	return c.Center.Distance(p) <= c.Radius
}

// Policies returns the names of the policies that own a buffer at this cell.
func (c *SmallCell) Policies() []string {
	out := make([]string, 0, len(c.buffers))
	for name := range c.buffers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
