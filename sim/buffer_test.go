package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDocument_SplitsWithRemainder(t *testing.T) {
	doc := NewDocument("video", 10*BytesPerMB+1, 4*BytesPerMB)
	require.Len(t, doc.Chunks, 3)
	assert.Equal(t, ChunkID("video#0"), doc.Chunks[0].ID)
	assert.Equal(t, int64(2*BytesPerMB+1), doc.Chunks[2].SizeBytes)
	assert.InDelta(t, 4.0, doc.Chunks[0].SizeMB(), 1e-12)

	var total int64
	for _, c := range doc.Chunks {
		total += c.SizeBytes
		assert.Equal(t, ContentID("video"), c.Content)
	}
	assert.Equal(t, doc.SizeBytes, total)
}

func TestNewDocument_InvalidSizesPanic(t *testing.T) {
	assert.Panics(t, func() { NewDocument("x", 0, 1) })
	assert.Panics(t, func() { NewDocument("x", 1, 0) })
}

func TestBuffer_AdmitAndEvictKeepOrderInSync(t *testing.T) {
	// GIVEN a 10 MB buffer
	b := NewBuffer(10 * BytesPerMB)
	a, c := mbChunk("a", 4), mbChunk("c", 5)

	// WHEN two chunks are admitted
	require.NoError(t, b.Admit(a, "u1"))
	require.NoError(t, b.Admit(c, "u2"))

	// THEN usage and order mirror each other
	assert.Equal(t, int64(9*BytesPerMB), b.Used())
	assert.Equal(t, int64(1*BytesPerMB), b.Available())
	assert.Equal(t, []ChunkID{"a", "c"}, chunkIDs(b.Chunks()))
	assert.True(t, b.Order().Contains("a"))
	assert.InDelta(t, 0.9, b.Utilization(), 1e-12)

	// WHEN one is evicted
	evicted := b.Evict("a")

	// THEN it leaves both views
	assert.Same(t, a, evicted)
	assert.False(t, b.Contains("a"))
	assert.False(t, b.Order().Contains("a"))
	assert.Equal(t, 1, b.Order().Len())
	assert.Nil(t, b.Evict("a"))
}

func TestBuffer_ChunksFollowAdmissionAcrossEvictions(t *testing.T) {
	// GIVEN a buffer where the first of two chunks is evicted
	b := NewBuffer(10 * BytesPerMB)
	require.NoError(t, b.Admit(mbChunk("a", 2), "u1"))
	require.NoError(t, b.Admit(mbChunk("b", 2), "u1"))
	require.NotNil(t, b.Evict("a"))

	// WHEN a third chunk and a re-admission of the first follow
	require.NoError(t, b.Admit(mbChunk("c", 2), "u1"))
	require.NoError(t, b.Admit(mbChunk("a", 2), "u2"))

	// THEN the chunk list is in admission order and matches the gain order mirror
	assert.Equal(t, []ChunkID{"b", "c", "a"}, chunkIDs(b.Chunks()))
	assert.Equal(t, chunkIDs(b.Chunks()), chunkIDs(b.Order().Chunks()))
	assert.Equal(t, int64(6*BytesPerMB), b.Used())
}

func TestBuffer_AdmitRefusesOverflow(t *testing.T) {
	b := NewBuffer(5 * BytesPerMB)
	require.NoError(t, b.Admit(mbChunk("a", 4), "u1"))

	err := b.Admit(mbChunk("big", 2), "u1")

	assert.True(t, errors.Is(err, ErrCapacityExceeded))
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, int64(4*BytesPerMB), b.Used())
}

func TestBuffer_ReAdmitAddsCacher(t *testing.T) {
	b := NewBuffer(5 * BytesPerMB)
	a := mbChunk("a", 4)
	require.NoError(t, b.Admit(a, "u2"))
	require.NoError(t, b.Admit(a, "u1"))

	assert.Equal(t, int64(4*BytesPerMB), b.Used())
	assert.Equal(t, []UserID{"u1", "u2"}, b.Cachers("a"))
	assert.False(t, b.AddCacher("missing", "u1"))
	assert.Nil(t, b.Cachers("missing"))
}

func TestBuffer_ZeroCapacityIsFull(t *testing.T) {
	b := NewBuffer(0)
	assert.Equal(t, 1.0, b.Utilization())
	assert.Panics(t, func() { NewBuffer(-1) })
}

func TestSmallCell_BuffersPerPolicy(t *testing.T) {
	cell := NewSmallCell("c", Point{X: 0, Y: 0}, 50, 8*BytesPerMB)
	require.NoError(t, cell.Buffer("p1").Admit(mbChunk("a", 3), "u"))

	assert.Equal(t, int64(5*BytesPerMB), cell.AvailableBytes("p1"))
	assert.Equal(t, int64(8*BytesPerMB), cell.AvailableBytes("p2"))
	assert.Equal(t, []string{"p1", "p2"}, cell.Policies())
	assert.True(t, cell.Covers(Point{X: 30, Y: 40}))
	assert.False(t, cell.Covers(Point{X: 30, Y: 41}))
}
