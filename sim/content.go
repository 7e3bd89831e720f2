package sim

import "fmt"

// BytesPerMB converts chunk sizes to the megabyte unit gains are normalized by.
const BytesPerMB = 1 << 20

// ContentID identifies a content document.
type ContentID string

// ChunkID identifies a chunk; it is unique across all documents.
type ChunkID string

// Chunk is the immutable unit of caching. A chunk is shared by its document and
// by every buffer that caches it.
type Chunk struct {
	ID        ChunkID
	Content   ContentID
	Index     int
	SizeBytes int64
}

// SizeMB returns the chunk size in megabytes.
func (c *Chunk) SizeMB() float64 {
	return float64(c.SizeBytes) / BytesPerMB
}

func (c *Chunk) String() string {
	return string(c.ID)
}

// Document is a content item split into fixed-size chunks; the last chunk
// carries the remainder.
type Document struct {
	ID        ContentID
	SizeBytes int64
	Chunks    []*Chunk
}

// NewDocument splits a document of sizeBytes into chunks of chunkBytes.
// Panics if either size is not positive.
func NewDocument(id ContentID, sizeBytes, chunkBytes int64) *Document {
	if sizeBytes <= 0 || chunkBytes <= 0 {
		panic(fmt.Sprintf("NewDocument(%s): sizes must be positive, got size=%d chunk=%d", id, sizeBytes, chunkBytes))
	}
	n := int((sizeBytes + chunkBytes - 1) / chunkBytes)
	doc := &Document{ID: id, SizeBytes: sizeBytes, Chunks: make([]*Chunk, 0, n)}
	remaining := sizeBytes
	for i := 0; i < n; i++ {
		size := min(chunkBytes, remaining)
		doc.Chunks = append(doc.Chunks, &Chunk{
			ID:        ChunkID(fmt.Sprintf("%s#%d", id, i)),
			Content:   id,
			Index:     i,
			SizeBytes: size,
		})
		remaining -= size
	}
	return doc
}
