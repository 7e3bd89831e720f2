package workload

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/inference-sim/cachesim/sim"
)

// DocumentSpec identifies one catalog document before it is chunked.
type DocumentSpec struct {
	ID         sim.ContentID
	SizeBytes  int64
	ChunkBytes int64
}

// Interner turns document specs into shared chunked documents.
// A nil Interner makes the catalog chunk its own documents.
type Interner interface {
	Intern(specs []DocumentSpec) []*sim.Document
}

// Catalog is the ranked set of documents users request. Rank 0 is the most popular.
type Catalog struct {
	docs []*sim.Document
	zipf *rand.Zipf
}

// DocumentSpecs draws the catalog's document sizes from rng.
// Panics if the size distribution is invalid; call Validate first.
func DocumentSpecs(spec *WorkloadSpec, rng *rand.Rand) []DocumentSpec {
	sizes, err := NewSizeSampler(spec.SizeDist, spec.MinSizeMB, spec.MaxSizeMB)
	if err != nil {
		panic(fmt.Sprintf("workload: %v", err))
	}
	chunk := int64(spec.ChunkMB * sim.BytesPerMB)
	out := make([]DocumentSpec, spec.Documents)
	for i := range out {
		sizeMB := math.Min(spec.MaxSizeMB, math.Max(spec.MinSizeMB, sizes.Sample(rng)))
		size := int64(sizeMB * sim.BytesPerMB)
		if size < 1 {
			size = 1
		}
		out[i] = DocumentSpec{ID: sim.ContentID(fmt.Sprintf("doc_%04d", i)), SizeBytes: size, ChunkBytes: chunk}
	}
	return out
}

// NewCatalog builds the catalog. Sizes are drawn from rng, which then drives
// popularity sampling; pass a dedicated subsystem stream.
func NewCatalog(spec *WorkloadSpec, rng *rand.Rand, interner Interner) *Catalog {
	specs := DocumentSpecs(spec, rng)
	var docs []*sim.Document
	if interner != nil {
		docs = interner.Intern(specs)
	} else {
		docs = make([]*sim.Document, len(specs))
		for i, ds := range specs {
			docs[i] = sim.NewDocument(ds.ID, ds.SizeBytes, ds.ChunkBytes)
		}
	}
	return &Catalog{
		docs: docs,
		zipf: rand.NewZipf(rng, spec.ZipfS, spec.ZipfV, uint64(len(docs)-1)),
	}
}

// Len returns the number of documents.
func (c *Catalog) Len() int { return len(c.docs) }

// Document returns the document at popularity rank.
func (c *Catalog) Document(rank int) *sim.Document { return c.docs[rank] }

// Sample draws a document by Zipf popularity.
func (c *Catalog) Sample() *sim.Document {
	return c.docs[c.zipf.Uint64()]
}
