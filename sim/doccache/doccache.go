// Package doccache shares chunked catalog documents between scenarios that
// draw the same catalog, so parallel runs do not each hold their own copy.
package doccache

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/cespare/xxhash"
	"github.com/cornelk/hashmap"
	"go.uber.org/atomic"

	"github.com/inference-sim/cachesim/sim"
	"github.com/inference-sim/cachesim/sim/workload"
)

// Cache interns documents by fingerprint. Documents are immutable once stored.
// Bulk loads are serialized by mu; lookups go straight to the lock-free map.
type Cache struct {
	mu   sync.Mutex
	docs *hashmap.HashMap

	hits   atomic.Int64
	misses atomic.Int64
}

var _ workload.Interner = (*Cache)(nil)

// New creates an empty cache.
func New() *Cache {
	return &Cache{docs: hashmap.New(256)}
}

// Fingerprint identifies a document by its ID and chunk layout.
func Fingerprint(s workload.DocumentSpec) uint64 {
	return xxhash.Sum64String(fmt.Sprintf("%s|%d|%d", s.ID, s.SizeBytes, s.ChunkBytes))
}

func key(s workload.DocumentSpec) string {
	return strconv.FormatUint(Fingerprint(s), 16)
}

// Intern returns a shared document for every spec, chunking the ones not seen before.
func (c *Cache) Intern(specs []workload.DocumentSpec) []*sim.Document {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*sim.Document, len(specs))
	for i, s := range specs {
		k := key(s)
		if v, ok := c.docs.GetStringKey(k); ok {
			out[i] = v.(*sim.Document)
			c.hits.Inc()
			continue
		}
		doc := sim.NewDocument(s.ID, s.SizeBytes, s.ChunkBytes)
		c.docs.Set(k, doc)
		out[i] = doc
		c.misses.Inc()
	}
	return out
}

// Lookup returns the interned document for s without taking the load lock.
func (c *Cache) Lookup(s workload.DocumentSpec) (*sim.Document, bool) {
	v, ok := c.docs.GetStringKey(key(s))
	if !ok {
		return nil, false
	}
	return v.(*sim.Document), true
}

// Len returns the number of interned documents.
func (c *Cache) Len() int { return c.docs.Len() }

// Stats returns how many interned requests were served from the cache and how
// many had to chunk a new document.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
