// Package trace provides decision-trace recording for caching policy analysis.
// This package has no dependencies on sim/ or sim/scenario/; it stores pure data types.
package trace

// AdmissionRecord captures the outcome for one requested chunk.
type AdmissionRecord struct {
	Clock          int64
	Cell           string
	Policy         string
	User           string
	Chunk          string
	Admitted       bool
	Reason         string  // skip reason, or "admitted" / "cached"
	NormalizedGain float64 // gain per MB; 0 for chunks already cached
	Price          float64 // price at decision time (priced policies only)
}

// EvictionRecord captures one eviction search.
type EvictionRecord struct {
	Clock     int64
	Cell      string
	Policy    string
	Candidate string
	Threshold float64  // candidate's normalized gain
	Evicted   []string // chunk IDs, empty unless Outcome is "found"
	Outcome   string   // "found", "aborted" or "impossible"
	Vetoed    int      // chunks skipped by the handoff lock
}
