package sim

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/cachesim/sim/stats"
)

// EvictionOutcome classifies how an eviction search ended.
type EvictionOutcome string

const (
	// EvictionFound means enough space was freed without violating the net-gain rule.
	EvictionFound EvictionOutcome = "found"
	// EvictionAborted means the actively demanded value evicted so far reached the
	// candidate's normalized gain.
	EvictionAborted EvictionOutcome = "aborted"
	// EvictionImpossible means the buffer ran out of evictable chunks.
	EvictionImpossible EvictionOutcome = "impossible"
)

// EvictionResult is the detailed outcome of EvictionSearch.Search.
// Chunks is empty unless Outcome is EvictionFound.
type EvictionResult struct {
	Chunks    []*Chunk
	Outcome   EvictionOutcome
	Threshold float64
	Vetoed    int
}

// EvictionSearch selects which cached chunks to evict for a candidate.
// It never evicts actively demanded value worth as much per MB as the candidate.
type EvictionSearch struct {
	policy    string
	valuation ValuationFunction
	registry  *DemandRegistry
	cmp       GainComparator
	veto      EvictionVeto
	sink      stats.Sink
}

// NewEvictionSearch creates a search for policy. veto may be nil.
func NewEvictionSearch(policy string, valuation ValuationFunction, registry *DemandRegistry,
	cmp GainComparator, veto EvictionVeto, sink stats.Sink) *EvictionSearch {
	if sink == nil {
		sink = stats.Nop{}
	}
	return &EvictionSearch{
		policy:    policy,
		valuation: valuation,
		registry:  registry,
		cmp:       cmp,
		veto:      veto,
		sink:      sink,
	}
}

// OptForEviction returns the chunks to evict so candidate fits in the cell's
// buffer, or an empty slice when no justified eviction exists.
func (e *EvictionSearch) OptForEviction(cell *SmallCell, candidate *Chunk) ([]*Chunk, error) {
	res, err := e.Search(cell, candidate)
	if err != nil {
		return nil, err
	}
	return res.Chunks, nil
}

// Search pops cached chunks in ascending gain order until candidate fits.
//
// Chunks with active demand add their size and gain to the running totals; once
// evictedGain/evictedSize reaches the candidate's normalized gain the search is
// aborted and nothing is evicted. Legacy-cached chunks (no active demand) are free
// to evict. A veto skips a chunk for this round without aborting the search.
// The buffer itself is not modified.
func (e *EvictionSearch) Search(cell *SmallCell, candidate *Chunk) (EvictionResult, error) {
	threshold, err := NormalizedGain(e.valuation, candidate, cell)
	if err != nil {
		return EvictionResult{}, e.wrap(err, cell, candidate)
	}
	res := EvictionResult{Threshold: threshold}

	buf := cell.Buffer(e.policy)
	required := candidate.SizeBytes
	free := buf.Available()

	ws, err := buf.Order().WorkingSet(e.cmp, func(c *Chunk) (float64, error) {
		return NormalizedGain(e.valuation, c, cell)
	})
	if err != nil {
		return EvictionResult{}, e.wrap(err, cell, candidate)
	}

	var evicted []*Chunk
	var evictedSize, evictedGain float64
	for free < required && ws.Len() > 0 {
		m, _ := ws.Pop()
		info, ok := e.registry.Lookup(cell.ID, m.ID, e.policy)
		if ok && !info.IsEmpty() {
			if e.veto != nil && e.veto.Veto(m, info, cell) {
				res.Vetoed++
				continue
			}
			gain, err := e.valuation.Assess(m, cell)
			if err != nil {
				return EvictionResult{}, e.wrap(err, cell, m)
			}
			evictedSize += m.SizeMB()
			evictedGain += gain
			if evictedSize > 0 && evictedGain/evictedSize >= threshold {
				logrus.Debugf("eviction for %s at %s aborted: evicted gain %.4f/MB >= %.4f/MB",
					candidate.ID, cell.ID, evictedGain/evictedSize, threshold)
				res.Outcome = EvictionAborted
				e.report(cell, res)
				return res, nil
			}
		}
		evicted = append(evicted, m)
		free += m.SizeBytes
	}

	if free < required {
		res.Outcome = EvictionImpossible
		e.report(cell, res)
		return res, nil
	}
	res.Chunks = evicted
	res.Outcome = EvictionFound
	e.report(cell, res)
	return res, nil
}

func (e *EvictionSearch) report(cell *SmallCell, res EvictionResult) {
	if res.Outcome == EvictionAborted {
		e.sink.Record(stats.Observation{Cell: string(cell.ID), Policy: e.policy, Metric: stats.MetricEvictionAborts, Value: 1})
	}
	if res.Vetoed > 0 {
		e.sink.Record(stats.Observation{Cell: string(cell.ID), Policy: e.policy, Metric: stats.MetricHandoffVetoes, Value: float64(res.Vetoed)})
	}
}

func (e *EvictionSearch) wrap(err error, cell *SmallCell, c *Chunk) error {
	return wrapValuationError(err, e.policy, cell, c)
}

// wrapValuationError ensures valuation failures surface as *ValuationError.
func wrapValuationError(err error, policy string, cell *SmallCell, c *Chunk) error {
	var ve *ValuationError
	if errors.As(err, &ve) {
		return err
	}
	return &ValuationError{Policy: policy, Cell: cell.ID, Chunk: c.ID, Err: err}
}
