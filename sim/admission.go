package sim

import (
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/cachesim/sim/stats"
	"github.com/inference-sim/cachesim/sim/trace"
)

// SkipReason explains why a requested chunk was not admitted.
type SkipReason string

const (
	SkipZeroGain     SkipReason = "zero-gain"     // worthless and would need an eviction
	SkipRepeatedGain SkipReason = "repeated-gain" // same gain as the chunk skipped just before
	SkipBelowPrice   SkipReason = "below-price"   // normalized gain under the congestion price
	SkipNoEviction   SkipReason = "no-eviction"   // eviction search aborted or found no room
)

// CacheRequest presents the chunks one user needs, in caching order, for the
// target cell. Host is the cell currently serving the user; it is never modified.
type CacheRequest struct {
	Clock  int64
	User   UserID
	Chunks []*Chunk
	Host   *SmallCell
	Target *SmallCell
}

// SkippedChunk pairs a skipped chunk with its reason.
type SkippedChunk struct {
	Chunk  *Chunk
	Reason SkipReason
}

// Decision is the outcome of CacheDecision.
type Decision struct {
	BytesAdmitted int64
	Admitted      []*Chunk
	Replaced      []*Chunk // evicted to make room, in eviction order
	Recached      []*Chunk // already cached; the user was added as a cacher
	Skipped       []SkippedChunk
}

// CacheDecision admits, skips or evicts-then-admits every chunk of req at the
// target cell, in order.
//
// A ValuationError stops processing and is returned together with the decision
// so far; chunks committed before the failure stay committed. A
// CapacityInvariantViolation means an eviction set did not free enough space and
// is fatal to the caller.
func (p *Policy) CacheDecision(req CacheRequest) (Decision, error) {
	var d Decision
	target := req.Target
	buf := target.Buffer(p.name)

	var lastSkipped float64
	var lastSkippedSize int64
	haveSkipped := false
	skip := func(c *Chunk, norm float64, reason SkipReason) {
		d.Skipped = append(d.Skipped, SkippedChunk{Chunk: c, Reason: reason})
		lastSkipped, lastSkippedSize, haveSkipped = norm, c.SizeBytes, true
		p.observe(target, stats.MetricSkips, 1, req.Clock)
		p.trace.RecordAdmission(trace.AdmissionRecord{
			Clock: req.Clock, Cell: string(target.ID), Policy: p.name, User: string(req.User),
			Chunk: string(c.ID), Reason: string(reason), NormalizedGain: norm, Price: p.Price(target.ID),
		})
	}

	defer func() {
		p.observe(target, stats.MetricUtilization, buf.Utilization(), req.Clock)
	}()

	for _, c := range req.Chunks {
		if buf.Contains(c.ID) {
			buf.AddCacher(c.ID, req.User)
			d.Recached = append(d.Recached, c)
			p.trace.RecordAdmission(trace.AdmissionRecord{
				Clock: req.Clock, Cell: string(target.ID), Policy: p.name, User: string(req.User),
				Chunk: string(c.ID), Admitted: true, Reason: "cached",
			})
			continue
		}

		norm, err := NormalizedGain(p.valuation, c, target)
		if err != nil {
			return d, wrapValuationError(err, p.name, target, c)
		}
		p.observe(target, stats.MetricAssessedGain, norm, req.Clock)

		fits := buf.Available() >= c.SizeBytes
		if norm == 0 && !fits {
			skip(c, norm, SkipZeroGain)
			continue
		}
		if p.price == nil {
			// With the buffer unchanged, a chunk at least as large as the last
			// skipped one and worth the same per MB cannot fare better.
			if haveSkipped && !fits && norm == lastSkipped && c.SizeBytes >= lastSkippedSize {
				skip(c, norm, SkipRepeatedGain)
				continue
			}
		} else if price := p.price.Price(target.ID); norm < price {
			skip(c, norm, SkipBelowPrice)
			continue
		}

		if !fits {
			res, err := p.eviction.Search(target, c)
			if err != nil {
				return d, err
			}
			p.traceEviction(req.Clock, target, c, res)
			if len(res.Chunks) == 0 {
				skip(c, norm, SkipNoEviction)
				continue
			}
			for _, m := range res.Chunks {
				buf.Evict(m.ID)
				d.Replaced = append(d.Replaced, m)
			}
			p.observe(target, stats.MetricReplacements, float64(len(res.Chunks)), req.Clock)
		}

		if err := buf.Admit(c, req.User); err != nil {
			logrus.Errorf("commit of %s at %s under %s failed: %v", c.ID, target.ID, p.name, err)
			return d, &CapacityInvariantViolation{
				Policy: p.name, Cell: target.ID, Chunk: c.ID,
				Required: c.SizeBytes, Available: buf.Available(),
			}
		}
		d.BytesAdmitted += c.SizeBytes
		d.Admitted = append(d.Admitted, c)
		// Space changed, so the previous skip says nothing about the next chunk.
		haveSkipped = false
		p.observe(target, stats.MetricAdmissions, 1, req.Clock)
		p.observe(target, stats.MetricAdmittedBytes, float64(c.SizeBytes), req.Clock)

		var price float64
		if p.price != nil {
			price = p.price.Update(target.ID, buf.Utilization())
			p.observe(target, stats.MetricPrice, price, req.Clock)
		}
		p.trace.RecordAdmission(trace.AdmissionRecord{
			Clock: req.Clock, Cell: string(target.ID), Policy: p.name, User: string(req.User),
			Chunk: string(c.ID), Admitted: true, Reason: "admitted", NormalizedGain: norm, Price: price,
		})
	}
	logrus.Debugf("[tick %07d] %s at %s: admitted %d chunks (%d bytes), replaced %d, skipped %d",
		req.Clock, p.name, target.ID, len(d.Admitted), d.BytesAdmitted, len(d.Replaced), len(d.Skipped))
	return d, nil
}

func (p *Policy) traceEviction(clock int64, cell *SmallCell, candidate *Chunk, res EvictionResult) {
	if p.trace == nil {
		return
	}
	ids := make([]string, len(res.Chunks))
	for i, c := range res.Chunks {
		ids[i] = string(c.ID)
	}
	p.trace.RecordEviction(trace.EvictionRecord{
		Clock: clock, Cell: string(cell.ID), Policy: p.name, Candidate: string(candidate.ID),
		Threshold: res.Threshold, Evicted: ids, Outcome: string(res.Outcome), Vetoed: res.Vetoed,
	})
}
