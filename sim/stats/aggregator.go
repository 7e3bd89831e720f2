package stats

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat"
)

type seriesKey struct {
	scenario string
	policy   string
	metric   Metric
}

// Aggregator keeps observations in memory, grouped by scenario, policy and metric.
// Safe for concurrent use by parallel scenarios.
type Aggregator struct {
	mu     sync.Mutex
	series map[seriesKey][]float64
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{series: make(map[seriesKey][]float64)}
}

func (a *Aggregator) Record(o Observation) {
	a.mu.Lock()
	defer a.mu.Unlock()
	k := seriesKey{scenario: o.Scenario, policy: o.Policy, metric: o.Metric}
	a.series[k] = append(a.series[k], o.Value)
}

// Summary describes one series.
type Summary struct {
	Scenario string
	Policy   string
	Metric   Metric
	Count    int
	Sum      float64
	Last     float64
	Mean     float64
	StdDev   float64
	P50      float64
	P95      float64
	Max      float64
}

// Summaries returns one summary per series, sorted by scenario, policy, metric.
func (a *Aggregator) Summaries() []Summary {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Summary, 0, len(a.series))
	for k, values := range a.series {
		out = append(out, summarize(k, values))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Scenario != out[j].Scenario {
			return out[i].Scenario < out[j].Scenario
		}
		if out[i].Policy != out[j].Policy {
			return out[i].Policy < out[j].Policy
		}
		return out[i].Metric < out[j].Metric
	})
	return out
}

// Lookup returns the summary of one series.
func (a *Aggregator) Lookup(scenario, policy string, m Metric) (Summary, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	k := seriesKey{scenario: scenario, policy: policy, metric: m}
	values, ok := a.series[k]
	if !ok {
		return Summary{}, false
	}
	return summarize(k, values), true
}

func summarize(k seriesKey, values []float64) Summary {
	s := Summary{Scenario: k.scenario, Policy: k.policy, Metric: k.metric, Count: len(values)}
	if len(values) == 0 {
		return s
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	for _, v := range values {
		s.Sum += v
	}
	s.Last = values[len(values)-1]
	s.Mean = stat.Mean(values, nil)
	if len(values) > 1 {
		s.StdDev = stat.StdDev(values, nil)
	}
	s.P50 = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	s.P95 = stat.Quantile(0.95, stat.Empirical, sorted, nil)
	s.Max = sorted[len(sorted)-1]
	return s
}

// Print writes a per-scenario, per-policy report to w.
func (a *Aggregator) Print(w io.Writer) {
	var scenario, policy string
	first := true
	for _, s := range a.Summaries() {
		if first || s.Scenario != scenario || s.Policy != policy {
			scenario, policy, first = s.Scenario, s.Policy, false
			fmt.Fprintf(w, "=== Scenario %s / policy %s ===\n", scenario, policy)
		}
		switch KindOf(s.Metric) {
		case KindCounter:
			fmt.Fprintf(w, "%-16s: %.0f\n", s.Metric, s.Sum)
		case KindGauge:
			fmt.Fprintf(w, "%-16s: last=%.4f max=%.4f\n", s.Metric, s.Last, s.Max)
		default:
			fmt.Fprintf(w, "%-16s: n=%d mean=%.4f sd=%.4f p50=%.4f p95=%.4f\n",
				s.Metric, s.Count, s.Mean, s.StdDev, s.P50, s.P95)
		}
	}
}
