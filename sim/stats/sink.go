// Package stats collects scalar observations reported by the caching engine.
// Sinks are a side channel: Record never returns an error and nothing it does can
// change a caching decision. This package has no dependencies on sim/.
package stats

// Metric names an observed quantity.
type Metric string

const (
	MetricAssessedGain   Metric = "assessed_gain"   // normalized gain of a requested chunk
	MetricPrice          Metric = "price"           // congestion price after an update
	MetricUtilization    Metric = "utilization"     // buffer fill ratio after a decision
	MetricAdmissions     Metric = "admissions"      // chunks admitted
	MetricAdmittedBytes  Metric = "admitted_bytes"  // bytes admitted
	MetricReplacements   Metric = "replacements"    // chunks evicted to make room
	MetricSkips          Metric = "skips"           // chunks not admitted
	MetricEvictionAborts Metric = "eviction_aborts" // searches stopped by the net-gain rule
	MetricHandoffVetoes  Metric = "handoff_vetoes"  // evictions postponed by the handoff lock
	MetricCancellations  Metric = "cancellations"   // demand registrations cancelled
	MetricHits           Metric = "hits"            // requests fully served from the host cell
	MetricMisses         Metric = "misses"          // requests with at least one missing chunk
	MetricHitBytes       Metric = "hit_bytes"       // bytes served from cache
)

// Kind tells exporters how to aggregate a metric.
type Kind int

const (
	KindCounter Kind = iota // values are summed
	KindGauge               // last value wins
	KindSample              // values form a distribution
)

var metricKinds = map[Metric]Kind{
	MetricAssessedGain:   KindSample,
	MetricPrice:          KindGauge,
	MetricUtilization:    KindGauge,
	MetricAdmissions:     KindCounter,
	MetricAdmittedBytes:  KindCounter,
	MetricReplacements:   KindCounter,
	MetricSkips:          KindCounter,
	MetricEvictionAborts: KindCounter,
	MetricHandoffVetoes:  KindCounter,
	MetricCancellations:  KindCounter,
	MetricHits:           KindCounter,
	MetricMisses:         KindCounter,
	MetricHitBytes:       KindCounter,
}

// KindOf returns the aggregation kind of m. Unknown metrics are samples.
func KindOf(m Metric) Kind {
	if k, ok := metricKinds[m]; ok {
		return k
	}
	return KindSample
}

// Observation is one reported value.
type Observation struct {
	Scenario string
	Cell     string
	Policy   string
	Metric   Metric
	Value    float64
	Clock    int64
}

// Sink receives observations.
type Sink interface {
	Record(o Observation)
}

// Nop discards every observation.
type Nop struct{}

func (Nop) Record(Observation) {}

// Fanout forwards every observation to each sink in order.
type Fanout []Sink

func (f Fanout) Record(o Observation) {
	for _, s := range f {
		s.Record(o)
	}
}

type scoped struct {
	next     Sink
	scenario string
}

func (s scoped) Record(o Observation) {
	o.Scenario = s.scenario
	s.next.Record(o)
}

// WithScenario stamps every observation passed to the returned sink with scenario.
// A nil sink yields Nop.
func WithScenario(next Sink, scenario string) Sink {
	if next == nil {
		return Nop{}
	}
	return scoped{next: next, scenario: scenario}
}
