package stats

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

var labelNames = []string{"scenario", "cell", "policy"}

// Prometheus exports observations as Prometheus collectors: counters for
// KindCounter metrics, gauges for KindGauge and histograms for samples.
type Prometheus struct {
	counters   *prometheus.CounterVec
	gauges     *prometheus.GaugeVec
	histograms *prometheus.HistogramVec
}

// NewPrometheus registers the collectors with reg.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		counters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cachesim",
			Name:      "events_total",
			Help:      "Caching engine event counts by metric.",
		}, append([]string{"metric"}, labelNames...)),
		gauges: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "cachesim",
			Name:      "state",
			Help:      "Latest value of per-cell engine state (price, utilization).",
		}, append([]string{"metric"}, labelNames...)),
		histograms: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cachesim",
			Name:      "observation",
			Help:      "Distribution of sampled engine values such as assessed gain.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, append([]string{"metric"}, labelNames...)),
	}
	for _, c := range []prometheus.Collector{p.counters, p.gauges, p.histograms} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering stats collector: %w", err)
		}
	}
	return p, nil
}

func (p *Prometheus) Record(o Observation) {
	labels := prometheus.Labels{
		"metric":   string(o.Metric),
		"scenario": o.Scenario,
		"cell":     o.Cell,
		"policy":   o.Policy,
	}
	switch KindOf(o.Metric) {
	case KindCounter:
		if o.Value < 0 {
			return // counters cannot decrease
		}
		p.counters.With(labels).Add(o.Value)
	case KindGauge:
		p.gauges.With(labels).Set(o.Value)
	default:
		p.histograms.With(labels).Observe(o.Value)
	}
}
