package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalDecisions   int
	AdmittedCount    int
	SkippedCount     int
	SkipReasons      map[string]int // reason → count
	EvictionSearches int
	EvictionOutcomes map[string]int // outcome → count
	EvictedChunks    int
	Vetoes           int
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		SkipReasons:      make(map[string]int),
		EvictionOutcomes: make(map[string]int),
	}
	if st == nil {
		return summary
	}

	for _, a := range st.Admissions {
		if a.Reason == "cached" {
			continue // re-requests are not decisions
		}
		summary.TotalDecisions++
		if a.Admitted {
			summary.AdmittedCount++
		} else {
			summary.SkippedCount++
			summary.SkipReasons[a.Reason]++
		}
	}

	summary.EvictionSearches = len(st.Evictions)
	for _, e := range st.Evictions {
		summary.EvictionOutcomes[e.Outcome]++
		summary.EvictedChunks += len(e.Evicted)
		summary.Vetoes += e.Vetoed
	}
	return summary
}
