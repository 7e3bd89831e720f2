// Package sim provides the caching engine of the small-cell simulator.
//
// # Reading Guide
//
// Start with these three files to understand the engine:
//   - policy.go: a CachingPolicy wires a valuation, a comparator, an eviction search and an optional price
//   - admission.go: CacheDecision, the per-request admission pass over a document's chunks
//   - eviction.go: the net-gain eviction search, with the handoff-lock veto from handoff.go
//
// # Architecture
//
// The sim package holds the domain types and decision logic; everything that
// drives it lives in sub-packages:
//   - sim/scenario/: the event loop, batch runner and scenario configuration
//   - sim/mobility/: cell grid, user movement and transition probabilities
//   - sim/workload/: document catalog and request arrival processes
//   - sim/doccache/: documents shared across scenarios of a batch
//   - sim/stats/: observation sinks (aggregated report, Prometheus)
//   - sim/trace/: decision trace recording
//
// # Key Interfaces
//
//   - ValuationFunction: absolute gain of a chunk at a cell (demand, popularity, mobility)
//   - PriceController: per-cell admission price for priced policies (linear, congestion)
//   - EvictionVeto: postpones evictions of chunks a user is about to fetch
//   - PositionProvider: user positions and velocities, implemented by mobility.Tracker
//
// Every cell keeps one Buffer per policy, so policies configured side by side
// never see each other's cached chunks or demand registrations.
package sim
