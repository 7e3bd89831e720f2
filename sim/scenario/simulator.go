package scenario

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/cachesim/sim"
	"github.com/inference-sim/cachesim/sim/internal/pq"
	"github.com/inference-sim/cachesim/sim/mobility"
	"github.com/inference-sim/cachesim/sim/stats"
	"github.com/inference-sim/cachesim/sim/trace"
	"github.com/inference-sim/cachesim/sim/workload"
)

const transitionMemoSize = 4096

// Options are the collaborators shared with other scenarios of a batch.
type Options struct {
	Sink       stats.Sink        // nil discards observations
	TraceLevel trace.TraceLevel  // "" or none disables decision tracing
	Docs       workload.Interner // nil chunks the catalog privately
}

// Result summarizes a finished scenario.
type Result struct {
	Name     string
	Requests int
	// Utilization is the mean buffer utilization over all cells, per policy.
	Utilization map[string]float64
	Trace       *trace.TraceSummary // nil when tracing is off
	Err         error               // set when the scenario was aborted
}

// Simulator runs one scenario. It owns its cells, registry and policies and is
// driven from a single goroutine.
type Simulator struct {
	cfg       Config
	log       *logrus.Entry
	rng       *sim.PartitionedRNG
	cells     []*sim.SmallCell
	cellByID  map[sim.CellID]*sim.SmallCell
	registry  *sim.DemandRegistry
	tracker   *mobility.Tracker
	estimator *mobility.TransitionEstimator
	catalog   *workload.Catalog
	arrivals  workload.ArrivalSampler
	policies  []*sim.Policy
	sink      stats.Sink
	trace     *trace.SimulationTrace

	events   *EventHeap
	clock    int64
	horizon  int64
	nextID   uint64
	requests int
	// demand holds the cells where each user currently has registrations.
	demand map[sim.UserID]map[sim.CellID]bool
}

// NewSimulator validates cfg and builds the scenario's initial state: cells,
// users at their starting positions and the first request of every user.
func NewSimulator(cfg Config, opts Options) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	estimator, err := mobility.NewTransitionEstimator(cfg.LookaheadS, transitionMemoSize)
	if err != nil {
		return nil, err
	}
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed))
	sink := stats.WithScenario(opts.Sink, cfg.Name)

	s := &Simulator{
		cfg:       cfg,
		log:       logrus.WithField("scenario", cfg.Name),
		rng:       rng,
		cells:     mobility.NewGrid(cfg.Grid),
		cellByID:  make(map[sim.CellID]*sim.SmallCell),
		registry:  sim.NewDemandRegistry(),
		tracker:   mobility.NewTracker(cfg.Mobility, cfg.Grid.Width(), cfg.Grid.Height()),
		estimator: estimator,
		catalog:   workload.NewCatalog(&cfg.Workload, rng.ForSubsystem(sim.SubsystemWorkload), opts.Docs),
		arrivals:  workload.NewArrivalSampler(cfg.Workload.Arrival, cfg.Workload.RatePerUser),
		sink:      sink,
		trace:     trace.NewSimulationTrace(trace.TraceConfig{Level: opts.TraceLevel}),
		events:    NewEventHeap(),
		horizon:   seconds(cfg.HorizonS),
		demand:    make(map[sim.UserID]map[sim.CellID]bool),
	}
	for _, c := range s.cells {
		s.cellByID[c.ID] = c
		s.registry.TrackCell(c.ID)
	}
	for _, pc := range cfg.Policies {
		s.policies = append(s.policies, sim.NewCachingPolicy(pc, sim.PolicyDeps{
			Registry:         s.registry,
			Positions:        s.tracker,
			HandoffLockTimes: cfg.HandoffLockTimes,
			Sink:             sink,
			Trace:            s.trace,
		}))
	}

	moves := rng.ForSubsystem(sim.SubsystemMobility)
	for i := 0; i < cfg.Users; i++ {
		id := sim.UserID(fmt.Sprintf("user_%03d", i))
		s.tracker.Spawn(id, moves)
		s.scheduleRequest(id)
	}
	s.schedule(&MoveEvent{time: seconds(cfg.StepS), id: s.newID()})
	return s, nil
}

func (s *Simulator) newID() uint64 {
	s.nextID++
	return s.nextID
}

func (s *Simulator) schedule(e Event) {
	if e.Timestamp() > s.horizon {
		return
	}
	s.events.Schedule(e)
}

func (s *Simulator) scheduleRequest(user sim.UserID) {
	iat := s.arrivals.SampleIAT(s.rng.ForSubsystem(sim.SubsystemUser(user)))
	s.schedule(&RequestEvent{time: s.clock + iat, id: s.newID(), user: user})
}

// Run processes events until the horizon. A ValuationError or a
// CapacityInvariantViolation stops the scenario and is returned with the
// partial result. ctx is checked between events.
func (s *Simulator) Run(ctx context.Context) (*Result, error) {
	s.log.Infof("starting: %d cells, %d users, %d policies, horizon %.0fs",
		len(s.cells), s.cfg.Users, len(s.policies), s.cfg.HorizonS)
	for s.events.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return s.result(), err
		}
		ev := s.events.PopNext()
		s.clock = ev.Timestamp()
		if err := ev.Execute(s); err != nil {
			s.log.Errorf("[tick %07d] %s event failed: %v", s.clock, ev.Type(), err)
			return s.result(), err
		}
	}
	s.log.Infof("finished after %d requests", s.requests)
	return s.result(), nil
}

type target struct {
	cell *sim.SmallCell
	prob float64
}

// targets returns the cells user is likely to be served by within the look-ahead
// window, most likely first, capped at MaxTargets.
func (s *Simulator) targets(user sim.UserID) []target {
	u, ok := s.tracker.User(user)
	if !ok {
		return nil
	}
	heading := s.tracker.Heading(user)
	q := pq.NewQueue[*sim.SmallCell, float64]()
	for _, c := range s.cells {
		if p := s.estimator.Probability(u, heading, c); p >= s.cfg.MinProbability {
			q.Push(c, -p)
		}
	}
	var out []target
	for q.Len() > 0 && (s.cfg.MaxTargets == 0 || len(out) < s.cfg.MaxTargets) {
		p := -q.PeekPriority()
		out = append(out, target{cell: q.Pop(), prob: p})
	}
	return out
}

func (s *Simulator) handleRequest(user sim.UserID) error {
	s.requests++
	defer s.scheduleRequest(user)

	u, _ := s.tracker.User(user)
	doc := s.catalog.Sample()
	host := mobility.Host(s.cells, u.Position)
	s.registry.RecordRequest(host.ID, doc.ID)

	targets := s.targets(user)
	cells := make([]sim.CellID, len(targets))
	for i, tg := range targets {
		cells[i] = tg.cell.ID
		s.markDemand(user, tg.cell.ID)
	}

	for _, p := range s.policies {
		s.recordHit(p.Name(), host, doc)
		for _, tg := range targets {
			for _, c := range doc.Chunks {
				s.registry.Register(tg.cell.ID, c.ID, p.Name(), user, tg.prob)
			}
			_, err := p.CacheDecision(sim.CacheRequest{
				Clock: s.clock, User: user, Chunks: doc.Chunks, Host: host, Target: tg.cell,
			})
			if err != nil {
				return fmt.Errorf("policy %s, request of %s by %s: %w", p.Name(), doc.ID, user, err)
			}
		}
	}
	if len(cells) > 0 {
		s.schedule(&CompleteEvent{
			time: s.clock + seconds(s.cfg.Workload.DeliveryS), id: s.newID(),
			user: user, doc: doc, cells: cells,
		})
	}
	return nil
}

// recordHit counts the request as a hit when the host cell already holds every chunk.
func (s *Simulator) recordHit(policy string, host *sim.SmallCell, doc *sim.Document) {
	buf := host.Buffer(policy)
	for _, c := range doc.Chunks {
		if !buf.Contains(c.ID) {
			s.observe(host.ID, policy, stats.MetricMisses, 1)
			return
		}
	}
	s.observe(host.ID, policy, stats.MetricHits, 1)
	s.observe(host.ID, policy, stats.MetricHitBytes, float64(doc.SizeBytes))
}

func (s *Simulator) handleComplete(user sim.UserID, doc *sim.Document, cells []sim.CellID) {
	for _, p := range s.policies {
		for _, cell := range cells {
			n := 0
			for _, c := range doc.Chunks {
				if s.registry.Cancel(cell, c.ID, p.Name(), user) {
					n++
				}
			}
			if n > 0 {
				s.observe(cell, p.Name(), stats.MetricCancellations, float64(n))
			}
		}
	}
	for _, cell := range cells {
		if !s.demandsAt(user, cell) {
			delete(s.demand[user], cell)
		}
	}
}

// demandsAt reports whether any policy still holds user's demand at cell.
func (s *Simulator) demandsAt(user sim.UserID, cell sim.CellID) bool {
	for _, p := range s.policies {
		if s.registry.HasUser(cell, p.Name(), user) {
			return true
		}
	}
	return false
}

func (s *Simulator) handleMove() error {
	s.tracker.Step(s.cfg.StepS, s.rng.ForSubsystem(sim.SubsystemMobility))
	for _, user := range s.tracker.Users() {
		cells := s.demand[user]
		if len(cells) == 0 {
			continue
		}
		u, _ := s.tracker.User(user)
		heading := s.tracker.Heading(user)
		ids := make([]sim.CellID, 0, len(cells))
		for id := range cells {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			if s.estimator.Probability(u, heading, s.cellByID[id]) >= s.cfg.MinProbability {
				continue
			}
			for _, p := range s.policies {
				if n := s.registry.CancelUser(id, p.Name(), user); n > 0 {
					s.observe(id, p.Name(), stats.MetricCancellations, float64(n))
				}
			}
			delete(cells, id)
		}
	}
	s.schedule(&MoveEvent{time: s.clock + seconds(s.cfg.StepS), id: s.newID()})
	return nil
}

func (s *Simulator) markDemand(user sim.UserID, cell sim.CellID) {
	m, ok := s.demand[user]
	if !ok {
		m = make(map[sim.CellID]bool)
		s.demand[user] = m
	}
	m[cell] = true
}

func (s *Simulator) observe(cell sim.CellID, policy string, m stats.Metric, v float64) {
	s.sink.Record(stats.Observation{Cell: string(cell), Policy: policy, Metric: m, Value: v, Clock: s.clock})
}

func (s *Simulator) result() *Result {
	res := &Result{
		Name:        s.cfg.Name,
		Requests:    s.requests,
		Utilization: make(map[string]float64, len(s.policies)),
	}
	if s.trace != nil {
		res.Trace = trace.Summarize(s.trace)
	}
	for _, p := range s.policies {
		var sum float64
		for _, c := range s.cells {
			sum += c.Buffer(p.Name()).Utilization()
		}
		res.Utilization[p.Name()] = sum / float64(len(s.cells))
	}
	return res
}

// Clock returns the current simulation time in microseconds.
func (s *Simulator) Clock() int64 { return s.clock }

// Cells returns the scenario's cells.
func (s *Simulator) Cells() []*sim.SmallCell { return s.cells }

// Registry returns the scenario's demand registry.
func (s *Simulator) Registry() *sim.DemandRegistry { return s.registry }

// Policies returns the policies under test, in configuration order.
func (s *Simulator) Policies() []*sim.Policy { return s.policies }

// Trace returns the decision trace, nil when tracing is off.
func (s *Simulator) Trace() *trace.SimulationTrace { return s.trace }
