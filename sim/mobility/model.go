package mobility

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/inference-sim/cachesim/sim"
)

// ValidModels is the set of recognized movement model names.
var ValidModels = map[string]bool{"random-waypoint": true, "static": true}

// ModelConfig configures user movement.
type ModelConfig struct {
	Model          string  `yaml:"model"`
	MinSpeed       float64 `yaml:"min_speed"`       // m/s
	MaxSpeed       float64 `yaml:"max_speed"`       // m/s
	MaxPauseS      float64 `yaml:"max_pause_s"`     // random-waypoint pause at each waypoint
	StaticFraction float64 `yaml:"static_fraction"` // share of users that never move
}

// Validate checks model name and ranges.
func (m ModelConfig) Validate() error {
	if !ValidModels[m.Model] {
		return fmt.Errorf("unknown mobility model %q", m.Model)
	}
	if m.MinSpeed < 0 || m.MaxSpeed < m.MinSpeed {
		return fmt.Errorf("speeds must satisfy 0 <= min_speed <= max_speed, got %f..%f", m.MinSpeed, m.MaxSpeed)
	}
	if m.MaxPauseS < 0 {
		return fmt.Errorf("max_pause_s must be non-negative, got %f", m.MaxPauseS)
	}
	if m.StaticFraction < 0 || m.StaticFraction > 1 {
		return fmt.Errorf("static_fraction must be in [0,1], got %f", m.StaticFraction)
	}
	return nil
}

// state is the movement state the tracker keeps beside the public CachingUser.
type state struct {
	user     sim.CachingUser
	heading  sim.Point // unit vector, zero while paused or static
	waypoint sim.Point
	speed    float64 // cruise speed toward the waypoint
	pause    float64 // seconds left before leaving the current waypoint
	static   bool
}

// Tracker owns user positions and advances them in fixed steps.
// It implements sim.PositionProvider.
type Tracker struct {
	cfg    ModelConfig
	width  float64
	height float64
	users  map[sim.UserID]*state
}

var _ sim.PositionProvider = (*Tracker)(nil)

// NewTracker creates an empty tracker for an area of width x height meters.
func NewTracker(cfg ModelConfig, width, height float64) *Tracker {
	return &Tracker{cfg: cfg, width: width, height: height, users: make(map[sim.UserID]*state)}
}

// Spawn places a user uniformly at random and draws its first waypoint.
func (t *Tracker) Spawn(id sim.UserID, rng *rand.Rand) sim.CachingUser {
	s := &state{
		user:   sim.CachingUser{ID: id, Position: t.randomPoint(rng)},
		static: t.cfg.Model == "static" || rng.Float64() < t.cfg.StaticFraction,
	}
	if !s.static {
		t.nextLeg(s, rng)
	}
	t.users[id] = s
	return s.user
}

// Place puts a user at a fixed position with a fixed velocity and heading.
// Placed users are not moved by Step.
func (t *Tracker) Place(u sim.CachingUser, heading sim.Point) {
	t.users[u.ID] = &state{user: u, heading: unit(heading), static: true}
}

// User returns the current state of id.
func (t *Tracker) User(id sim.UserID) (sim.CachingUser, bool) {
	s, ok := t.users[id]
	if !ok {
		return sim.CachingUser{}, false
	}
	return s.user, true
}

// Heading returns the unit direction of travel of id, or the zero vector.
func (t *Tracker) Heading(id sim.UserID) sim.Point {
	if s, ok := t.users[id]; ok {
		return s.heading
	}
	return sim.Point{}
}

// Users returns all user IDs, sorted.
func (t *Tracker) Users() []sim.UserID {
	ids := make([]sim.UserID, 0, len(t.users))
	for id := range t.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Step advances every moving user by dt seconds. Users are visited in ID order
// so a seeded rng gives the same trajectories on every run.
func (t *Tracker) Step(dt float64, rng *rand.Rand) {
	for _, id := range t.Users() {
		s := t.users[id]
		if s.static {
			continue
		}
		remaining := dt
		for remaining > 0 {
			if s.pause > 0 {
				used := math.Min(s.pause, remaining)
				s.pause -= used
				remaining -= used
				if s.pause == 0 {
					t.nextLeg(s, rng)
				}
				continue
			}
			dist := s.user.Position.Distance(s.waypoint)
			travel := s.speed * remaining
			if s.speed <= 0 || travel < dist {
				s.user.Position.X += s.heading.X * travel
				s.user.Position.Y += s.heading.Y * travel
				break
			}
			s.user.Position = s.waypoint
			remaining -= dist / s.speed
			s.pause = rng.Float64() * t.cfg.MaxPauseS
			s.user.Velocity = 0
			s.heading = sim.Point{}
			if s.pause == 0 {
				t.nextLeg(s, rng)
			}
		}
	}
}

func (t *Tracker) nextLeg(s *state, rng *rand.Rand) {
	s.waypoint = t.randomPoint(rng)
	s.speed = t.cfg.MinSpeed + rng.Float64()*(t.cfg.MaxSpeed-t.cfg.MinSpeed)
	s.heading = unit(sim.Point{X: s.waypoint.X - s.user.Position.X, Y: s.waypoint.Y - s.user.Position.Y})
	s.user.Velocity = s.speed
	if s.heading == (sim.Point{}) {
		s.user.Velocity = 0
	}
}

func (t *Tracker) randomPoint(rng *rand.Rand) sim.Point {
	return sim.Point{X: rng.Float64() * t.width, Y: rng.Float64() * t.height}
}

func unit(v sim.Point) sim.Point {
	n := math.Hypot(v.X, v.Y)
	if n == 0 {
		return sim.Point{}
	}
	return sim.Point{X: v.X / n, Y: v.Y / n}
}
