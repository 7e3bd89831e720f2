package sim

import "math"

// UserID identifies a caching user.
type UserID string

// Point is a position on the simulation plane, in meters.
type Point struct {
	X, Y float64
}

// Distance returns the Euclidean distance between p and q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// CachingUser is a requester. Velocity is in meters per second; zero means stationary.
type CachingUser struct {
	ID       UserID
	Position Point
	Velocity float64
}

// IsStationary reports whether the user does not move.
func (u CachingUser) IsStationary() bool {
	return u.Velocity <= 0
}

// PositionProvider resolves the current position and velocity of a user.
// Implemented by the mobility layer.
type PositionProvider interface {
	User(id UserID) (CachingUser, bool)
}
