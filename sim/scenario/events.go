package scenario

import "github.com/inference-sim/cachesim/sim"

// RequestEvent is a user asking for a document from its current position.
type RequestEvent struct {
	time int64
	id   uint64
	user sim.UserID
}

func (e *RequestEvent) Timestamp() int64 { return e.time }
func (e *RequestEvent) Type() EventType  { return EventTypeRequest }
func (e *RequestEvent) EventID() uint64  { return e.id }

// Execute registers the user's demand at the cells it is heading for and runs
// every policy's caching decision there.
func (e *RequestEvent) Execute(s *Simulator) error { return s.handleRequest(e.user) }

// MoveEvent advances all users by one mobility step.
type MoveEvent struct {
	time int64
	id   uint64
}

func (e *MoveEvent) Timestamp() int64 { return e.time }
func (e *MoveEvent) Type() EventType  { return EventTypeMove }
func (e *MoveEvent) EventID() uint64  { return e.id }

// Execute moves users and cancels demand at cells they no longer approach.
func (e *MoveEvent) Execute(s *Simulator) error { return s.handleMove() }

// CompleteEvent marks a requested document as delivered.
type CompleteEvent struct {
	time  int64
	id    uint64
	user  sim.UserID
	doc   *sim.Document
	cells []sim.CellID
}

func (e *CompleteEvent) Timestamp() int64 { return e.time }
func (e *CompleteEvent) Type() EventType  { return EventTypeComplete }
func (e *CompleteEvent) EventID() uint64  { return e.id }

// Execute ends the user's demand for the document's chunks at every cell it was registered at.
func (e *CompleteEvent) Execute(s *Simulator) error {
	s.handleComplete(e.user, e.doc, e.cells)
	return nil
}
