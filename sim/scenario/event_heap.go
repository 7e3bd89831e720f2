package scenario

import "container/heap"

// EventType labels an event for same-timestamp ordering.
type EventType string

const (
	EventTypeComplete EventType = "Complete"
	EventTypeMove     EventType = "Move"
	EventTypeRequest  EventType = "Request"
)

// EventTypePriority orders events at the same timestamp. Deliveries finish
// before users move, and users move before they issue new requests.
var EventTypePriority = map[EventType]int{
	EventTypeComplete: 0,
	EventTypeMove:     1,
	EventTypeRequest:  2,
}

// Event is something that happens at one point of the scenario clock.
type Event interface {
	Timestamp() int64
	Type() EventType
	EventID() uint64
	Execute(s *Simulator) error
}

// EventHeap implements a priority queue with deterministic ordering
// Ordering: timestamp → type priority → event ID
type EventHeap struct {
	events []Event
}

// NewEventHeap creates an empty event heap.
func NewEventHeap() *EventHeap {
	h := &EventHeap{events: make([]Event, 0)}
	heap.Init(h)
	return h
}

// Len implements heap.Interface
func (h *EventHeap) Len() int { return len(h.events) }

// Less implements heap.Interface
func (h *EventHeap) Less(i, j int) bool {
	ei, ej := h.events[i], h.events[j]
	if ei.Timestamp() != ej.Timestamp() {
		return ei.Timestamp() < ej.Timestamp()
	}
	priI, priJ := EventTypePriority[ei.Type()], EventTypePriority[ej.Type()]
	if priI != priJ {
		return priI < priJ
	}
	return ei.EventID() < ej.EventID()
}

// Swap implements heap.Interface
func (h *EventHeap) Swap(i, j int) { h.events[i], h.events[j] = h.events[j], h.events[i] }

// Push implements heap.Interface
func (h *EventHeap) Push(x any) { h.events = append(h.events, x.(Event)) }

// Pop implements heap.Interface
func (h *EventHeap) Pop() any {
	old := h.events
	n := len(old)
	item := old[n-1]
	h.events = old[:n-1]
	return item
}

// Schedule adds an event to the heap.
func (h *EventHeap) Schedule(e Event) { heap.Push(h, e) }

// PopNext removes and returns the next event, or nil when empty.
func (h *EventHeap) PopNext() Event {
	if h.Len() == 0 {
		return nil
	}
	return heap.Pop(h).(Event)
}

// Peek returns the next event without removing it.
func (h *EventHeap) Peek() Event {
	if h.Len() == 0 {
		return nil
	}
	return h.events[0]
}
