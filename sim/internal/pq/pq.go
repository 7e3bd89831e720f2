// Package pq provides generic min-heaps used by the engine and the scenario clock.
// Neither type is safe for concurrent use.
package pq

import "golang.org/x/exp/constraints"

// Heap is a binary min-heap ordered by a caller-supplied less function.
type Heap[T any] struct {
	items []T
	less  func(a, b T) bool
}

// NewHeap creates an empty heap. Panics if less is nil.
func NewHeap[T any](less func(a, b T) bool) *Heap[T] {
	if less == nil {
		panic("pq.NewHeap: less must not be nil")
	}
	return &Heap[T]{less: less}
}

// Len returns the number of items in the heap.
func (h *Heap[T]) Len() int {
	return len(h.items)
}

// Push inserts v.
func (h *Heap[T]) Push(v T) {
	h.items = append(h.items, v)
	h.up(len(h.items) - 1)
}

// Pop removes and returns the minimum item. Panics on an empty heap.
func (h *Heap[T]) Pop() T {
	n := len(h.items) - 1
	h.items[0], h.items[n] = h.items[n], h.items[0]
	h.down(0, n)
	item := h.items[n]
	var zero T
	h.items[n] = zero // avoid memory leak
	h.items = h.items[:n]
	return item
}

// Peek returns the minimum item without removing it. Panics on an empty heap.
func (h *Heap[T]) Peek() T {
	return h.items[0]
}

func (h *Heap[T]) up(j int) {
	for {
		i := (j - 1) / 2 // parent
		if i == j || !h.less(h.items[j], h.items[i]) {
			break
		}
		h.items[i], h.items[j] = h.items[j], h.items[i]
		j = i
	}
}

func (h *Heap[T]) down(i0, n int) {
	i := i0
	for {
		j1 := 2*i + 1
		if j1 >= n || j1 < 0 {
			break
		}
		j := j1
		if j2 := j1 + 1; j2 < n && h.less(h.items[j2], h.items[j1]) {
			j = j2
		}
		if !h.less(h.items[j], h.items[i]) {
			break
		}
		h.items[i], h.items[j] = h.items[j], h.items[i]
		i = j
	}
}

type entry[V any, P constraints.Ordered] struct {
	value    V
	priority P
	seq      uint64
}

// Queue is a min-priority queue; equal priorities pop in insertion order.
type Queue[V any, P constraints.Ordered] struct {
	heap *Heap[entry[V, P]]
	seq  uint64
}

// NewQueue creates an empty queue.
func NewQueue[V any, P constraints.Ordered]() *Queue[V, P] {
	return &Queue[V, P]{
		heap: NewHeap(func(a, b entry[V, P]) bool {
			if a.priority != b.priority {
				return a.priority < b.priority
			}
			return a.seq < b.seq
		}),
	}
}

// Len returns the number of queued values.
func (q *Queue[V, P]) Len() int {
	return q.heap.Len()
}

// Push enqueues value with the given priority.
func (q *Queue[V, P]) Push(value V, priority P) {
	q.seq++
	q.heap.Push(entry[V, P]{value: value, priority: priority, seq: q.seq})
}

// Pop removes and returns the minimum-priority value.
func (q *Queue[V, P]) Pop() V {
	return q.heap.Pop().value
}

// Peek returns the minimum-priority value without removing it.
func (q *Queue[V, P]) Peek() V {
	return q.heap.Peek().value
}

// PeekPriority returns the minimum priority.
func (q *Queue[V, P]) PeekPriority() P {
	return q.heap.Peek().priority
}
