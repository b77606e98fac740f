package sim

import "container/heap"

// An EventQueue is a queue of events ordered by time, with ties broken by
// scheduling order. A single simulated day is strictly single threaded, so
// the queue needs no locking.
type EventQueue struct {
	events eventHeap
	seq    uint64
}

// Push adds an event to the queue.
func (q *EventQueue) Push(e *Event) {
	q.seq++
	e.seq = q.seq
	heap.Push(&q.events, e)
}

// Pop removes and returns the earliest event, or nil if the queue is empty.
func (q *EventQueue) Pop() *Event {
	if len(q.events) == 0 {
		return nil
	}
	return heap.Pop(&q.events).(*Event)
}

// Remove takes a scheduled event out of the queue. It is a no-op for an
// event that already fired or was already removed, so cancellation is
// always safe.
func (q *EventQueue) Remove(e *Event) bool {
	if e.heapIndex < 0 {
		return false
	}
	heap.Remove(&q.events, e.heapIndex)
	return true
}

// Len returns the number of scheduled events.
func (q *EventQueue) Len() int {
	return len(q.events)
}

type eventHeap []*Event

func (h eventHeap) Len() int {
	return len(h)
}

func (h eventHeap) Less(i, j int) bool {
	if h[i].Time != h[j].Time {
		return h[i].Time < h[j].Time
	}
	return h[i].seq < h[j].seq
}

func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}

func (h *eventHeap) Push(x interface{}) {
	e := x.(*Event)
	e.heapIndex = len(*h)
	*h = append(*h, e)
}

func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.heapIndex = -1
	*h = old[0 : n-1]
	return e
}
