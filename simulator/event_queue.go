package simulator

import (
	"container/heap"
	"math"
)

// EventStore holds the future events of a single-station run: exactly one
// pending arrival (possibly +Inf) and one pending departure per busy server.
type EventStore struct {
	arrival    float64
	departures departureHeap
}

// NewEventStore creates an event store whose arrival process is silent.
func NewEventStore() *EventStore {
	es := &EventStore{
		arrival:    math.Inf(1),
		departures: make(departureHeap, 0),
	}
	heap.Init(&es.departures)
	return es
}

// NextArrivalTime returns the time of the pending arrival
func (es *EventStore) NextArrivalTime() float64 {
	return es.arrival
}

// EarliestDepartureTime returns the earliest pending departure, or +Inf
// when no customer is in service.
func (es *EventStore) EarliestDepartureTime() float64 {
	if es.departures.Len() == 0 {
		return math.Inf(1)
	}
	return es.departures[0]
}

// ScheduleArrival replaces the pending arrival
func (es *EventStore) ScheduleArrival(t float64) {
	es.arrival = t
}

// ScheduleDeparture adds a service completion
func (es *EventStore) ScheduleDeparture(t float64) {
	heap.Push(&es.departures, t)
}

// PopEarliestDeparture removes and returns the earliest departure.
// Returns +Inf if none is pending.
func (es *EventStore) PopEarliestDeparture() float64 {
	if es.departures.Len() == 0 {
		return math.Inf(1)
	}
	return heap.Pop(&es.departures).(float64)
}

// PendingDepartures returns the number of customers in service
func (es *EventStore) PendingDepartures() int {
	return es.departures.Len()
}

// Next returns the type and time of the event to dispatch next.
// An arrival is chosen only if it is strictly earlier than the earliest
// departure; on ties the departure goes first.
func (es *EventStore) Next() (EventType, float64) {
	dep := es.EarliestDepartureTime()
	if es.arrival < dep {
		return EventTypeArrival, es.arrival
	}
	return EventTypeDeparture, dep
}

// Departures returns the pending departure times in ascending order
// (for inspection/debugging).
func (es *EventStore) Departures() []float64 {
	h := make(departureHeap, len(es.departures))
	copy(h, es.departures)
	out := make([]float64, 0, len(h))
	for h.Len() > 0 {
		out = append(out, heap.Pop(&h).(float64))
	}
	return out
}

// departureHeap implements heap.Interface for service completion times
type departureHeap []float64

func (h departureHeap) Len() int           { return len(h) }
func (h departureHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h departureHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *departureHeap) Push(x interface{}) {
	*h = append(*h, x.(float64))
}

func (h *departureHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}
