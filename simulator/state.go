package simulator

import "fmt"

// QueueState is the mutable state of the station: busy servers, the FIFO
// waiting line and the remaining finite-source population.
// Only the Simulator mutates it.
type QueueState struct {
	servers         int
	capacity        Limit
	totalPopulation Limit

	serversBusy int
	waiting     []float64 // admission timestamps, oldest at waiting[head]
	head        int
	population  int // remaining pool; meaningful only when totalPopulation is finite
}

// NewQueueState creates an empty station
func NewQueueState(servers int, capacity, population Limit) *QueueState {
	return &QueueState{
		servers:         servers,
		capacity:        capacity,
		totalPopulation: population,
		waiting:         make([]float64, 0),
		population:      int(population),
	}
}

// ServersBusy returns the number of customers in service
func (q *QueueState) ServersBusy() int { return q.serversBusy }

// QueueLength returns the number of customers waiting
func (q *QueueState) QueueLength() int { return len(q.waiting) - q.head }

// InSystem returns the number of customers waiting or in service
func (q *QueueState) InSystem() int { return q.serversBusy + q.QueueLength() }

// Population returns the remaining pool and whether the population is finite
func (q *QueueState) Population() (int, bool) {
	return q.population, !q.totalPopulation.IsInfinite()
}

// IsFull returns true if a finite capacity is reached
func (q *QueueState) IsFull() bool {
	return !q.capacity.IsInfinite() && q.InSystem() >= int(q.capacity)
}

// PopulationExhausted returns true if a finite pool has no one left to arrive
func (q *QueueState) PopulationExhausted() bool {
	return !q.totalPopulation.IsInfinite() && q.population == 0
}

// HasFreeServer returns true if a newly admitted customer can start service
func (q *QueueState) HasFreeServer() bool {
	return q.serversBusy < q.servers
}

// ArrivalRate returns the arrival rate in effect for the current state.
// Finite-source models scale the base rate by the remaining population.
func (q *QueueState) ArrivalRate(base float64) float64 {
	if q.totalPopulation.IsInfinite() {
		return base
	}
	return base * float64(q.population)
}

func (q *QueueState) admit() {
	if !q.totalPopulation.IsInfinite() {
		q.population--
	}
}

func (q *QueueState) release() {
	if !q.totalPopulation.IsInfinite() {
		q.population++
	}
}

func (q *QueueState) occupyServer() {
	q.serversBusy++
}

func (q *QueueState) freeServer() {
	q.serversBusy--
}

func (q *QueueState) enqueue(arrivedAt float64) {
	q.waiting = append(q.waiting, arrivedAt)
}

// dequeue pops the earliest waiting customer's admission time
func (q *QueueState) dequeue() float64 {
	t := q.waiting[q.head]
	q.head++
	// Compact once the consumed prefix dominates the backing array
	if q.head > 64 && q.head*2 >= len(q.waiting) {
		n := copy(q.waiting, q.waiting[q.head:])
		q.waiting = q.waiting[:n]
		q.head = 0
	}
	return t
}

// WaitingLine returns a copy of the admission timestamps of waiting customers
func (q *QueueState) WaitingLine() []float64 {
	out := make([]float64, q.QueueLength())
	copy(out, q.waiting[q.head:])
	return out
}

// CheckInvariants verifies the conservation rules of the station
func (q *QueueState) CheckInvariants() error {
	if q.serversBusy < 0 || q.serversBusy > q.servers {
		return errInvariant("servers busy %d outside [0, %d]", q.serversBusy, q.servers)
	}
	if q.QueueLength() > 0 && q.serversBusy < q.servers {
		return errInvariant("%d customers waiting while %d of %d servers are idle",
			q.QueueLength(), q.servers-q.serversBusy, q.servers)
	}
	if !q.capacity.IsInfinite() && q.InSystem() > int(q.capacity) {
		return errInvariant("%d customers in system exceeds capacity %d", q.InSystem(), q.capacity)
	}
	if !q.totalPopulation.IsInfinite() {
		if q.population < 0 {
			return errInvariant("population pool is negative (%d)", q.population)
		}
		if q.population+q.InSystem() != int(q.totalPopulation) {
			return errInvariant("population %d + in system %d != total %d",
				q.population, q.InSystem(), q.totalPopulation)
		}
	}
	return nil
}

func (q *QueueState) String() string {
	return fmt.Sprintf("QueueState(busy=%d/%d, waiting=%d, capacity=%s, population=%d/%s)",
		q.serversBusy, q.servers, q.QueueLength(), q.capacity, q.population, q.totalPopulation)
}
