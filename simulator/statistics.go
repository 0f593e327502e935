package simulator

// Accumulator collects the raw statistics of a run: time-weighted integrals
// of the station occupancy and per-customer sample lists.
type Accumulator struct {
	elapsed       float64 // total time charged so far
	busyIntegral  float64 // integral of servers busy over time
	queueIntegral float64 // integral of queue length over time

	arrivals int // admission attempts
	admitted int
	rejected int
	waited   int // admitted customers that found every server busy

	totalWaiting float64
	waiting      []float64
	service      []float64
	gaps         []float64
}

// NewAccumulator creates an empty accumulator
func NewAccumulator() *Accumulator {
	return &Accumulator{
		waiting: make([]float64, 0),
		service: make([]float64, 0),
		gaps:    make([]float64, 0),
	}
}

// ChargeInterval adds an interval of length dt during which the station
// held busy servers and queueLength waiting customers.
func (a *Accumulator) ChargeInterval(dt float64, busy, queueLength int) {
	if dt <= 0 {
		return
	}
	a.elapsed += dt
	a.busyIntegral += float64(busy) * dt
	a.queueIntegral += float64(queueLength) * dt
}

// RecordArrival counts an admission attempt
func (a *Accumulator) RecordArrival() { a.arrivals++ }

// RecordAdmission counts an admitted customer
func (a *Accumulator) RecordAdmission() { a.admitted++ }

// RecordRejection counts an arrival turned away
func (a *Accumulator) RecordRejection() { a.rejected++ }

// RecordQueued counts an admitted customer that had to wait
func (a *Accumulator) RecordQueued() { a.waited++ }

// RecordWaiting records the time a customer spent in the waiting line
func (a *Accumulator) RecordWaiting(d float64) {
	a.totalWaiting += d
	a.waiting = append(a.waiting, d)
}

// RecordService records a drawn service time
func (a *Accumulator) RecordService(d float64) {
	a.service = append(a.service, d)
}

// RecordInterArrivalGap records the gap between consecutive admissions
func (a *Accumulator) RecordInterArrivalGap(d float64) {
	a.gaps = append(a.gaps, d)
}

// Admitted returns the number of admitted customers
func (a *Accumulator) Admitted() int { return a.admitted }

// Rejected returns the number of rejected arrivals
func (a *Accumulator) Rejected() int { return a.rejected }

// Arrivals returns the number of admission attempts
func (a *Accumulator) Arrivals() int { return a.arrivals }

// Elapsed returns the total time charged
func (a *Accumulator) Elapsed() float64 { return a.elapsed }

// WaitingSamples returns the number of recorded waiting times
func (a *Accumulator) WaitingSamples() int { return len(a.waiting) }

// ServiceSamples returns the number of drawn service times
func (a *Accumulator) ServiceSamples() int { return len(a.service) }

// Clone returns a deep copy
func (a *Accumulator) Clone() *Accumulator {
	c := *a
	c.waiting = append([]float64(nil), a.waiting...)
	c.service = append([]float64(nil), a.service...)
	c.gaps = append([]float64(nil), a.gaps...)
	return &c
}
