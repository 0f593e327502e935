package simulator

import (
	"errors"

	"gonum.org/v1/gonum/stat"
)

// Results is an immutable snapshot of a finished run. Every derived metric
// is a pure function of the snapshot and fails with ErrUndefined rather
// than returning zero or NaN when its sample population is too small.
type Results struct {
	RunID   string
	Config  SimConfig
	Horizon float64

	stats     *Accumulator
	inService int
	inQueue   int
}

func newResults(runID string, config SimConfig, clock float64, stats *Accumulator, state *QueueState) *Results {
	return &Results{
		RunID:     runID,
		Config:    config,
		Horizon:   clock,
		stats:     stats.Clone(),
		inService: state.ServersBusy(),
		inQueue:   state.QueueLength(),
	}
}

// Stats returns the raw accumulator (a copy).
func (r *Results) Stats() *Accumulator { return r.stats.Clone() }

// checkServicePopulation asserts that a service time was drawn for every
// admitted customer except those still waiting at the horizon.
func (r *Results) checkServicePopulation() error {
	want := r.stats.admitted - r.inQueue
	if got := len(r.stats.service); got != want {
		return errInvariant("service samples %d != admitted %d - still waiting %d", got, r.stats.admitted, r.inQueue)
	}
	return nil
}

// MeanWaitingTime is the total waiting time over all admitted customers.
// Customers served immediately contribute zero.
func (r *Results) MeanWaitingTime() (float64, error) {
	if r.stats.admitted == 0 {
		return 0, errUndefined("mean waiting time", 0, 1)
	}
	return r.stats.totalWaiting / float64(r.stats.admitted), nil
}

// MeanServiceTime averages the service times actually drawn.
func (r *Results) MeanServiceTime() (float64, error) {
	if err := r.checkServicePopulation(); err != nil {
		return 0, err
	}
	if len(r.stats.service) == 0 {
		return 0, errUndefined("mean service time", 0, 1)
	}
	return stat.Mean(r.stats.service, nil), nil
}

// ServiceTimeVariance is the unbiased sample variance of service times
func (r *Results) ServiceTimeVariance() (float64, error) {
	if n := len(r.stats.service); n < 2 {
		return 0, errUndefined("service time variance", n, 2)
	}
	return stat.Variance(r.stats.service, nil), nil
}

// WaitingTimeVariance is the unbiased sample variance of the waits of
// customers that queued before service.
func (r *Results) WaitingTimeVariance() (float64, error) {
	if n := len(r.stats.waiting); n < 2 {
		return 0, errUndefined("waiting time variance", n, 2)
	}
	return stat.Variance(r.stats.waiting, nil), nil
}

// MeanSystemTime is mean waiting plus mean service
func (r *Results) MeanSystemTime() (float64, error) {
	w, err := r.MeanWaitingTime()
	if err != nil {
		return 0, err
	}
	s, err := r.MeanServiceTime()
	if err != nil {
		return 0, err
	}
	return w + s, nil
}

// MeanInterArrivalTime averages the gaps between admissions
func (r *Results) MeanInterArrivalTime() (float64, error) {
	if len(r.stats.gaps) == 0 {
		return 0, errUndefined("mean inter-arrival time", 0, 1)
	}
	return stat.Mean(r.stats.gaps, nil), nil
}

// InterArrivalVariance is the unbiased sample variance of the admission gaps
func (r *Results) InterArrivalVariance() (float64, error) {
	if n := len(r.stats.gaps); n < 2 {
		return 0, errUndefined("inter-arrival variance", n, 2)
	}
	return stat.Variance(r.stats.gaps, nil), nil
}

func (r *Results) timeAverage(metric string, integral float64) (float64, error) {
	if r.stats.elapsed <= 0 {
		return 0, errUndefined(metric, 0, 1)
	}
	return integral / r.stats.elapsed, nil
}

// MeanQueueLength is the time-averaged number of waiting customers
func (r *Results) MeanQueueLength() (float64, error) {
	return r.timeAverage("mean queue length", r.stats.queueIntegral)
}

// MeanBusyServers is the time-averaged number of customers in service
func (r *Results) MeanBusyServers() (float64, error) {
	return r.timeAverage("mean busy servers", r.stats.busyIntegral)
}

// MeanSystemPopulation is the time-averaged number of customers in the system
func (r *Results) MeanSystemPopulation() (float64, error) {
	q, err := r.MeanQueueLength()
	if err != nil {
		return 0, err
	}
	b, err := r.MeanBusyServers()
	if err != nil {
		return 0, err
	}
	return q + b, nil
}

// Utilization is the fraction of server capacity in use
func (r *Results) Utilization() (float64, error) {
	b, err := r.MeanBusyServers()
	if err != nil {
		return 0, err
	}
	return b / float64(r.Config.Servers), nil
}

// RejectionRate is the fraction of arrivals turned away
func (r *Results) RejectionRate() (float64, error) {
	if r.stats.arrivals == 0 {
		return 0, errUndefined("rejection rate", 0, 1)
	}
	return float64(r.stats.rejected) / float64(r.stats.arrivals), nil
}

// Summary is the flattened, serializable view of Results for report sinks.
// Undefined metrics are nil and explained in Undefined.
type Summary struct {
	RunID   string  `json:"runId"`
	Horizon float64 `json:"horizon"`
	Seed    int64   `json:"seed"`

	Arrivals  int `json:"arrivals"`
	Admitted  int `json:"admitted"`
	Rejected  int `json:"rejected"`
	Queued    int `json:"queued"`    // admitted customers that had to wait
	InService int `json:"inService"` // at the horizon
	InQueue   int `json:"inQueue"`   // at the horizon

	MeanWaitingTime      *float64 `json:"meanWaitingTime"`
	WaitingTimeVariance  *float64 `json:"waitingTimeVariance"`
	MeanServiceTime      *float64 `json:"meanServiceTime"`
	ServiceTimeVariance  *float64 `json:"serviceTimeVariance"`
	MeanSystemTime       *float64 `json:"meanSystemTime"`
	MeanInterArrivalTime *float64 `json:"meanInterArrivalTime"`
	InterArrivalVariance *float64 `json:"interArrivalVariance"`
	MeanQueueLength      *float64 `json:"meanQueueLength"`
	MeanBusyServers      *float64 `json:"meanBusyServers"`
	MeanSystemPopulation *float64 `json:"meanSystemPopulation"`
	Utilization          *float64 `json:"utilization"`
	RejectionRate        *float64 `json:"rejectionRate"`

	Undefined map[string]string `json:"undefined,omitempty"`
	Theory    *Theory           `json:"theory,omitempty"`
}

// Summary evaluates every derived metric. Undefined statistics are
// recorded, a broken invariant is returned as an error.
func (r *Results) Summary() (*Summary, error) {
	s := &Summary{
		RunID:     r.RunID,
		Horizon:   r.Horizon,
		Seed:      r.Config.RandomSeed,
		Arrivals:  r.stats.arrivals,
		Admitted:  r.stats.admitted,
		Rejected:  r.stats.rejected,
		Queued:    r.stats.waited,
		InService: r.inService,
		InQueue:   r.inQueue,
		Undefined: make(map[string]string),
	}

	metrics := []struct {
		name string
		dst  **float64
		fn   func() (float64, error)
	}{
		{"meanWaitingTime", &s.MeanWaitingTime, r.MeanWaitingTime},
		{"waitingTimeVariance", &s.WaitingTimeVariance, r.WaitingTimeVariance},
		{"meanServiceTime", &s.MeanServiceTime, r.MeanServiceTime},
		{"serviceTimeVariance", &s.ServiceTimeVariance, r.ServiceTimeVariance},
		{"meanSystemTime", &s.MeanSystemTime, r.MeanSystemTime},
		{"meanInterArrivalTime", &s.MeanInterArrivalTime, r.MeanInterArrivalTime},
		{"interArrivalVariance", &s.InterArrivalVariance, r.InterArrivalVariance},
		{"meanQueueLength", &s.MeanQueueLength, r.MeanQueueLength},
		{"meanBusyServers", &s.MeanBusyServers, r.MeanBusyServers},
		{"meanSystemPopulation", &s.MeanSystemPopulation, r.MeanSystemPopulation},
		{"utilization", &s.Utilization, r.Utilization},
		{"rejectionRate", &s.RejectionRate, r.RejectionRate},
	}
	for _, m := range metrics {
		v, err := m.fn()
		switch {
		case err == nil:
			*m.dst = &v
		case errors.Is(err, ErrUndefined):
			s.Undefined[m.name] = err.Error()
		default:
			return nil, err
		}
	}

	if r.Config.Service.IsMarkovian() {
		if th, err := SolveTheory(r.Config); err == nil {
			s.Theory = th
		}
	}
	return s, nil
}
