package simulator

import (
	"errors"
	"math"
)

var (
	// ErrNotMarkovian is returned by SolveTheory for non-exponential service.
	ErrNotMarkovian = errors.New("analytical solution requires exponential service")

	// ErrUnstable is returned by SolveTheory when an unbounded queue grows without limit.
	ErrUnstable = errors.New("queue is unstable (arrival rate >= total service rate)")
)

const (
	theoryMaxStates = 1_000_000
	theoryTailEps   = 1e-15
	theoryRescale   = 1e200
)

// Theory holds the steady-state values of the birth-death process that
// matches a Markovian configuration: M/M/c with optional capacity K and
// optional finite source N.
type Theory struct {
	States               int     `json:"states"` // number of states kept after truncation
	AdmissionRate        float64 `json:"admissionRate"`
	RejectionProbability float64 `json:"rejectionProbability"`
	MeanWaitingTime      float64 `json:"meanWaitingTime"`
	MeanServiceTime      float64 `json:"meanServiceTime"`
	MeanSystemTime       float64 `json:"meanSystemTime"`
	MeanQueueLength      float64 `json:"meanQueueLength"`
	MeanBusyServers      float64 `json:"meanBusyServers"`
	MeanSystemPopulation float64 `json:"meanSystemPopulation"`
	Utilization          float64 `json:"utilization"`
}

// SolveTheory computes the analytical reference for config.
func SolveTheory(config SimConfig) (*Theory, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if !config.Service.IsMarkovian() {
		return nil, ErrNotMarkovian
	}
	lambda := config.ArrivalRate
	mu := config.Service.Rate
	c := config.Servers

	if lambda == 0 {
		return nil, errUndefined("theoretical admission rate", 0, 1)
	}

	maxState := theoryMaxStates
	bounded := false
	if !config.Capacity.IsInfinite() {
		maxState = int(config.Capacity)
		bounded = true
	}
	if !config.Population.IsInfinite() && int(config.Population) < maxState {
		maxState = int(config.Population)
		bounded = true
	}
	if !bounded && lambda >= float64(c)*mu {
		return nil, ErrUnstable
	}

	birth := func(n int) float64 {
		if config.Population.IsInfinite() {
			return lambda
		}
		return lambda * float64(int(config.Population)-n)
	}
	death := func(n int) float64 {
		return float64(min(n, c)) * mu
	}

	// Unnormalized state probabilities, rescaled whenever they grow too large.
	p := []float64{1.0}
	peak := 1.0
	for n := 0; n < maxState; n++ {
		next := p[n] * birth(n) / death(n+1)
		p = append(p, next)
		if next > theoryRescale {
			for i := range p {
				p[i] /= theoryRescale
			}
			next /= theoryRescale
			peak /= theoryRescale
		}
		peak = math.Max(peak, next)
		if !bounded && n+1 > c && next < theoryTailEps*peak {
			break
		}
	}

	var total float64
	for _, v := range p {
		total += v
	}

	th := &Theory{States: len(p), MeanServiceTime: 1.0 / mu}
	blockingState := -1
	if !config.Capacity.IsInfinite() {
		blockingState = int(config.Capacity)
	}
	var attempts, blocked float64
	for n, v := range p {
		pn := v / total
		busy := min(n, c)
		th.MeanBusyServers += float64(busy) * pn
		th.MeanQueueLength += float64(n-busy) * pn
		rate := birth(n) * pn
		attempts += rate
		if n == blockingState {
			blocked += rate
		}
	}
	th.MeanSystemPopulation = th.MeanBusyServers + th.MeanQueueLength
	th.AdmissionRate = attempts - blocked
	if attempts > 0 {
		th.RejectionProbability = blocked / attempts
	}
	if th.AdmissionRate <= 0 || math.IsNaN(th.AdmissionRate) {
		return nil, errUndefined("theoretical admission rate", 0, 1)
	}
	th.MeanWaitingTime = th.MeanQueueLength / th.AdmissionRate
	th.MeanSystemTime = th.MeanSystemPopulation / th.AdmissionRate
	th.Utilization = th.MeanBusyServers / float64(c)
	return th, nil
}
