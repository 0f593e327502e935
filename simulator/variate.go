package simulator

import (
	"math"
	"math/rand"
)

// Variate produces the next strictly positive duration from a uniform source.
// Implementations hold no state besides their parameters.
type Variate interface {
	Next(rng *rand.Rand) float64
	// Expected returns the nominal mean of the distribution.
	Expected() float64
}

// uniform draws U from (0, 1] so that log(U) is always finite.
func uniform(rng *rand.Rand) float64 {
	return 1.0 - rng.Float64()
}

// Exponential samples by inverse transform: X = -ln(U) / rate.
// A zero rate models a process that never fires and yields +Inf.
type Exponential struct {
	Rate float64
}

func (e Exponential) Next(rng *rand.Rand) float64 {
	if e.Rate == 0 {
		return math.Inf(1)
	}
	return -math.Log(uniform(rng)) / e.Rate
}

func (e Exponential) Expected() float64 {
	if e.Rate == 0 {
		return math.Inf(1)
	}
	return 1.0 / e.Rate
}

// Normal samples with the Box-Muller transform and discards non-positive
// results, so the effective distribution is the normal truncated at zero.
type Normal struct {
	Mean   float64
	StdDev float64
}

func (n Normal) Next(rng *rand.Rand) float64 {
	for {
		u1 := uniform(rng)
		u2 := rng.Float64()
		z := math.Sqrt(-2.0*math.Log(u1)) * math.Cos(2.0*math.Pi*u2)
		if x := n.Mean + n.StdDev*z; x > 0 {
			return x
		}
	}
}

// Expected returns the untruncated mean.
func (n Normal) Expected() float64 {
	return n.Mean
}
