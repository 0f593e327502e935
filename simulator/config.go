package simulator

import (
	"fmt"
	"math"
)

// SimConfig holds all parameters of a single-station run
type SimConfig struct {
	// Arrival process
	ArrivalRate float64 `json:"arrivalRate" yaml:"arrivalRate" mapstructure:"arrivalRate"` // Base arrival rate (lambda); 0 = no arrivals

	// Service
	Service ServiceDistribution `json:"service" yaml:"service" mapstructure:"service"` // Service-time distribution
	Servers int                 `json:"servers" yaml:"servers" mapstructure:"servers"` // Parallel servers (c)

	// Bounds
	Capacity   Limit `json:"capacity" yaml:"capacity" mapstructure:"capacity"`       // Max customers waiting + in service (K)
	Population Limit `json:"population" yaml:"population" mapstructure:"population"` // Finite-source size (N); arrival rate scales with the remaining pool

	// Simulation Control
	Horizon         float64 `json:"horizon" yaml:"horizon" mapstructure:"horizon"`                         // Simulated time to run
	RandomSeed      int64   `json:"randomSeed" yaml:"randomSeed" mapstructure:"randomSeed"`                // Random seed for reproducibility (0 = use time-based seed)
	CheckInvariants bool    `json:"checkInvariants" yaml:"checkInvariants" mapstructure:"checkInvariants"` // Verify state invariants after every event (slow)
}

// DefaultConfig returns an M/M/1 queue with rho = 0.5
func DefaultConfig() SimConfig {
	return SimConfig{
		ArrivalRate: 1.0, // lambda = 1
		Service: ServiceDistribution{
			Type: DistExponential,
			Rate: 2.0, // mu = 2
		},
		Servers:    1,
		Capacity:   Infinite,
		Population: Infinite,
		Horizon:    10000.0,
		RandomSeed: 0, // 0 = use time-based seed
	}
}

// Validate checks if configuration values are within their domains
func (c *SimConfig) Validate() error {
	if c.ArrivalRate < 0 || math.IsNaN(c.ArrivalRate) || math.IsInf(c.ArrivalRate, 0) {
		return ErrInvalidConfig("arrivalRate must be a finite value >= 0")
	}
	if err := c.Service.validate(); err != nil {
		return err
	}
	if c.Servers < 1 {
		return ErrInvalidConfig("servers must be >= 1")
	}
	if !c.Capacity.IsValid() {
		return ErrInvalidConfig("capacity must be a positive integer or infinite")
	}
	if !c.Population.IsValid() {
		return ErrInvalidConfig("population must be a positive integer or infinite")
	}
	if c.Horizon <= 0 || math.IsNaN(c.Horizon) || math.IsInf(c.Horizon, 0) {
		return ErrInvalidConfig("horizon must be a finite value > 0")
	}
	return nil
}

// Model returns the Kendall notation of the configured station, e.g. M/M/2/10
func (c *SimConfig) Model() string {
	service := "M"
	if c.Service.Type == DistNormal {
		service = "N"
	}
	s := fmt.Sprintf("M/%s/%d", service, c.Servers)
	if !c.Capacity.IsInfinite() || !c.Population.IsInfinite() {
		s += "/" + c.Capacity.String()
	}
	if !c.Population.IsInfinite() {
		s += "/" + c.Population.String()
	}
	return s
}
