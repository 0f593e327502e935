package simulator

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// DistributionType represents the service-time distribution
type DistributionType int

const (
	DistExponential DistributionType = iota
	DistNormal
)

// String returns the string representation of DistributionType
func (dt DistributionType) String() string {
	switch dt {
	case DistExponential:
		return "exponential"
	case DistNormal:
		return "normal"
	default:
		return fmt.Sprintf("unknown(%d)", int(dt))
	}
}

// ParseDistributionType parses a string into a DistributionType.
// Single-letter forms ("e", "n") are accepted for interactive input.
func ParseDistributionType(s string) (DistributionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exponential", "exp", "e", "":
		return DistExponential, nil
	case "normal", "n":
		return DistNormal, nil
	default:
		return DistExponential, fmt.Errorf("invalid DistributionType: %s (must be 'exponential' or 'normal')", s)
	}
}

// MarshalText implements encoding.TextMarshaler for DistributionType
func (dt DistributionType) MarshalText() ([]byte, error) {
	return []byte(dt.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for DistributionType
func (dt *DistributionType) UnmarshalText(text []byte) error {
	parsed, err := ParseDistributionType(string(text))
	if err != nil {
		return err
	}
	*dt = parsed
	return nil
}

// MarshalJSON implements json.Marshaler for DistributionType
func (dt DistributionType) MarshalJSON() ([]byte, error) {
	return json.Marshal(dt.String())
}

// UnmarshalJSON implements json.Unmarshaler for DistributionType
func (dt *DistributionType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return dt.UnmarshalText([]byte(s))
}

// MarshalYAML implements yaml.Marshaler for DistributionType
func (dt DistributionType) MarshalYAML() (interface{}, error) {
	return dt.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler for DistributionType
func (dt *DistributionType) UnmarshalYAML(value *yaml.Node) error {
	return dt.UnmarshalText([]byte(value.Value))
}

// ServiceDistribution holds the service-time distribution parameters
type ServiceDistribution struct {
	Type   DistributionType `json:"type" yaml:"type" mapstructure:"type"`       // exponential or normal
	Rate   float64          `json:"rate" yaml:"rate" mapstructure:"rate"`       // exponential: service rate (mu)
	Mean   float64          `json:"mean" yaml:"mean" mapstructure:"mean"`       // normal: mean service time
	StdDev float64          `json:"stdDev" yaml:"stdDev" mapstructure:"stdDev"` // normal: standard deviation
}

// Variate returns the sampler for this distribution. The choice is made
// once; the simulator never inspects Type again.
func (d ServiceDistribution) Variate() Variate {
	switch d.Type {
	case DistNormal:
		return Normal{Mean: d.Mean, StdDev: d.StdDev}
	default:
		return Exponential{Rate: d.Rate}
	}
}

// IsMarkovian reports whether service times are exponential.
func (d ServiceDistribution) IsMarkovian() bool {
	return d.Type == DistExponential
}

func (d ServiceDistribution) validate() error {
	switch d.Type {
	case DistExponential:
		if d.Rate <= 0 {
			return ErrInvalidConfig("service.rate must be > 0 for exponential service")
		}
	case DistNormal:
		if d.StdDev < 0 {
			return ErrInvalidConfig("service.stdDev must be >= 0")
		}
		// With no spread and a non-positive mean no draw is ever positive.
		if d.StdDev == 0 && d.Mean <= 0 {
			return ErrInvalidConfig("service.mean must be > 0 when service.stdDev is 0")
		}
	default:
		return ErrInvalidConfig(fmt.Sprintf("unknown service distribution %s", d.Type))
	}
	return nil
}

func (d ServiceDistribution) String() string {
	switch d.Type {
	case DistNormal:
		return fmt.Sprintf("normal(mean=%g, stdDev=%g)", d.Mean, d.StdDev)
	default:
		return fmt.Sprintf("exponential(rate=%g)", d.Rate)
	}
}
