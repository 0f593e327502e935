package simulator

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfigValue is wrapped by every configuration error.
	ErrInvalidConfigValue = errors.New("invalid config")

	// ErrUndefined is returned when a derived statistic has too few samples.
	ErrUndefined = errors.New("statistic undefined")

	// ErrNotFinished is returned when results are requested before the horizon.
	ErrNotFinished = errors.New("simulation has not reached its horizon")

	// ErrInvariant signals a broken bookkeeping invariant inside the run.
	ErrInvariant = errors.New("invariant violated")
)

// SimError is a custom error type for simulation errors
type SimError struct {
	Message string
	Kind    error
}

func (e SimError) Error() string {
	return fmt.Sprintf("simulation error: %s", e.Message)
}

func (e SimError) Unwrap() error {
	return e.Kind
}

// ErrInvalidConfig creates an error for invalid configuration
func ErrInvalidConfig(msg string) error {
	return SimError{Message: fmt.Sprintf("invalid config: %s", msg), Kind: ErrInvalidConfigValue}
}

// StatError reports which metric could not be derived and why.
type StatError struct {
	Metric  string
	Samples int
	Need    int
}

func (e *StatError) Error() string {
	return fmt.Sprintf("%s: %d samples, need at least %d", e.Metric, e.Samples, e.Need)
}

func (e *StatError) Unwrap() error {
	return ErrUndefined
}

func errUndefined(metric string, samples, need int) error {
	return &StatError{Metric: metric, Samples: samples, Need: need}
}

func errInvariant(format string, args ...interface{}) error {
	return SimError{Message: fmt.Sprintf(format, args...), Kind: ErrInvariant}
}
