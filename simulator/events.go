package simulator

import "fmt"

// EventType represents the type of simulation event
type EventType int

const (
	EventTypeArrival EventType = iota
	EventTypeDeparture
)

func (et EventType) String() string {
	switch et {
	case EventTypeArrival:
		return "arrival"
	case EventTypeDeparture:
		return "departure"
	default:
		return "unknown"
	}
}

// TraceLabel names a step of a dispatched event as it appears in the trace
type TraceLabel int

const (
	TraceArrival TraceLabel = iota
	TraceAdmitted
	TraceRejected
	TraceEntersService
	TraceDeparts
)

func (tl TraceLabel) String() string {
	switch tl {
	case TraceArrival:
		return "arrival"
	case TraceAdmitted:
		return "admitted"
	case TraceRejected:
		return "rejected"
	case TraceEntersService:
		return "enters service"
	case TraceDeparts:
		return "departs"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler for TraceLabel
func (tl TraceLabel) MarshalText() ([]byte, error) {
	return []byte(tl.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for TraceLabel
func (tl *TraceLabel) UnmarshalText(text []byte) error {
	for l := TraceArrival; l <= TraceDeparts; l++ {
		if l.String() == string(text) {
			*tl = l
			return nil
		}
	}
	return fmt.Errorf("invalid trace label: %q", text)
}

// TraceEvent is one line of the trace: what happened and when
type TraceEvent struct {
	Label TraceLabel `json:"label"`
	Time  float64    `json:"time"`
}

func (e TraceEvent) String() string {
	return fmt.Sprintf("%s(t=%.5f)", e.Label, e.Time)
}
