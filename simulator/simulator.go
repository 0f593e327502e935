package simulator

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// PopulationProbe observes the station after every state change
type PopulationProbe func(t float64, inQueue, inService int)

// Option configures a Simulator
type Option func(*Simulator)

// WithTracer sends every trace event to t
func WithTracer(t Tracer) Option {
	return func(s *Simulator) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithLogger replaces the default logrus entry
func WithLogger(log *logrus.Entry) Option {
	return func(s *Simulator) {
		if log != nil {
			s.log = log
		}
	}
}

// WithPopulationProbe installs a probe called after every event
func WithPopulationProbe(p PopulationProbe) Option {
	return func(s *Simulator) {
		s.probe = p
	}
}

// Simulator is a PURE discrete event simulator of a single queueing station
// with NO concurrency primitives. It is the only writer of its state; all
// state is accessed single-threaded via Step().
type Simulator struct {
	config  SimConfig
	runID   string
	rng     *rand.Rand // single shared stream; same seed => same event sequence
	service Variate

	clock         float64
	lastAdmission float64
	finished      bool

	store *EventStore
	state *QueueState
	stats *Accumulator

	tracer Tracer
	probe  PopulationProbe
	log    *logrus.Entry
}

// NewSimulator validates config and creates a simulator with the first
// arrival already scheduled.
func NewSimulator(config SimConfig, opts ...Option) (*Simulator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	seed := config.RandomSeed
	if seed == 0 {
		seed = rand.Int63()
	}

	runID := uuid.NewString()
	s := &Simulator{
		config:  config,
		runID:   runID,
		rng:     rand.New(rand.NewSource(seed)),
		service: config.Service.Variate(),
		store:   NewEventStore(),
		state:   NewQueueState(config.Servers, config.Capacity, config.Population),
		stats:   NewAccumulator(),
		tracer:  nopTracer{},
		log: logrus.WithFields(logrus.Fields{
			"component": "simulator",
			"run":       runID,
		}),
	}
	for _, opt := range opts {
		opt(s)
	}
	// Record the seed actually used so a run can be replayed
	s.config.RandomSeed = seed

	s.store.ScheduleArrival(s.nextArrivalFrom(0))

	s.log.WithFields(logrus.Fields{
		"model":   config.Model(),
		"service": config.Service.String(),
		"horizon": config.Horizon,
		"seed":    seed,
	}).Info("simulation initialized")
	return s, nil
}

// RunID returns the unique id of this run
func (s *Simulator) RunID() string { return s.runID }

// Config returns a copy of the configuration (with the seed in use)
func (s *Simulator) Config() SimConfig { return s.config }

// Clock returns the current simulated time
func (s *Simulator) Clock() float64 { return s.clock }

// Finished returns true once the horizon has been reached
func (s *Simulator) Finished() bool { return s.finished }

// Step dispatches the next event. If the next event lies beyond the
// horizon, the remaining interval is charged to the current state, the
// clock stops at the horizon and Step returns false.
func (s *Simulator) Step() bool {
	if s.finished {
		return false
	}

	eventType, t := s.store.Next()
	if t > s.config.Horizon {
		s.advance(s.config.Horizon)
		s.finish()
		return false
	}
	if t < s.clock {
		panic(fmt.Sprintf("BUG: event at t=%.6f precedes clock t=%.6f", t, s.clock))
	}

	switch eventType {
	case EventTypeArrival:
		s.processArrival(t)
	case EventTypeDeparture:
		s.processDeparture()
	default:
		panic(fmt.Sprintf("unknown event type: %v", eventType))
	}

	if s.probe != nil {
		s.probe(s.clock, s.state.QueueLength(), s.state.ServersBusy())
	}
	if s.config.CheckInvariants {
		if err := s.state.CheckInvariants(); err != nil {
			panic(fmt.Sprintf("BUG: %v", err))
		}
	}

	if s.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		s.log.WithFields(logrus.Fields{
			"t":          s.clock,
			"event":      eventType.String(),
			"busy":       s.state.ServersBusy(),
			"queue":      s.state.QueueLength(),
			"departures": s.store.PendingDepartures(),
		}).Debug("event dispatched")
	}

	if s.clock >= s.config.Horizon {
		s.finish()
	}
	return true
}

// StepUntil dispatches every event up to target (or to the horizon if
// target lies beyond it) and returns the clock.
func (s *Simulator) StepUntil(target float64) float64 {
	for !s.finished {
		if _, t := s.store.Next(); t > target && target < s.config.Horizon {
			break
		}
		s.Step()
	}
	return s.clock
}

// Run drives the simulation to the horizon and returns its results
func (s *Simulator) Run() (*Results, error) {
	for s.Step() {
	}
	return s.Results()
}

// Results returns the derived-metric snapshot. Fails before the horizon.
func (s *Simulator) Results() (*Results, error) {
	if !s.finished {
		return nil, fmt.Errorf("results at t=%.5f of %.5f: %w", s.clock, s.config.Horizon, ErrNotFinished)
	}
	return newResults(s.runID, s.config, s.clock, s.stats, s.state), nil
}

// Progress is a live view of a run, valid at any time
type Progress struct {
	RunID             string  `json:"runId"`
	Clock             float64 `json:"clock"`
	Horizon           float64 `json:"horizon"`
	Arrivals          int     `json:"arrivals"`
	Admitted          int     `json:"admitted"`
	Rejected          int     `json:"rejected"`
	ServersBusy       int     `json:"serversBusy"`
	QueueLength       int     `json:"queueLength"`
	PendingDepartures int     `json:"pendingDepartures"`
	NextArrival       float64 `json:"-"`
	Finished          bool    `json:"finished"`
}

// Progress returns the current counters of the run
func (s *Simulator) Progress() Progress {
	return Progress{
		RunID:             s.runID,
		Clock:             s.clock,
		Horizon:           s.config.Horizon,
		Arrivals:          s.stats.Arrivals(),
		Admitted:          s.stats.Admitted(),
		Rejected:          s.stats.Rejected(),
		ServersBusy:       s.state.ServersBusy(),
		QueueLength:       s.state.QueueLength(),
		PendingDepartures: s.store.PendingDepartures(),
		NextArrival:       s.store.NextArrivalTime(),
		Finished:          s.finished,
	}
}

// advance charges the interval up to t to the state held before t,
// then moves the clock.
func (s *Simulator) advance(t float64) {
	s.stats.ChargeInterval(t-s.clock, s.state.ServersBusy(), s.state.QueueLength())
	s.clock = t
}

func (s *Simulator) finish() {
	s.finished = true
	if s.probe != nil {
		s.probe(s.clock, s.state.QueueLength(), s.state.ServersBusy())
	}
	s.log.WithFields(logrus.Fields{
		"t":        s.clock,
		"arrivals": s.stats.Arrivals(),
		"admitted": s.stats.Admitted(),
		"rejected": s.stats.Rejected(),
	}).Info("simulation reached horizon")
}

func (s *Simulator) trace(label TraceLabel) {
	s.tracer.Trace(TraceEvent{Label: label, Time: s.clock})
}

// nextArrivalFrom draws the next arrival using the rate of the current
// state; a zero rate silences the arrival process (+Inf).
func (s *Simulator) nextArrivalFrom(t float64) float64 {
	rate := s.state.ArrivalRate(s.config.ArrivalRate)
	return t + Exponential{Rate: rate}.Next(s.rng)
}

// processArrival handles an admission attempt at time t
func (s *Simulator) processArrival(t float64) {
	s.advance(t)
	s.stats.RecordArrival()
	s.trace(TraceArrival)

	if s.state.IsFull() || s.state.PopulationExhausted() {
		s.stats.RecordRejection()
		s.trace(TraceRejected)
		s.store.ScheduleArrival(s.nextArrivalFrom(t))
		return
	}

	s.state.admit()
	s.stats.RecordAdmission()
	s.stats.RecordInterArrivalGap(t - s.lastAdmission)
	s.lastAdmission = t
	s.trace(TraceAdmitted)

	if s.state.HasFreeServer() {
		s.state.occupyServer()
		s.startService(t)
	} else {
		s.state.enqueue(t)
		s.stats.RecordQueued()
	}

	s.store.ScheduleArrival(s.nextArrivalFrom(t))
}

// processDeparture handles the earliest service completion
func (s *Simulator) processDeparture() {
	t := s.store.PopEarliestDeparture()
	s.advance(t)
	s.trace(TraceDeparts)
	s.state.release()

	// A silent arrival process wakes up once population is back
	if math.IsInf(s.store.NextArrivalTime(), 1) {
		s.store.ScheduleArrival(s.nextArrivalFrom(t))
	}

	if s.state.QueueLength() > 0 {
		arrivedAt := s.state.dequeue()
		s.stats.RecordWaiting(t - arrivedAt)
		s.startService(t)
		return
	}
	s.state.freeServer()
}

// startService draws a service time for a customer taking a server at t
func (s *Simulator) startService(t float64) {
	d := s.service.Next(s.rng)
	s.stats.RecordService(d)
	s.store.ScheduleDeparture(t + d)
	s.trace(TraceEntersService)
}
