package main

import (
	"sync"

	"github.com/miretskiy/queuesim/simulator"
	"github.com/sirupsen/logrus"
)

// tickUpdate is everything produced by one UI tick
type tickUpdate struct {
	Events   []simulator.TraceEvent
	Dropped  int
	Progress simulator.Progress
	Summary  *simulator.Summary // set once, on the tick that reaches the horizon
	Err      error
}

// simState manages one client's simulation and UI pacing
type simState struct {
	sim      *simulator.Simulator
	config   simulator.SimConfig
	recorder *simulator.Recorder
	log      *logrus.Entry
	running  bool
	paused   bool
	reported bool
	target   float64 // simulated time the UI has paced the run to
	mu       sync.Mutex
	stopCh   chan struct{}
}

func newSimState(config simulator.SimConfig, log *logrus.Entry) (*simState, error) {
	s := &simState{
		config: config,
		log:    log,
		stopCh: make(chan struct{}),
	}
	if err := s.rebuild(config); err != nil {
		return nil, err
	}
	return s, nil
}

// rebuild replaces the simulator; callers hold mu (or own s exclusively)
func (s *simState) rebuild(config simulator.SimConfig) error {
	recorder := &simulator.Recorder{}
	sim, err := simulator.NewSimulator(config,
		simulator.WithTracer(recorder),
		simulator.WithLogger(s.log.WithField("component", "simulator")),
	)
	if err != nil {
		return err
	}
	s.sim = sim
	s.config = config
	s.recorder = recorder
	s.reported = false
	s.target = 0
	return nil
}

// start begins the simulation (sets running flag)
func (s *simState) start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	s.paused = false
}

// pause pauses the simulation
func (s *simState) pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
}

// reset restarts the run with the same configuration
func (s *simState) reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.paused = false
	return s.rebuild(s.config)
}

// updateConfig validates config and starts over with it. The running
// simulation is stopped; a station cannot be reconfigured mid-run.
func (s *simState) updateConfig(config simulator.SimConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.rebuild(config); err != nil {
		return err
	}
	s.running = false
	s.paused = false
	return nil
}

// isRunning returns true if simulation is running and not paused
func (s *simState) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running && !s.paused
}

// getConfig returns the current simulator configuration
func (s *simState) getConfig() simulator.SimConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

func (s *simState) runID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.RunID()
}

// step advances the simulation by deltaT simulated time units (called by
// the UI ticker) and collects the trace produced meanwhile.
func (s *simState) step(deltaT float64, maxEvents int) tickUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()

	var u tickUpdate
	if s.running && !s.paused && !s.sim.Finished() {
		// Pace by a separate target: the clock only moves on events
		s.target += deltaT
		s.sim.StepUntil(s.target)
	}

	u.Events = s.recorder.Drain()
	if maxEvents > 0 && len(u.Events) > maxEvents {
		u.Dropped = len(u.Events) - maxEvents
		u.Events = u.Events[u.Dropped:]
	}
	u.Progress = s.sim.Progress()

	if s.sim.Finished() && !s.reported {
		s.reported = true
		s.running = false
		results, err := s.sim.Results()
		if err == nil {
			u.Summary, err = results.Summary()
		}
		u.Err = err
	}
	return u
}

// stop signals the UI loop to stop
func (s *simState) stop() {
	close(s.stopCh)
}
