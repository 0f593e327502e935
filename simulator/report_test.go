package simulator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func resultsFor(t *testing.T, stats *Accumulator, inService, inQueue int) *Results {
	t.Helper()
	config := DefaultConfig()
	config.RandomSeed = 1
	return &Results{RunID: "test", Config: config, Horizon: stats.Elapsed(), stats: stats, inService: inService, inQueue: inQueue}
}

func TestResultsHandComputed(t *testing.T) {
	a := NewAccumulator()
	// Two customers: the first is served at once, the second waits 1.5
	a.RecordArrival()
	a.RecordAdmission()
	a.RecordInterArrivalGap(1.0)
	a.RecordService(2.0)
	a.RecordArrival()
	a.RecordAdmission()
	a.RecordInterArrivalGap(0.5)
	a.RecordQueued()
	a.RecordWaiting(1.5)
	a.RecordService(1.0)
	a.RecordArrival()
	a.RecordRejection()
	a.ChargeInterval(1.0, 0, 0)
	a.ChargeInterval(0.5, 1, 0)
	a.ChargeInterval(1.5, 1, 1)
	a.ChargeInterval(1.0, 1, 0)

	r := resultsFor(t, a, 0, 0)

	w, err := r.MeanWaitingTime()
	require.NoError(t, err)
	require.InDelta(t, 0.75, w, 1e-12)

	s, err := r.MeanServiceTime()
	require.NoError(t, err)
	require.InDelta(t, 1.5, s, 1e-12)

	v, err := r.ServiceTimeVariance()
	require.NoError(t, err)
	require.InDelta(t, 0.5, v, 1e-12) // unbiased: ((0.5)^2 + (0.5)^2) / 1

	st, err := r.MeanSystemTime()
	require.NoError(t, err)
	require.InDelta(t, 2.25, st, 1e-12)

	ia, err := r.MeanInterArrivalTime()
	require.NoError(t, err)
	require.InDelta(t, 0.75, ia, 1e-12)

	q, err := r.MeanQueueLength()
	require.NoError(t, err)
	require.InDelta(t, 1.5/4.0, q, 1e-12)

	b, err := r.MeanBusyServers()
	require.NoError(t, err)
	require.InDelta(t, 3.0/4.0, b, 1e-12)

	l, err := r.MeanSystemPopulation()
	require.NoError(t, err)
	require.InDelta(t, 4.5/4.0, l, 1e-12)

	rr, err := r.RejectionRate()
	require.NoError(t, err)
	require.InDelta(t, 1.0/3.0, rr, 1e-12)
}

func TestResultsUndefined(t *testing.T) {
	r := resultsFor(t, NewAccumulator(), 0, 0)

	checks := map[string]func() (float64, error){
		"meanWaitingTime":      r.MeanWaitingTime,
		"meanServiceTime":      r.MeanServiceTime,
		"serviceTimeVariance":  r.ServiceTimeVariance,
		"waitingTimeVariance":  r.WaitingTimeVariance,
		"meanSystemTime":       r.MeanSystemTime,
		"meanInterArrivalTime": r.MeanInterArrivalTime,
		"interArrivalVariance": r.InterArrivalVariance,
		"meanQueueLength":      r.MeanQueueLength,
		"rejectionRate":        r.RejectionRate,
	}
	for name, fn := range checks {
		_, err := fn()
		require.ErrorIs(t, err, ErrUndefined, name)
	}

	// One sample is enough for a mean but not for a variance
	a := NewAccumulator()
	a.RecordAdmission()
	a.RecordService(1.0)
	r = resultsFor(t, a, 1, 0)
	_, err := r.MeanServiceTime()
	require.NoError(t, err)
	_, err = r.ServiceTimeVariance()
	var statErr *StatError
	require.True(t, errors.As(err, &statErr))
	require.Equal(t, 1, statErr.Samples)
	require.Equal(t, 2, statErr.Need)
}

func TestResultsServicePopulationInvariant(t *testing.T) {
	a := NewAccumulator()
	a.RecordAdmission()
	a.RecordAdmission()
	a.RecordService(1.0)

	// One admitted customer still waits: consistent
	_, err := resultsFor(t, a, 1, 1).MeanServiceTime()
	require.NoError(t, err)

	// Nobody waits but only one service was drawn
	_, err = resultsFor(t, a, 1, 0).MeanServiceTime()
	require.ErrorIs(t, err, ErrInvariant)

	_, err = resultsFor(t, a, 1, 0).Summary()
	require.ErrorIs(t, err, ErrInvariant)
}

func TestSummaryRecordsUndefinedMetrics(t *testing.T) {
	a := NewAccumulator()
	a.ChargeInterval(10, 0, 0)
	s, err := resultsFor(t, a, 0, 0).Summary()
	require.NoError(t, err)

	require.Nil(t, s.MeanWaitingTime)
	require.Contains(t, s.Undefined, "meanWaitingTime")
	require.Contains(t, s.Undefined, "rejectionRate")
	require.NotNil(t, s.MeanQueueLength)
	require.Equal(t, 0.0, *s.MeanQueueLength)

	// Default config is M/M/1 with rho = 0.5, so the reference is available
	require.NotNil(t, s.Theory)
	require.InDelta(t, 1.0, s.Theory.MeanSystemPopulation, 1e-6)
}
