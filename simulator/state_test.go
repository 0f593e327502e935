package simulator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueueStateWaitingLineIsFIFO(t *testing.T) {
	q := NewQueueState(1, Infinite, Infinite)
	q.occupyServer()
	for i := 0; i < 200; i++ {
		q.enqueue(float64(i))
	}
	require.Equal(t, 200, q.QueueLength())

	// Drain past the compaction threshold while interleaving new arrivals
	for i := 0; i < 150; i++ {
		require.Equal(t, float64(i), q.dequeue())
	}
	q.enqueue(1000)
	require.Equal(t, 51, q.QueueLength())

	line := q.WaitingLine()
	require.Equal(t, 150.0, line[0])
	require.Equal(t, 1000.0, line[len(line)-1])
	require.NoError(t, q.CheckInvariants())
}

func TestQueueStateCapacity(t *testing.T) {
	q := NewQueueState(1, 2, Infinite)
	require.False(t, q.IsFull())

	q.admit()
	q.occupyServer()
	require.False(t, q.IsFull())

	q.admit()
	q.enqueue(1.0)
	require.True(t, q.IsFull())
	require.False(t, q.HasFreeServer())
	require.NoError(t, q.CheckInvariants())
}

func TestQueueStateFinitePopulation(t *testing.T) {
	q := NewQueueState(2, Infinite, 3)
	n, finite := q.Population()
	require.True(t, finite)
	require.Equal(t, 3, n)
	require.Equal(t, 1.5, q.ArrivalRate(0.5))

	for i := 0; i < 2; i++ {
		q.admit()
		q.occupyServer()
	}
	q.admit()
	q.enqueue(0)
	require.True(t, q.PopulationExhausted())
	require.Equal(t, 0.0, q.ArrivalRate(0.5))
	require.NoError(t, q.CheckInvariants())

	q.release()
	q.dequeue()
	require.False(t, q.PopulationExhausted())
	require.Equal(t, 0.5, q.ArrivalRate(0.5))
	require.NoError(t, q.CheckInvariants())
}

func TestQueueStateInfinitePopulationRate(t *testing.T) {
	q := NewQueueState(1, Infinite, Infinite)
	_, finite := q.Population()
	require.False(t, finite)
	q.admit()
	require.Equal(t, 4.0, q.ArrivalRate(4.0))
	require.False(t, q.PopulationExhausted())
}

func TestQueueStateCheckInvariants(t *testing.T) {
	t.Run("waiting while a server idles", func(t *testing.T) {
		q := NewQueueState(2, Infinite, Infinite)
		q.occupyServer()
		q.enqueue(0)
		require.ErrorIs(t, q.CheckInvariants(), ErrInvariant)
	})

	t.Run("too many busy servers", func(t *testing.T) {
		q := NewQueueState(1, Infinite, Infinite)
		q.occupyServer()
		q.occupyServer()
		require.ErrorIs(t, q.CheckInvariants(), ErrInvariant)
	})

	t.Run("capacity exceeded", func(t *testing.T) {
		q := NewQueueState(1, 1, Infinite)
		q.occupyServer()
		q.enqueue(0)
		require.ErrorIs(t, q.CheckInvariants(), ErrInvariant)
	})

	t.Run("population not conserved", func(t *testing.T) {
		q := NewQueueState(1, Infinite, 2)
		q.occupyServer() // in system without leaving the pool
		require.ErrorIs(t, q.CheckInvariants(), ErrInvariant)
	})
}
