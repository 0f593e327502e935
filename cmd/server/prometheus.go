package main

import (
	"math"

	"github.com/miretskiy/queuesim/simulator"
	"github.com/prometheus/client_golang/prometheus"
)

// promMetrics exports the live state of the most recently stepped run and
// the report of the most recently completed one.
type promMetrics struct {
	// Live (updated every tick)
	clock       prometheus.Gauge
	queueLength prometheus.Gauge
	serversBusy prometheus.Gauge
	arrivals    prometheus.Gauge
	rejected    prometheus.Gauge

	// Last completed run
	runsCompleted        prometheus.Counter
	meanWaitingTime      prometheus.Gauge
	meanServiceTime      prometheus.Gauge
	meanSystemTime       prometheus.Gauge
	meanQueueLength      prometheus.Gauge
	meanBusyServers      prometheus.Gauge
	meanSystemPopulation prometheus.Gauge
	utilization          prometheus.Gauge
	rejectionRate        prometheus.Gauge
}

func newGauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "queuesim",
		Name:      name,
		Help:      help,
	})
}

func newPromMetrics(reg prometheus.Registerer) *promMetrics {
	m := &promMetrics{
		clock:       newGauge("clock", "Simulated time of the last stepped run"),
		queueLength: newGauge("queue_length", "Customers waiting in the last stepped run"),
		serversBusy: newGauge("servers_busy", "Customers in service in the last stepped run"),
		arrivals:    newGauge("arrivals", "Admission attempts so far in the last stepped run"),
		rejected:    newGauge("rejected", "Rejected arrivals so far in the last stepped run"),

		runsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "queuesim",
			Name:      "runs_completed_total",
			Help:      "Simulation runs that reached their horizon",
		}),
		meanWaitingTime:      newGauge("mean_waiting_time", "Mean time in queue of the last completed run"),
		meanServiceTime:      newGauge("mean_service_time", "Mean service time of the last completed run"),
		meanSystemTime:       newGauge("mean_system_time", "Mean time in system of the last completed run"),
		meanQueueLength:      newGauge("mean_queue_length", "Time-averaged queue length of the last completed run"),
		meanBusyServers:      newGauge("mean_busy_servers", "Time-averaged busy servers of the last completed run"),
		meanSystemPopulation: newGauge("mean_system_population", "Time-averaged customers in system of the last completed run"),
		utilization:          newGauge("utilization", "Server utilization of the last completed run"),
		rejectionRate:        newGauge("rejection_rate", "Fraction of arrivals rejected in the last completed run"),
	}
	reg.MustRegister(
		m.clock,
		m.queueLength,
		m.serversBusy,
		m.arrivals,
		m.rejected,
		m.runsCompleted,
		m.meanWaitingTime,
		m.meanServiceTime,
		m.meanSystemTime,
		m.meanQueueLength,
		m.meanBusyServers,
		m.meanSystemPopulation,
		m.utilization,
		m.rejectionRate,
	)
	return m
}

func (m *promMetrics) observeProgress(p simulator.Progress) {
	m.clock.Set(p.Clock)
	m.queueLength.Set(float64(p.QueueLength))
	m.serversBusy.Set(float64(p.ServersBusy))
	m.arrivals.Set(float64(p.Arrivals))
	m.rejected.Set(float64(p.Rejected))
}

// setOrNaN exports an undefined statistic as NaN
func setOrNaN(g prometheus.Gauge, v *float64) {
	if v == nil {
		g.Set(math.NaN())
		return
	}
	g.Set(*v)
}

func (m *promMetrics) observeSummary(s *simulator.Summary) {
	m.runsCompleted.Inc()
	setOrNaN(m.meanWaitingTime, s.MeanWaitingTime)
	setOrNaN(m.meanServiceTime, s.MeanServiceTime)
	setOrNaN(m.meanSystemTime, s.MeanSystemTime)
	setOrNaN(m.meanQueueLength, s.MeanQueueLength)
	setOrNaN(m.meanBusyServers, s.MeanBusyServers)
	setOrNaN(m.meanSystemPopulation, s.MeanSystemPopulation)
	setOrNaN(m.utilization, s.Utilization)
	setOrNaN(m.rejectionRate, s.RejectionRate)
}
