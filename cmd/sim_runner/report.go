package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	jsoniter "github.com/json-iterator/go"
	"github.com/miretskiy/queuesim/simulator"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// runReport is the JSON document written by `run --format json`
type runReport struct {
	Model    string              `json:"model"`
	Config   simulator.SimConfig `json:"config"`
	RealTime float64             `json:"realTimeSeconds"`
	Summary  *simulator.Summary  `json:"summary"`
}

func writeJSONReport(w io.Writer, report runReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

type reportRow struct {
	label  string
	value  *float64
	theory *float64
}

// writeTextReport prints the summary as an aligned table, with the
// analytical value next to each metric when one is available.
func writeTextReport(w io.Writer, config simulator.SimConfig, s *simulator.Summary) error {
	header := color.New(color.FgCyan, color.Bold)
	undefined := color.New(color.FgYellow)

	header.Fprintf(w, "Simulation of %s (run %s)\n", config.Model(), s.RunID)
	fmt.Fprintf(w, "  arrival rate %g, service %s, horizon %g, seed %d\n\n",
		config.ArrivalRate, config.Service.String(), s.Horizon, s.Seed)

	fmt.Fprintf(w, "  %-28s %10d\n", "arrivals", s.Arrivals)
	fmt.Fprintf(w, "  %-28s %10d\n", "admitted", s.Admitted)
	fmt.Fprintf(w, "  %-28s %10d\n", "rejected", s.Rejected)
	fmt.Fprintf(w, "  %-28s %10d\n", "had to wait", s.Queued)
	fmt.Fprintf(w, "  %-28s %10d\n\n", "in system at horizon", s.InService+s.InQueue)

	var th simulator.Theory
	if s.Theory != nil {
		th = *s.Theory
	}
	ref := func(v float64) *float64 {
		if s.Theory == nil {
			return nil
		}
		return &v
	}
	rows := []reportRow{
		{"mean time in queue", s.MeanWaitingTime, ref(th.MeanWaitingTime)},
		{"variance of time in queue", s.WaitingTimeVariance, nil},
		{"mean service time", s.MeanServiceTime, ref(th.MeanServiceTime)},
		{"variance of service time", s.ServiceTimeVariance, nil},
		{"mean time in system", s.MeanSystemTime, ref(th.MeanSystemTime)},
		{"mean inter-arrival time", s.MeanInterArrivalTime, nil},
		{"variance of inter-arrival", s.InterArrivalVariance, nil},
		{"mean users in queue", s.MeanQueueLength, ref(th.MeanQueueLength)},
		{"mean users in service", s.MeanBusyServers, ref(th.MeanBusyServers)},
		{"mean users in system", s.MeanSystemPopulation, ref(th.MeanSystemPopulation)},
		{"utilization", s.Utilization, ref(th.Utilization)},
		{"rejection rate", s.RejectionRate, ref(th.RejectionProbability)},
	}

	if s.Theory != nil {
		header.Fprintf(w, "  %-28s %14s %14s\n", "metric", "simulated", "analytical")
	} else {
		header.Fprintf(w, "  %-28s %14s\n", "metric", "simulated")
	}
	for _, r := range rows {
		fmt.Fprintf(w, "  %-28s ", r.label)
		if r.value != nil {
			fmt.Fprintf(w, "%14.5f", *r.value)
		} else {
			undefined.Fprintf(w, "%14s", "undefined")
		}
		if r.theory != nil {
			fmt.Fprintf(w, " %14.5f", *r.theory)
		}
		fmt.Fprintln(w)
	}
	return nil
}
