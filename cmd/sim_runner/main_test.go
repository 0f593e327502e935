package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/miretskiy/queuesim/simulator"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// execute runs the CLI with args and returns what it printed
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append(args, "--env-file", "", "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func effectiveConfig(t *testing.T, args ...string) simulator.SimConfig {
	t.Helper()
	out, err := execute(t, "", append([]string{"config"}, args...)...)
	require.NoError(t, err)
	var config simulator.SimConfig
	require.NoError(t, yaml.Unmarshal([]byte(out), &config))
	return config
}

func TestConfigCommandDefaults(t *testing.T) {
	require.Equal(t, simulator.DefaultConfig(), effectiveConfig(t))
}

func TestConfigCommandFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("QUESIM_SERVERS", "3")
	t.Setenv("QUESIM_ARRIVALRATE", "9")
	t.Setenv("QUESIM_POPULATION", "40")

	config := effectiveConfig(t, "--arrival-rate", "2.5", "--capacity", "10")
	require.Equal(t, 3, config.Servers)
	require.Equal(t, 2.5, config.ArrivalRate)
	require.Equal(t, simulator.Limit(10), config.Capacity)
	require.Equal(t, simulator.Limit(40), config.Population)
}

func TestConfigCommandReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "station.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
arrivalRate: 0.5
service:
  type: normal
  mean: 1.5
  stdDev: 0.25
servers: 2
capacity: 6
horizon: 750
randomSeed: 11
`), 0644))

	config := effectiveConfig(t, "--config", path, "--servers", "4")
	require.Equal(t, 0.5, config.ArrivalRate)
	require.Equal(t, simulator.DistNormal, config.Service.Type)
	require.Equal(t, 1.5, config.Service.Mean)
	require.Equal(t, 0.25, config.Service.StdDev)
	require.Equal(t, 4, config.Servers) // flag wins over file
	require.Equal(t, simulator.Limit(6), config.Capacity)
	require.True(t, config.Population.IsInfinite())
	require.Equal(t, 750.0, config.Horizon)
	require.Equal(t, int64(11), config.RandomSeed)

	// The dump reads back as the same configuration
	out, err := execute(t, "", "config", "--config", path, "--servers", "4")
	require.NoError(t, err)
	dump := filepath.Join(dir, "dump.yaml")
	require.NoError(t, os.WriteFile(dump, []byte(out), 0644))
	require.Equal(t, config, effectiveConfig(t, "--config", dump))
}

func TestConfigCommandRejectsInvalidValues(t *testing.T) {
	_, err := execute(t, "", "config", "--servers", "0")
	require.ErrorIs(t, err, simulator.ErrInvalidConfigValue)

	_, err = execute(t, "", "config", "--capacity=-3")
	require.ErrorContains(t, err, "invalid limit")

	_, err = execute(t, "", "config", "--service", "gamma")
	require.ErrorContains(t, err, "invalid DistributionType")

	_, err = execute(t, "", "config", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "read config")
}

func TestConfigCommandRejectsZeroLimits(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"capacity.yaml":   "capacity: 0\n",
		"population.yaml": "population: 0\n",
		"negative.yaml":   "capacity: -1\n",
		"capacity.json":   `{"capacity": 0}`,
	} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0644))
		_, err := execute(t, "", "config", "--config", path)
		require.ErrorIs(t, err, simulator.ErrInvalidConfigValue, name)
	}

	t.Setenv("QUESIM_CAPACITY", "0")
	_, err := execute(t, "", "config")
	require.ErrorContains(t, err, "invalid limit")

	_, err = execute(t, "", "config", "--population", "0")
	require.ErrorContains(t, err, "invalid limit")
}

func TestRunCommandJSONReport(t *testing.T) {
	dir := t.TempDir()
	tracePath := filepath.Join(dir, "output.txt")
	out, err := execute(t, "", "run", "--format", "json", "--horizon", "200", "--seed", "5", "--trace", tracePath)
	require.NoError(t, err)

	var report runReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Equal(t, "M/M/1", report.Model)
	require.Equal(t, int64(5), report.Config.RandomSeed)
	require.Equal(t, 200.0, report.Summary.Horizon)
	require.NotNil(t, report.Summary.MeanSystemTime)
	require.NotNil(t, report.Summary.Theory)

	data, err := os.ReadFile(tracePath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	arrivals := 0
	for _, line := range lines {
		require.Len(t, line, 42, "line %q", line)
		if strings.HasPrefix(line, "arrival ") {
			arrivals++
		}
	}
	require.Equal(t, report.Summary.Arrivals, arrivals)
}

func TestRunCommandTextReport(t *testing.T) {
	reportPath := filepath.Join(t.TempDir(), "report.txt")
	_, err := execute(t, "", "run", "--horizon", "100", "--seed", "3", "--trace", "", "--servers", "2", "--capacity", "3", "--out", reportPath)
	require.NoError(t, err)

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	report := string(data)
	require.Contains(t, report, "Simulation of M/M/2/3")
	require.Contains(t, report, "mean time in system")
	require.Contains(t, report, "analytical")
	require.Contains(t, report, "rejection rate")
}

func TestRunCommandRejectsUnknownFormat(t *testing.T) {
	_, err := execute(t, "", "run", "--format", "xml", "--trace", "")
	require.ErrorContains(t, err, "unknown report format")
}

func TestTheoryCommand(t *testing.T) {
	out, err := execute(t, "", "theory", "--format", "json")
	require.NoError(t, err)
	var th simulator.Theory
	require.NoError(t, json.Unmarshal([]byte(out), &th))
	require.InDelta(t, 1.0, th.MeanSystemTime, 1e-9)

	out, err = execute(t, "", "theory", "--servers", "2", "--capacity", "4")
	require.NoError(t, err)
	require.Contains(t, out, "Analytical solution of M/M/2/4")

	_, err = execute(t, "", "theory", "--service", "normal", "--service-mean", "1", "--service-stddev", "0.1")
	require.ErrorIs(t, err, simulator.ErrNotMarkovian)

	_, err = execute(t, "", "theory", "--arrival-rate", "5")
	require.ErrorIs(t, err, simulator.ErrUnstable)
}

func TestPlotCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "population.png")
	out, err := execute(t, "", "plot", "--horizon", "50", "--seed", "1", "--out", path)
	require.NoError(t, err)
	require.Contains(t, out, path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestPopulationTraceWindow(t *testing.T) {
	trace := newPopulationTrace(10)
	trace.observe(1, 0, 1)
	trace.observe(4, 1, 1)
	trace.observe(12, 0, 0)

	require.Len(t, trace.system, 5)
	require.Equal(t, 0.0, trace.system[1].Y) // level held until the change
	require.Equal(t, 1.0, trace.system[2].Y)
	require.Equal(t, 2.0, trace.system[4].Y)
	require.Equal(t, 1.0, trace.queue[4].Y)
}

func TestPromptConfigRetriesInvalidAnswers(t *testing.T) {
	answers := strings.Join([]string{
		"abc", "2", // arrival rate
		"n",          // distribution
		"1.5", "0.2", // mean, stddev
		"0", "2", // servers
		"inf", // capacity
		"10",  // population
		"",    // horizon: keep default
		"7",   // seed
	}, "\n") + "\n"

	var out bytes.Buffer
	config, err := promptConfig(strings.NewReader(answers), &out, simulator.DefaultConfig())
	require.NoError(t, err)

	require.Equal(t, 2.0, config.ArrivalRate)
	require.Equal(t, simulator.ServiceDistribution{Type: simulator.DistNormal, Rate: 2, Mean: 1.5, StdDev: 0.2}, config.Service)
	require.Equal(t, 2, config.Servers)
	require.True(t, config.Capacity.IsInfinite())
	require.Equal(t, simulator.Limit(10), config.Population)
	require.Equal(t, simulator.DefaultConfig().Horizon, config.Horizon)
	require.Equal(t, int64(7), config.RandomSeed)
	require.Equal(t, 2, strings.Count(out.String(), "try again"))
}

func TestPromptConfigEndOfInput(t *testing.T) {
	_, err := promptConfig(strings.NewReader("1\n"), &bytes.Buffer{}, simulator.DefaultConfig())
	require.ErrorIs(t, err, errNoInput)
}

func TestPromptCommandRuns(t *testing.T) {
	answers := "1\ne\n2\n1\n\n\n100\n9\n"
	out, err := execute(t, answers, "prompt", "--trace", "", "--format", "json")
	require.NoError(t, err)

	// The report follows the questions
	report := out[strings.Index(out, "{"):]
	var r runReport
	require.NoError(t, json.Unmarshal([]byte(report), &r))
	require.Equal(t, int64(9), r.Config.RandomSeed)
	require.Equal(t, 100.0, r.Summary.Horizon)
}

type failingCloser struct {
	bytes.Buffer
}

func (*failingCloser) Close() error { return errors.New("disk full") }

func TestWriteAndCloseReportsCloseError(t *testing.T) {
	wc := &failingCloser{}
	err := writeAndClose(wc, "report.txt", func(w io.Writer) error {
		_, err := io.WriteString(w, "report")
		return err
	})
	require.ErrorContains(t, err, "write report report.txt: disk full")
	require.Equal(t, "report", wc.String())

	// A write error wins over the close error
	err = writeAndClose(&failingCloser{}, "report.txt", func(io.Writer) error {
		return errors.New("encode failed")
	})
	require.EqualError(t, err, "encode failed")
}
