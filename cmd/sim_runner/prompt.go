package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/miretskiy/queuesim/simulator"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// errNoInput is returned when the input ends before every question is answered
var errNoInput = errors.New("input closed before the configuration was complete")

func newPromptCmd(v *viper.Viper) *cobra.Command {
	opts := runOptions{}
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Ask for the parameters interactively, then run",
		Long: `Asks for every simulation parameter on the terminal, re-asking until the
answer is valid. Pressing enter keeps the value shown in brackets, which
comes from flags, environment and config file. The run then behaves like
'sim_runner run'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defaults, err := loadSimConfig(cmd, v)
			if err != nil {
				return err
			}
			config, err := promptConfig(cmd.InOrStdin(), cmd.OutOrStdout(), defaults)
			if err != nil {
				return err
			}
			return runSimulation(cmd.OutOrStdout(), config, opts)
		},
	}
	addSimFlags(cmd)
	addRunFlags(cmd, &opts)
	return cmd
}

type prompter struct {
	sc  *bufio.Scanner
	out io.Writer
}

// ask repeats question until parse accepts the answer. An empty answer
// stands for def.
func (p *prompter) ask(question, def string, parse func(string) error) error {
	for {
		fmt.Fprintf(p.out, "%s [%s]: ", question, def)
		if !p.sc.Scan() {
			if err := p.sc.Err(); err != nil {
				return fmt.Errorf("read answer: %w", err)
			}
			return errNoInput
		}
		answer := strings.TrimSpace(p.sc.Text())
		if answer == "" {
			answer = def
		}
		if err := parse(answer); err != nil {
			fmt.Fprintf(p.out, "  invalid value: %v, try again\n", err)
			continue
		}
		return nil
	}
}

func parseNumber(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not a finite number", s)
	}
	return f, nil
}

func floatAtLeast(dst *float64, lower float64, strict bool) func(string) error {
	return func(s string) error {
		f, err := parseNumber(s)
		if err != nil {
			return err
		}
		if f < lower || (strict && f == lower) {
			op := ">="
			if strict {
				op = ">"
			}
			return fmt.Errorf("must be %s %g", op, lower)
		}
		*dst = f
		return nil
	}
}

// promptConfig fills a SimConfig from answers read from in
func promptConfig(in io.Reader, out io.Writer, defaults simulator.SimConfig) (simulator.SimConfig, error) {
	config := defaults
	p := &prompter{sc: bufio.NewScanner(in), out: out}
	g := func(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }

	if err := p.ask("Arrival rate (lambda)", g(config.ArrivalRate), floatAtLeast(&config.ArrivalRate, 0, false)); err != nil {
		return config, err
	}

	dist := "e"
	if config.Service.Type == simulator.DistNormal {
		dist = "n"
	}
	if err := p.ask("Service distribution (e = exponential, n = normal)", dist, func(s string) error {
		t, err := simulator.ParseDistributionType(s)
		if err != nil {
			return err
		}
		config.Service.Type = t
		return nil
	}); err != nil {
		return config, err
	}

	if config.Service.Type == simulator.DistExponential {
		rate := config.Service.Rate
		if rate <= 0 {
			rate = 1
		}
		if err := p.ask("Service rate (mu)", g(rate), floatAtLeast(&config.Service.Rate, 0, true)); err != nil {
			return config, err
		}
	} else {
		if err := p.ask("Service time mean", g(config.Service.Mean), func(s string) error {
			f, err := parseNumber(s)
			if err != nil {
				return err
			}
			config.Service.Mean = f
			return nil
		}); err != nil {
			return config, err
		}
		if err := p.ask("Service time standard deviation", g(config.Service.StdDev), func(s string) error {
			var sd float64
			if err := floatAtLeast(&sd, 0, false)(s); err != nil {
				return err
			}
			if sd == 0 && config.Service.Mean <= 0 {
				return errors.New("must be > 0 when the mean is not positive")
			}
			config.Service.StdDev = sd
			return nil
		}); err != nil {
			return config, err
		}
	}

	if err := p.ask("Number of servers", strconv.Itoa(config.Servers), func(s string) error {
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("%q is not an integer", s)
		}
		if n < 1 {
			return errors.New("must be >= 1")
		}
		config.Servers = n
		return nil
	}); err != nil {
		return config, err
	}

	limit := func(dst *simulator.Limit) func(string) error {
		return func(s string) error {
			l, err := simulator.ParseLimit(s)
			if err != nil {
				return err
			}
			*dst = l
			return nil
		}
	}
	if err := p.ask("System capacity (a number or 'infinite')", config.Capacity.String(), limit(&config.Capacity)); err != nil {
		return config, err
	}
	if err := p.ask("Population size (a number or 'infinite')", config.Population.String(), limit(&config.Population)); err != nil {
		return config, err
	}

	if err := p.ask("Simulation horizon", g(config.Horizon), floatAtLeast(&config.Horizon, 0, true)); err != nil {
		return config, err
	}
	if err := p.ask("Random seed (0 = time-based)", strconv.FormatInt(config.RandomSeed, 10), func(s string) error {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("%q is not an integer", s)
		}
		config.RandomSeed = n
		return nil
	}); err != nil {
		return config, err
	}

	return config, config.Validate()
}
