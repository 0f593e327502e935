package main

import (
	"fmt"

	"github.com/miretskiy/queuesim/simulator"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// simFlags maps command-line flags to configuration keys
var simFlags = []struct {
	flag string
	key  string
}{
	{"arrival-rate", "arrivalRate"},
	{"service", "service.type"},
	{"service-rate", "service.rate"},
	{"service-mean", "service.mean"},
	{"service-stddev", "service.stdDev"},
	{"servers", "servers"},
	{"capacity", "capacity"},
	{"population", "population"},
	{"horizon", "horizon"},
	{"seed", "randomSeed"},
	{"check-invariants", "checkInvariants"},
}

func setConfigDefaults(v *viper.Viper) {
	d := simulator.DefaultConfig()
	v.SetDefault("arrivalRate", d.ArrivalRate)
	v.SetDefault("service.type", d.Service.Type.String())
	v.SetDefault("service.rate", d.Service.Rate)
	v.SetDefault("service.mean", d.Service.Mean)
	v.SetDefault("service.stdDev", d.Service.StdDev)
	v.SetDefault("servers", d.Servers)
	v.SetDefault("capacity", d.Capacity.String())
	v.SetDefault("population", d.Population.String())
	v.SetDefault("horizon", d.Horizon)
	v.SetDefault("randomSeed", d.RandomSeed)
	v.SetDefault("checkInvariants", d.CheckInvariants)
}

// addSimFlags declares the simulation parameters on cmd. Flags are bound to
// viper when the command runs, since several commands share the same keys.
func addSimFlags(cmd *cobra.Command) {
	d := simulator.DefaultConfig()
	f := cmd.Flags()
	f.Float64("arrival-rate", d.ArrivalRate, "base arrival rate (lambda); per idle member for finite populations")
	f.String("service", d.Service.Type.String(), "service distribution (exponential, normal)")
	f.Float64("service-rate", d.Service.Rate, "exponential service rate (mu)")
	f.Float64("service-mean", d.Service.Mean, "normal service mean")
	f.Float64("service-stddev", d.Service.StdDev, "normal service standard deviation")
	f.Int("servers", d.Servers, "number of parallel servers")
	f.String("capacity", d.Capacity.String(), "max customers in the system, or 'infinite'")
	f.String("population", d.Population.String(), "finite-source population size, or 'infinite'")
	f.Float64("horizon", d.Horizon, "simulated time to run")
	f.Int64("seed", d.RandomSeed, "random seed (0 = time-based)")
	f.Bool("check-invariants", d.CheckInvariants, "verify state invariants after every event")
}

func bindSimFlags(flags *pflag.FlagSet, v *viper.Viper) error {
	for _, sf := range simFlags {
		if err := v.BindPFlag(sf.key, flags.Lookup(sf.flag)); err != nil {
			return fmt.Errorf("bind flag --%s: %w", sf.flag, err)
		}
	}
	return nil
}

// loadSimConfig resolves flags, environment and config file into a
// validated SimConfig.
func loadSimConfig(cmd *cobra.Command, v *viper.Viper) (simulator.SimConfig, error) {
	var config simulator.SimConfig
	if err := bindSimFlags(cmd.Flags(), v); err != nil {
		return config, err
	}
	if err := v.Unmarshal(&config, viper.DecodeHook(simulator.ConfigDecodeHook())); err != nil {
		return config, fmt.Errorf("decode config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

func newConfigCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long: `Resolves flags, QUESIM_* environment variables and the config file,
validates the result and prints it as YAML. The output can be fed back
with --config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadSimConfig(cmd, v)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(config); err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			return enc.Close()
		},
	}
	addSimFlags(cmd)
	return cmd
}
