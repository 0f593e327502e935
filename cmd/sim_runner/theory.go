package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/miretskiy/queuesim/simulator"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newTheoryCmd(v *viper.Viper) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "theory",
		Short: "Print the analytical steady-state solution",
		Long: `Solves the birth-death process matching the configured station. Only
exponential service has a closed solution; unbounded stations must be
stable (arrival rate below the total service rate).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadSimConfig(cmd, v)
			if err != nil {
				return err
			}
			th, err := simulator.SolveTheory(config)
			if err != nil {
				return fmt.Errorf("%s: %w", config.Model(), err)
			}

			w := cmd.OutOrStdout()
			switch format {
			case "json":
				data, err := json.MarshalIndent(th, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(w, string(data))
			case "text":
				color.New(color.FgCyan, color.Bold).Fprintf(w, "Analytical solution of %s\n", config.Model())
				fmt.Fprintf(w, "  %-28s %14.5f\n", "admission rate", th.AdmissionRate)
				fmt.Fprintf(w, "  %-28s %14.5f\n", "rejection probability", th.RejectionProbability)
				fmt.Fprintf(w, "  %-28s %14.5f\n", "mean time in queue", th.MeanWaitingTime)
				fmt.Fprintf(w, "  %-28s %14.5f\n", "mean service time", th.MeanServiceTime)
				fmt.Fprintf(w, "  %-28s %14.5f\n", "mean time in system", th.MeanSystemTime)
				fmt.Fprintf(w, "  %-28s %14.5f\n", "mean users in queue", th.MeanQueueLength)
				fmt.Fprintf(w, "  %-28s %14.5f\n", "mean users in service", th.MeanBusyServers)
				fmt.Fprintf(w, "  %-28s %14.5f\n", "mean users in system", th.MeanSystemPopulation)
				fmt.Fprintf(w, "  %-28s %14.5f\n", "utilization", th.Utilization)
			default:
				return fmt.Errorf("unknown format %q (must be 'text' or 'json')", format)
			}
			return nil
		},
	}
	addSimFlags(cmd)
	cmd.Flags().StringVar(&format, "format", "text", "output format (text, json)")
	return cmd
}
