package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/miretskiy/queuesim/simulator"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type runOptions struct {
	traceFile string
	format    string
	outFile   string
}

func newRunCmd(v *viper.Viper) *cobra.Command {
	opts := runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one simulation and print its report",
		Long: `Runs the configured station until the horizon. Every event step is
written to the trace file as one fixed-width line; the final report is
printed as a table or, with --format json, as a JSON document.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadSimConfig(cmd, v)
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

func addRunFlags(cmd *cobra.Command, opts *runOptions) {
	cmd.Flags().StringVar(&opts.traceFile, "trace", "output.txt", "trace file (empty to disable)")
	cmd.Flags().StringVar(&opts.format, "format", "text", "report format (text, json)")
	cmd.Flags().StringVarP(&opts.outFile, "out", "o", "", "write the report to a file instead of stdout")
}

// runSimulation runs config to its horizon and writes the report to stdout
// or opts.outFile.
func runSimulation(stdout io.Writer, config simulator.SimConfig, opts runOptions) (err error) {
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("unknown report format %q (must be 'text' or 'json')", opts.format)
	}

	simOpts := []simulator.Option{}
	if opts.traceFile != "" {
		tracer, terr := simulator.OpenTraceFile(opts.traceFile)
		if terr != nil {
			return terr
		}
		defer func() {
			if cerr := tracer.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("write trace %s: %w", opts.traceFile, cerr)
			}
		}()
		simOpts = append(simOpts, simulator.WithTracer(tracer))
	}

	sim, err := simulator.NewSimulator(config, simOpts...)
	if err != nil {
		return err
	}

	log := logrus.WithFields(logrus.Fields{"run": sim.RunID(), "model": config.Model()})
	log.Info("starting simulation")
	startTime := time.Now()

	results, err := sim.Run()
	if err != nil {
		return err
	}
	elapsed := time.Since(startTime)
	log.WithField("elapsed", elapsed).Info("simulation completed")

	summary, err := results.Summary()
	if err != nil {
		return err
	}

	// The simulator records the seed it actually used
	config = sim.Config()
	write := func(w io.Writer) error {
		if opts.format == "json" {
			return writeJSONReport(w, runReport{
				Model:    config.Model(),
				Config:   config,
				RealTime: elapsed.Seconds(),
				Summary:  summary,
			})
		}
		return writeTextReport(w, config, summary)
	}

	if opts.outFile == "" {
		return write(stdout)
	}
	f, err := os.Create(opts.outFile)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	return writeAndClose(f, opts.outFile, write)
}

// writeAndClose runs write against wc and closes it; a failed close
// fails the report just like a failed write.
func writeAndClose(wc io.WriteCloser, name string, write func(io.Writer) error) (err error) {
	defer func() {
		if cerr := wc.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("write report %s: %w", name, cerr)
		}
	}()
	return write(wc)
}
