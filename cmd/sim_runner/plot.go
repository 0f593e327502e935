package main

import (
	"fmt"
	"image/color"

	"github.com/miretskiy/queuesim/simulator"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// populationTrace collects the number of customers in the system as a step
// function of time.
type populationTrace struct {
	window  float64 // 0 = whole run
	system  plotter.XYs
	queue   plotter.XYs
	lastSys float64
	lastQ   float64
}

// newPopulationTrace starts from an empty station at t=0
func newPopulationTrace(window float64) *populationTrace {
	return &populationTrace{
		window: window,
		system: plotter.XYs{{X: 0, Y: 0}},
		queue:  plotter.XYs{{X: 0, Y: 0}},
	}
}

func (p *populationTrace) observe(t float64, inQueue, inService int) {
	if p.window > 0 && t > p.window {
		return
	}
	sys, q := float64(inQueue+inService), float64(inQueue)
	// Hold the previous level until t so the line draws as steps
	p.system = append(p.system, plotter.XY{X: t, Y: p.lastSys}, plotter.XY{X: t, Y: sys})
	p.queue = append(p.queue, plotter.XY{X: t, Y: p.lastQ}, plotter.XY{X: t, Y: q})
	p.lastSys, p.lastQ = sys, q
}

func newPlotCmd(v *viper.Viper) *cobra.Command {
	var (
		outFile string
		window  float64
		width   float64
		height  float64
	)
	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Run one simulation and plot the population over time",
		Long: `Runs the configured station and saves a chart of the number of
customers in the system and in the queue over time, with the time-averaged
population as a reference line. The image format follows the file
extension (png, svg, pdf).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadSimConfig(cmd, v)
			if err != nil {
				return err
			}
			trace := newPopulationTrace(window)
			sim, err := simulator.NewSimulator(config, simulator.WithPopulationProbe(trace.observe))
			if err != nil {
				return err
			}
			results, err := sim.Run()
			if err != nil {
				return err
			}
			mean, err := results.MeanSystemPopulation()
			if err != nil {
				return err
			}

			p, err := populationPlot(config, trace, mean)
			if err != nil {
				return err
			}
			if err := p.Save(vg.Length(width)*vg.Inch, vg.Length(height)*vg.Inch, outFile); err != nil {
				return fmt.Errorf("save plot: %w", err)
			}
			logrus.WithFields(logrus.Fields{"file": outFile, "points": len(trace.system)}).Info("plot saved")
			fmt.Fprintf(cmd.OutOrStdout(), "Population plot written to %s\n", outFile)
			return nil
		},
	}
	addSimFlags(cmd)
	cmd.Flags().StringVarP(&outFile, "out", "o", "population.png", "output image")
	cmd.Flags().Float64Var(&window, "window", 0, "plot only the first N time units (0 = whole run)")
	cmd.Flags().Float64Var(&width, "width", 8, "image width in inches")
	cmd.Flags().Float64Var(&height, "height", 4, "image height in inches")
	return cmd
}

func populationPlot(config simulator.SimConfig, trace *populationTrace, mean float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s population", config.Model())
	p.X.Label.Text = "time"
	p.Y.Label.Text = "customers"
	p.Y.Min = 0

	system, err := plotter.NewLine(trace.system)
	if err != nil {
		return nil, fmt.Errorf("system line: %w", err)
	}
	queue, err := plotter.NewLine(trace.queue)
	if err != nil {
		return nil, fmt.Errorf("queue line: %w", err)
	}
	queue.Color = color.RGBA{R: 200, G: 80, A: 255}
	queue.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}

	avg := plotter.NewFunction(func(float64) float64 { return mean })
	avg.Width = vg.Points(1.5)
	avg.Color = color.RGBA{B: 200, A: 255}

	p.Add(system, queue, avg)
	p.Legend.Add("in system", system)
	p.Legend.Add("in queue", queue)
	p.Legend.Add(fmt.Sprintf("mean in system (%.3f)", mean), avg)
	p.Legend.Top = true
	return p, nil
}
