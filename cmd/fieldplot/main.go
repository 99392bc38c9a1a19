// Command fieldplot is a diagnostic tool: it solves a detector
// configuration and renders the r=0 axial potential profile plus one
// sample drift trajectory to a PNG, using gonum.org/v1/plot.
package main

import (
	"fmt"
	"os"

	"gesim/pkg/config"
	"gesim/pkg/drift"
	"gesim/pkg/errs"
	"gesim/pkg/solver"
	"gesim/pkg/velocity"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath = flag.StringP("config", "c", "", "detector configuration file")
		outPath    = flag.StringP("out", "o", "fieldplot.png", "output PNG path")
	)
	flag.Parse()

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "fieldplot: -c <config> is required")
		return 1
	}

	cfg, err := config.Load(*configPath, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fieldplot: %v\n", err)
		return 1
	}

	params := solver.Params{
		Crystal: geometryFromConfig(cfg),
		Imp:     solver.Impurity{N0: cfg.ImpurityZ0, M: cfg.ImpurityGradient},

		BiasVolts:      cfg.XtalHV,
		GridStep:       cfg.XtalGrid,
		MaxIterations:  cfg.MaxIterations,
		DitchDepth:     cfg.DitchDepth,
		DitchThickness: cfg.DitchThickness,
	}

	res, err := solver.Solve(params, log)
	if err != nil && !errs.Is(err, errs.NotConverged) {
		fmt.Fprintf(os.Stderr, "fieldplot: solve failed: %v\n", err)
		return 1
	}
	if err != nil {
		log.Warnf("solve: %v", err)
	}

	z, v, _ := res.AxisProfile()
	potentialPts := make(plotter.XYs, len(z))
	for i := range z {
		potentialPts[i].X = z[i]
		potentialPts[i].Y = v[i]
	}

	p := plot.New()
	p.Title.Text = "Axial potential profile (r=0)"
	p.X.Label.Text = "z (mm)"
	p.Y.Label.Text = "V (V)"

	line, err := plotter.NewLine(potentialPts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fieldplot: %v\n", err)
		return 1
	}
	p.Add(line)

	if tab, terr := velocity.Load(cfg.DriftName); terr == nil {
		tab.Prepare()
		if terr := tab.Correct(cfg.XtalTemp); terr == nil {
			addTrajectory(p, res, tab, cfg)
		}
	}

	if err := p.Save(6*vg.Inch, 4*vg.Inch, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "fieldplot: %v\n", err)
		return 1
	}
	return 0
}

// addTrajectory overlays one sample hole trajectory starting at one third
// of the radius and half the length, purely as a diagnostic; failures are silently skipped since this
// is supplemental output, not the tool's primary contract.
func addTrajectory(p *plot.Plot, res *solver.Result, tab *velocity.Table, cfg *config.Config) {
	dp := drift.Params{
		Field:           res,
		Velocity:        tab,
		Crystal:         geometryFromConfig(cfg),
		NCalc:           cfg.TimeStepsCalc,
		StepTime:        cfg.StepTimeCalc,
		UseDiffusion:    cfg.UseDiffusion,
		ChargeCloudSize: cfg.ChargeCloudSize,
		Temperature:     cfg.XtalTemp,
		Collecting:      velocity.Hole,
	}
	start := [3]float64{cfg.XtalRadius / 3, 0, cfg.XtalLength / 2}
	dr, err := drift.MakeSignal(start, velocity.Hole, dp)
	if err != nil || len(dr.Trace) == 0 {
		return
	}
	pts := make(plotter.XYs, len(dr.Trace))
	for i, pt := range dr.Trace {
		pts[i].X = pt[2]
		pts[i].Y = pt[0]
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return
	}
	p.Add(line)
}
