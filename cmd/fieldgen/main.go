// Command fieldgen runs the multi-grid relaxation solver over a detector
// configuration file and writes the bias-field and weighting-potential
// ASCII tables plus an undepleted-region map (spec.md §6).
package main

import (
	"fmt"
	"os"

	"gesim/pkg/config"
	"gesim/pkg/errs"
	"gesim/pkg/solver"
	"gesim/pkg/util"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath = flag.StringP("config", "c", "", "detector configuration file")
		biasVolts  = flag.Float64P("bias", "b", 0, "override bias voltage from the config file")
		writeField = flag.IntP("write", "w", -1, "field write-out option, 0/1/2; overrides write_field in the config")
		writeWP    = flag.IntP("wp", "p", -1, "weighting-potential write-out option, 0/1; overrides write_WP in the config")
	)
	flag.Parse()

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "fieldgen: -c <config> is required")
		return 1
	}

	cfg, err := config.Load(*configPath, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fieldgen: %v\n", err)
		return 1
	}
	switch cfg.Verbosity {
	case 1:
		log.SetLevel(logrus.InfoLevel)
	case 2:
		log.SetLevel(logrus.DebugLevel)
	}

	if *writeField >= 0 {
		cfg.WriteField = *writeField
	}
	if *writeWP >= 0 {
		cfg.WriteWP = *writeWP
	}

	bias := cfg.XtalHV
	if *biasVolts != 0 {
		bias = *biasVolts
	}
	log.Infof("solving %s bias over a %s grid step", util.FormatVoltage(bias), util.FormatLength(cfg.XtalGrid))

	params := solver.Params{
		Crystal: crystalFromConfig(cfg),
		Imp:     solver.Impurity{N0: cfg.ImpurityZ0, M: cfg.ImpurityGradient},

		BiasVolts:      bias,
		GridStep:       cfg.XtalGrid,
		MaxIterations:  cfg.MaxIterations,
		DitchDepth:     cfg.DitchDepth,
		DitchThickness: cfg.DitchThickness,
	}

	res, err := solver.Solve(params, log)
	if err != nil && !errs.Is(err, errs.NotConverged) {
		fmt.Fprintf(os.Stderr, "fieldgen: solve failed: %v\n", err)
		return 1
	}
	if err != nil {
		log.Warnf("solve: %v", err)
	}

	log.Infof("ran %d Poisson + %d Laplace iterations (converged=%v)", res.NPoissonIters, res.NLaplaceIters, res.Converged)
	log.Infof("capacitance: esum=%.4g pF, esum2=%.4g pF", res.Capacitance, res.CapacitanceAlt)

	if cfg.WriteField != 0 {
		if err := res.WriteField(cfg.FieldName); err != nil {
			fmt.Fprintf(os.Stderr, "fieldgen: %v\n", err)
			return 1
		}
	}
	if cfg.WriteWP != 0 {
		if err := res.WriteWeightingPotential(cfg.WPName); err != nil {
			fmt.Fprintf(os.Stderr, "fieldgen: %v\n", err)
			return 1
		}
	}
	if err := res.WriteUndepletedMap("undepleted.txt"); err != nil {
		fmt.Fprintf(os.Stderr, "fieldgen: %v\n", err)
		return 1
	}

	return 0
}
