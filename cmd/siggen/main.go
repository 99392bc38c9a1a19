// Command siggen loads a solved field/weighting-potential pair and the
// drift-velocity table, then simulates one event's waveform at a given
// starting point, writing the output samples one per line.
package main

import (
	"fmt"
	"os"
	"strconv"

	"gesim/pkg/config"
	"gesim/pkg/detector"
	"gesim/pkg/util"
	"gesim/pkg/velocity"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath = flag.StringP("config", "c", "", "detector configuration file")
		driftPath  = flag.StringP("drift", "d", "", "drift-velocity table file (overrides drift_name)")
	)
	flag.Parse()

	log := logrus.New()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "siggen: -c <config> is required")
		return 1
	}
	if flag.NArg() != 3 {
		fmt.Fprintln(os.Stderr, "siggen: usage: siggen -c <config> <x> <y> <z>")
		return 1
	}

	cfg, err := config.Load(*configPath, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "siggen: %v\n", err)
		return 1
	}

	velPath := cfg.DriftName
	if *driftPath != "" {
		velPath = *driftPath
	}
	vel, err := velocity.Load(velPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "siggen: %v\n", err)
		return 1
	}
	vel.Prepare()

	setup, err := detector.NewSetup(cfg, vel, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "siggen: %v\n", err)
		return 1
	}
	if err := setup.LoadFieldFiles(cfg.FieldName, cfg.WPName); err != nil {
		fmt.Fprintf(os.Stderr, "siggen: %v\n", err)
		return 1
	}

	var start [3]float64
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(flag.Arg(i), 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "siggen: invalid coordinate %q: %v\n", flag.Arg(i), err)
			return 1
		}
		start[i] = v
	}
	log.Infof("simulating event at x=%s z=%s, preamp tau %s",
		util.FormatLength(start[0]), util.FormatLength(start[2]), util.FormatTime(cfg.PreampTau))

	res, err := setup.Simulate(start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "siggen: %v\n", err)
		return 1
	}

	for _, v := range res.Out {
		fmt.Println(v)
	}
	return 0
}
