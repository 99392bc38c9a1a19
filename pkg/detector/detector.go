// Package detector is the top-level orchestrator (spec.md §2, §5): it owns
// one Setup's field tables, drift buffers, and signal scratches, and
// exposes Simulate as the single per-event entry point. Grounded on the
// teacher's pkg/circuit.Circuit, which likewise owns the devices/matrix and
// exposes one Stamp/Solve-style entry point per analysis step.
package detector

import (
	"math"

	"gesim/pkg/config"
	"gesim/pkg/drift"
	"gesim/pkg/errs"
	"gesim/pkg/field"
	"gesim/pkg/geometry"
	"gesim/pkg/signal"
	"gesim/pkg/solver"
	"gesim/pkg/util"
	"gesim/pkg/velocity"

	"github.com/sirupsen/logrus"
)

// Setup owns everything one simulation run needs: the crystal geometry,
// the loaded velocity table, the field/weighting-potential grids, and the
// signal-stage scratch buffers. Two events may run concurrently only with
// disjoint Setup instances (spec.md §5).
type Setup struct {
	Crystal geometry.Crystal
	Imp     solver.Impurity

	Field *field.Store
	Vel   *velocity.Table

	Collecting velocity.Carrier

	NCalc           int
	StepTimeCalc    float64
	StepTimeOut     float64
	NOut            int
	PreampTau       float64
	UseDiffusion    bool
	ChargeCloudSize float64
	Temperature     float64

	scratch signal.Scratch

	Log *logrus.Logger
}

// NewSetup builds a Setup from a parsed config file and a loaded velocity
// table; it does not itself run the field solver, and the field grids come
// only from pre-existing field/WP files loaded with LoadFieldFiles.
func NewSetup(cfg *config.Config, vel *velocity.Table, log *logrus.Logger) (*Setup, error) {
	if log == nil {
		log = logrus.New()
	}
	crystal := geometry.Crystal{
		Length:           cfg.XtalLength,
		Radius:           cfg.XtalRadius,
		TopBulletRadius:  cfg.TopBulletRadius,
		PCLength:         cfg.PCLength,
		PCRadius:         cfg.PCRadius,
		TaperLength:      cfg.TaperLength,
		WrapAroundRadius: cfg.WrapAroundRadius,
		DitchDepth:       cfg.DitchDepth,
		DitchThickness:   cfg.DitchThickness,
	}
	if !crystal.Valid() {
		return nil, errs.New(errs.ConfigError, "invalid crystal geometry in config")
	}

	imp := solver.Impurity{N0: cfg.ImpurityZ0, M: cfg.ImpurityGradient}
	collecting := velocity.Hole
	if imp.N0 > 0 {
		collecting = velocity.Electron
	}

	if err := vel.Correct(cfg.XtalTemp); err != nil {
		return nil, err
	}

	return &Setup{
		Crystal:         crystal,
		Imp:             imp,
		Vel:             vel,
		Collecting:      collecting,
		NCalc:           cfg.TimeStepsCalc,
		StepTimeCalc:    cfg.StepTimeCalc,
		StepTimeOut:     cfg.StepTimeOut,
		NOut:            computeNOut(cfg),
		PreampTau:       cfg.PreampTau,
		UseDiffusion:    cfg.UseDiffusion,
		ChargeCloudSize: cfg.ChargeCloudSize,
		Temperature:     cfg.XtalTemp,
		Log:             log,
	}, nil
}

func computeNOut(cfg *config.Config) int {
	if cfg.StepTimeOut <= 0 || cfg.TimeStepsCalc <= 0 {
		return cfg.TimeStepsCalc
	}
	return int(float64(cfg.TimeStepsCalc) * cfg.StepTimeCalc / cfg.StepTimeOut)
}

// LoadFieldFiles wires previously-solved field/WP ASCII files into this
// Setup (the normal production path: solve once offline, then replay many
// events against the loaded grids).
func (s *Setup) LoadFieldFiles(fieldPath, wpPath string) error {
	store, err := field.LoadField(fieldPath)
	if err != nil {
		return err
	}
	if err := store.LoadWeightingPotential(wpPath); err != nil {
		return err
	}
	s.Field = store
	return nil
}

// Simulate runs one event at the given Cartesian starting point, returning
// the fully processed waveform (spec.md §2's simulate(point) orchestrator).
func (s *Setup) Simulate(start [3]float64) (*signal.Result, error) {
	if s.Field == nil {
		return nil, errs.New(errs.ConfigError, "Setup has no loaded field; call LoadFieldFiles first")
	}

	if s.Log.IsLevelEnabled(logrus.DebugLevel) {
		r0 := math.Hypot(start[0], start[1])
		if er, ez, ferr := s.Field.EfieldAt(r0, start[2]); ferr == nil {
			s.Log.Debugf("detector: starting field strength %s", util.FormatFieldStrength(math.Hypot(er, ez)))
		}
	}

	dp := drift.Params{
		Field:           s.Field,
		Velocity:        s.Vel,
		Crystal:         s.Crystal,
		NCalc:           s.NCalc,
		StepTime:        s.StepTimeCalc,
		UseDiffusion:    s.UseDiffusion,
		ChargeCloudSize: s.ChargeCloudSize,
		Temperature:     s.Temperature,
		Collecting:      s.Collecting,
	}

	sp := signal.Params{
		Drift:       dp,
		NOut:        s.NOut,
		StepTimeOut: s.StepTimeOut,
		PreampTau:   s.PreampTau,
	}

	res, err := signal.GetSignal(start, &s.scratch, sp)
	if err != nil {
		if errs.Is(err, errs.OutOfField) || errs.Is(err, errs.OutsideDetector) {
			s.Log.Debugf("detector: event at %v skipped: %v", start, err)
		}
		return nil, err
	}
	return res, nil
}
