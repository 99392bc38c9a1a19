// Package drift implements the charge-drift integrator (spec.md §4.E):
// steps a carrier through the precomputed field, using the Shockley-Ramo
// theorem to accumulate induced current on the point contact. Grounded
// directly on calc_signal.c's make_signal, kept as one function matching
// the original's single linear pass rather than split into smaller private
// helpers, since every step depends on state carried from the last.
package drift

import (
	"math"

	"gesim/pkg/errs"
	"gesim/pkg/geometry"
	"gesim/pkg/velocity"

	"gonum.org/v1/gonum/floats"
)

// diffusion coefficients, grounded on calc_signal.c's
// DIFFUSION_COEF_H/DIFFUSION_COEF_E (mm^2, scaled by step_time_calc and the
// reference-temperature ratio there; here diffusionCoef applies both, from
// Params.StepTime and Params.Temperature).
const (
	diffusionCoefHole     = 2.9e-4
	diffusionCoefElectron = 3.7e-4
)

// Reason is why make_signal's loop stopped.
type Reason int

const (
	ReasonCompleted Reason = iota
	ReasonLeftField
	ReasonLowField
	ReasonTailDrift
)

func (r Reason) String() string {
	switch r {
	case ReasonLeftField:
		return "LEFT_FIELD"
	case ReasonLowField:
		return "LOW_FIELD"
	case ReasonTailDrift:
		return "TAIL_DRIFT"
	default:
		return "COMPLETED"
	}
}

// FieldSource is the subset of pkg/field.Store (or pkg/solver.Result) that
// the drift integrator needs: bilinearly interpolated field and weighting
// potential at a cylindrical point.
type FieldSource interface {
	EfieldAt(r, z float64) (er, ez float64, err error)
	WpotentialAt(r, z float64) (float64, error)
}

// Params bundles the run-time configuration for one make_signal call.
type Params struct {
	Field    FieldSource
	Velocity *velocity.Table
	Crystal  geometry.Crystal

	NCalc    int     // time_steps_calc
	StepTime float64 // step_time_calc, ns

	UseDiffusion    bool
	ChargeCloudSize float64 // mm, initial cloud size
	Temperature     float64 // K

	// Collecting identifies which carrier type the detector electronics
	// treats as "collecting" (holes for p-type material, electrons for
	// n-type); it controls the t==1 initial_vel/cloud-size latch.
	Collecting velocity.Carrier
}

// Result is one carrier's trace plus its raw induced-current samples.
type Result struct {
	Signal []float64 // length NCalc, raw induced current
	Trace  [][3]float64

	InitialVel       float64
	FinalCloudSizeSq float64
	StepsRun         int
	Reason           Reason
}

// chargeSign returns the Shockley-Ramo charge sign for a carrier: holes are
// +1, electrons are -1.
func chargeSign(c velocity.Carrier) float64 {
	if c == velocity.Hole {
		return 1
	}
	return -1
}

// TrapCharge is a hook point for carrier trapping/recombination along the
// drift path. It is a no-op: this detector model carries no trapping or
// recombination physics, but a future lifetime-map feature would apply its
// loss here without touching MakeSignal's loop. Never called.
func TrapCharge(q float64, pos [3]float64, stepTime float64) float64 {
	return q
}

// MakeSignal steps one carrier from start through the field, accumulating
// the Ramo-induced current into Signal, per spec.md §4.E.
func MakeSignal(start [3]float64, carrier velocity.Carrier, p Params) (*Result, error) {
	q := chargeSign(carrier)
	res := &Result{Signal: make([]float64, p.NCalc)}

	pos := start
	r0 := math.Hypot(pos[0], pos[1])
	if !p.Crystal.Inside(r0, pos[2]) {
		return nil, errs.New(errs.OutsideDetector, "starting point lies outside the active volume")
	}

	wPrev, err := p.Field.WpotentialAt(r0, pos[2])
	if err != nil {
		return nil, errs.Wrap(errs.OutOfField, "initial weighting potential", err)
	}

	isCollecting := carrier == p.Collecting
	prevVmag := 0.0
	lastVel := [3]float64{}

	t := 0
	for ; t < p.NCalc; t++ {
		r := math.Hypot(pos[0], pos[1])
		if !p.Crystal.Inside(r, pos[2]) {
			res.Reason = ReasonLeftField
			break
		}

		er, ez, err := p.Field.EfieldAt(r, pos[2])
		if err != nil {
			res.Reason = ReasonLeftField
			break
		}
		phi := math.Atan2(pos[1], pos[0])
		field3 := [3]float64{er * math.Cos(phi), er * math.Sin(phi), ez}

		v, err := p.Velocity.Query(carrier, field3)
		if err != nil {
			res.Reason = ReasonLeftField
			break
		}
		vmag := floats.Norm(v[:], 2)
		lastVel = v

		res.Trace = append(res.Trace, pos)

		if t == 1 && isCollecting {
			res.InitialVel = vmag
			res.FinalCloudSizeSq = p.ChargeCloudSize * p.ChargeCloudSize
		}
		if t > 1 && p.UseDiffusion && prevVmag > 0 {
			ratio := vmag / prevVmag
			d := diffusionCoef(carrier, p.StepTime, p.Temperature)
			res.FinalCloudSizeSq = res.FinalCloudSizeSq*ratio*ratio + d
		}

		wHere, werr := p.Field.WpotentialAt(r, pos[2])
		highW := werr == nil && wHere > 0.99
		if t == p.NCalc-2 && (isCollecting || highW) {
			res.Reason = ReasonLowField
			break
		}

		next := [3]float64{
			pos[0] + v[0]*p.StepTime,
			pos[1] + v[1]*p.StepTime,
			pos[2] + v[2]*p.StepTime,
		}
		rNext := math.Hypot(next[0], next[1])
		w, err := p.Field.WpotentialAt(rNext, next[2])
		if err != nil {
			w = wPrev
		}
		res.Signal[t] += q * (w - wPrev)

		if w >= 0.999 && (w-wPrev) < 2e-4 {
			res.Reason = ReasonLowField
			pos = next
			t++
			break
		}

		wPrev = w
		pos = next
		prevVmag = vmag
	}
	res.StepsRun = t

	if t == 0 && res.Reason == ReasonLeftField {
		return res, errs.New(errs.OutsideDetector, "left the field on the first step")
	}

	if res.Reason == ReasonLeftField && t > 0 {
		res = tailDrift(res, pos, lastVel, wPrev, q, t, p)
	}

	if carrier == velocity.Hole && res.Reason == ReasonLeftField && isCollecting && t >= p.NCalc-1 {
		return res, errs.New(errs.Truncated, "hole signal ran out of steps in a high-field region")
	}

	return res, nil
}

// tailDrift implements step 3 of make_signal: once a carrier has left the
// field without a LOW_FIELD stop, continue in a straight line along the
// last velocity direction, smearing the remaining weighting-potential
// change linearly toward the nearest electrode over the remaining steps.
func tailDrift(res *Result, pos, lastVel [3]float64, wPrev, q float64, t int, p Params) *Result {
	remaining := p.NCalc - t
	if remaining <= 0 {
		return res
	}
	target := 0.0
	if wPrev > 0.3 {
		target = 1.0
	}
	dw := (target - wPrev) / float64(remaining)

	for i := 0; i < remaining && t+i < p.NCalc; i++ {
		pos = [3]float64{
			pos[0] + lastVel[0]*p.StepTime,
			pos[1] + lastVel[1]*p.StepTime,
			pos[2] + lastVel[2]*p.StepTime,
		}
		res.Trace = append(res.Trace, pos)
		res.Signal[t+i] += q * dw

		r := math.Hypot(pos[0], pos[1])
		if !p.Crystal.Inside(r, pos[2]) {
			res.Reason = ReasonTailDrift
			res.StepsRun = t + i + 1
			return res
		}
	}
	res.Reason = ReasonTailDrift
	res.StepsRun = p.NCalc
	return res
}

func diffusionCoef(carrier velocity.Carrier, stepTime, tempK float64) float64 {
	base := diffusionCoefElectron
	if carrier == velocity.Hole {
		base = diffusionCoefHole
	}
	return base * stepTime * 77.0 / tempK
}
