package solver

import (
	"math"

	"gesim/pkg/errs"
	"gesim/pkg/geometry"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

const (
	poissonTol = 1e-9
	laplaceTol = 1e-10
)

// Solve runs the full multi-grid schedule: the Poisson (bias) pass followed
// by pinch-off reclassification and the Laplace (weighting) pass, per
// spec.md §4.D.
func Solve(p Params, log *logrus.Logger) (*Result, error) {
	if log == nil {
		log = logrus.New()
		log.SetLevel(logrus.WarnLevel)
	}
	if !p.Crystal.Valid() {
		return nil, errs.New(errs.ConfigError, "invalid crystal geometry")
	}

	imp := p.Imp
	bv := p.BiasVolts
	if (bv < 0 && imp.N0 < 0) || (bv > 0 && imp.N0 > 0) {
		return nil, errs.New(errs.ConfigError, "bias and impurity_z0 must have opposite signs")
	}
	// Internally work with non-negative potentials; n-type crystals (N0>0)
	// have bias and impurity flipped here and flipped back on output.
	flip := imp.N0 > 0
	if flip {
		bv = -bv
		imp.N0 = -imp.N0
		imp.M = -imp.M
	}
	pp := p
	pp.BiasVolts = bv
	pp.Imp = imp

	steps := gridSchedule(p.Crystal, p.GridStep)
	maxIter := p.MaxIterations
	if maxIter <= 0 {
		maxIter = 10000
	}

	var bias *Grid
	var undepleted [][]bool
	var poissonIters int
	converged := true

	for level, h := range steps {
		nr := int(math.Round(p.Crystal.Radius / h))
		nz := int(math.Round(p.Crystal.Length / h))
		g := newGrid(h, nr, nz, p.DitchDepth, p.DitchThickness, p.Crystal.WrapAroundRadius)
		g.classify(pp, false)

		if level == 0 {
			initialGuess(g, bv, p.Crystal)
		} else {
			bias.prolongate(g, int(math.Round(steps[level-1]/h)))
		}

		iterCap := maxIter
		if level > 0 {
			iterCap = maxIter / 2
		}

		undepleted = make([][]bool, nz+1)
		for i := range undepleted {
			undepleted[i] = make([]bool, nr+1)
		}

		bubble := &bubbleState{}
		next := mat.NewDense(nz+1, nr+1, nil)
		iters := 0
		levelConverged := false
		for ; iters < iterCap; iters++ {
			maxDiff := g.sweep(next, imp, 1.0, true, bubble, undepleted)
			g.V, next = next, g.V
			if maxDiff < poissonTol {
				iters++
				levelConverged = true
				break
			}
		}
		poissonIters += iters
		if !levelConverged {
			converged = false
		}
		log.Debugf("solver: level %d (h=%g mm) ran %d iterations, converged=%v", level, h, iters, levelConverged)

		bias = g
	}

	// reclassify pinch-off islands: undepleted pixels that finished above
	// zero form a floating bubble, isolated from the contact.
	for iz := 0; iz <= bias.Nz; iz++ {
		for ir := 0; ir <= bias.Nr; ir++ {
			if undepleted[iz][ir] && bias.V.At(iz, ir) > 0 {
				bias.tag[iz][ir] = Pinched
			}
		}
	}

	wp, laplaceIters, laplaceConverged := solveWeighting(pp, bias, steps, maxIter)
	converged = converged && laplaceConverged

	if flip {
		for iz := 0; iz <= bias.Nz; iz++ {
			for ir := 0; ir <= bias.Nr; ir++ {
				bias.V.Set(iz, ir, -bias.V.At(iz, ir))
			}
		}
	}

	res := &Result{
		Step: bias.Step, Nr: bias.Nr, Nz: bias.Nz,
		bias: bias, wp: wp,
		NPoissonIters: poissonIters, NLaplaceIters: laplaceIters,
		Converged:  converged,
		undepleted: undepleted,
	}
	res.Capacitance, res.CapacitanceAlt = capacitance(bias, wp, p.Imp, p.Crystal)
	if !converged {
		return res, errs.New(errs.NotConverged, "solver hit max_iterations with max-delta above tolerance")
	}
	return res, nil
}

// solveWeighting relaxes the Laplace equation for the weighting potential
// over the same coarse-to-fine multi-grid schedule as the bias pass
// (mjd_fieldgen.c runs the identical istep loop for both fields). Only the
// finest level inherits the PINCHED reclassification from the bias solve,
// since pinch-off is only ever detected at the bias pass's finest
// resolution.
func solveWeighting(p Params, bias *Grid, steps []float64, maxIter int) (*Grid, int, bool) {
	var g *Grid
	var laplaceIters int
	converged := true

	for level, h := range steps {
		nr := int(math.Round(p.Crystal.Radius / h))
		nz := int(math.Round(p.Crystal.Length / h))
		levelGrid := newGrid(h, nr, nz, p.DitchDepth, p.DitchThickness, p.Crystal.WrapAroundRadius)
		levelGrid.classify(p, true)

		if level > 0 {
			g.prolongate(levelGrid, int(math.Round(steps[level-1]/h)))
		}

		if level == len(steps)-1 {
			for iz := 0; iz <= levelGrid.Nz; iz++ {
				for ir := 0; ir <= levelGrid.Nr; ir++ {
					if bias.undepletedAt(iz, ir) {
						levelGrid.tag[iz][ir] = bias.tag[iz][ir]
					}
				}
			}
		}

		iterCap := maxIter
		if level > 0 {
			iterCap = maxIter / 2
		}

		next := mat.NewDense(levelGrid.Nz+1, levelGrid.Nr+1, nil)
		iters := 0
		levelConverged := false
		for ; iters < iterCap; iters++ {
			maxDiff := levelGrid.sweep(next, Impurity{}, 0.0, false, nil, nil)
			levelGrid.V, next = next, levelGrid.V
			if maxDiff < laplaceTol {
				iters++
				levelConverged = true
				break
			}
		}
		laplaceIters += iters
		if !levelConverged {
			converged = false
		}
		g = levelGrid
	}
	return g, laplaceIters, converged
}

func (g *Grid) undepletedAt(iz, ir int) bool { return g.tag[iz][ir] == Pinched }

// initialGuess seeds the coarsest grid level with the linear ramp from
// spec.md §4.D step 4: v(z,r) = BV*z/L*(1-r/R) + BV*r/R.
func initialGuess(g *Grid, bv float64, c geometry.Crystal) {
	for iz := 0; iz <= g.Nz; iz++ {
		z := float64(iz) * g.Step
		for ir := 0; ir <= g.Nr; ir++ {
			if g.tag[iz][ir] == Fixed {
				continue
			}
			r := float64(ir) * g.Step
			v := bv*(z/c.Length)*(1-r/c.Radius) + bv*(r/c.Radius)
			g.V.Set(iz, ir, v)
		}
	}
}

// gridSchedule chooses 1-3 grid step sizes (coarsest first), each double
// the next, so the coarsest level spans roughly 100 pixels across the
// larger crystal dimension (spec.md §4.D).
func gridSchedule(c geometry.Crystal, hFinal float64) []float64 {
	larger := math.Max(c.Length, c.Radius)
	steps := []float64{hFinal}
	for len(steps) < 3 {
		coarser := steps[0] * 2
		if larger/coarser < 100 {
			break
		}
		steps = append([]float64{coarser}, steps...)
	}
	return steps
}
