package solver

import (
	"math"

	"gesim/internal/consts"
	"gesim/pkg/geometry"

	"gonum.org/v1/gonum/mat"
)

// Grid is one (r,z) mesh level: a dense potential array plus the per-pixel
// classification tables the kernel needs. Indexing is V.At(iz, ir);
// physical coordinates are r = ir*Step, z = iz*Step.
type Grid struct {
	Step float64
	Nr   int
	Nz   int

	V *mat.Dense

	tag   [][]Tag
	fixed [][]float64 // Dirichlet value, valid where tag==Fixed
	vfrac [][]float64 // charge-carrying volume fraction, 1.0 for whole pixels
	delta [][]float64 // sub-pixel offset for EdgeR/EdgeZ pixels

	ditchDepth     float64
	ditchThickness float64
	wrapRadius     float64
}

func newGrid(step float64, nr, nz int, ditchDepth, ditchThickness, wrapRadius float64) *Grid {
	g := &Grid{
		Step: step, Nr: nr, Nz: nz,
		V:              mat.NewDense(nz+1, nr+1, nil),
		ditchDepth:     ditchDepth,
		ditchThickness: ditchThickness,
		wrapRadius:     wrapRadius,
	}
	g.tag = make([][]Tag, nz+1)
	g.fixed = make([][]float64, nz+1)
	g.vfrac = make([][]float64, nz+1)
	g.delta = make([][]float64, nz+1)
	for iz := range g.tag {
		g.tag[iz] = make([]Tag, nr+1)
		g.fixed[iz] = make([]float64, nr+1)
		g.vfrac[iz] = make([]float64, nr+1)
		g.delta[iz] = make([]float64, nr+1)
		for ir := range g.vfrac[iz] {
			g.vfrac[iz][ir] = 1.0
		}
	}
	return g
}

// classify builds the tag/fixed/vfrac/delta tables for one physics pass.
// weighting selects between the bias-potential electrode values (BV / 0)
// and the weighting-potential ones (0 / 1).
func (g *Grid) classify(p Params, weighting bool) {
	c := p.Crystal
	pcR := c.PCRadius / g.Step
	pcZ := c.PCLength / g.Step

	for iz := 0; iz <= g.Nz; iz++ {
		z := float64(iz) * g.Step
		for ir := 0; ir <= g.Nr; ir++ {
			r := float64(ir) * g.Step

			g.vfrac[iz][ir] = 1.0
			g.delta[iz][ir] = 0

			switch {
			case onOuterElectrode(c, r, z, g.Step):
				g.tag[iz][ir] = Fixed
				if weighting {
					g.fixed[iz][ir] = 0
				} else {
					g.fixed[iz][ir] = p.BiasVolts
				}

			case r <= c.PCRadius && z <= c.PCLength:
				g.tag[iz][ir] = Fixed
				if weighting {
					g.fixed[iz][ir] = 1
				} else {
					g.fixed[iz][ir] = 0
				}

			case ir > 0 && float64(ir-1) < pcR && float64(ir) >= pcR && z <= c.PCLength:
				g.tag[iz][ir] = EdgeR
				g.delta[iz][ir] = pcR - float64(ir-1) - 1
				g.vfrac[iz][ir] = math.Abs(2 * g.delta[iz][ir])

			case iz > 0 && float64(iz-1) < pcZ && float64(iz) >= pcZ && r <= c.PCRadius:
				g.tag[iz][ir] = EdgeZ
				g.delta[iz][ir] = pcZ - float64(iz-1) - 1
				g.vfrac[iz][ir] = math.Abs(2 * g.delta[iz][ir])

			default:
				g.tag[iz][ir] = Bulk
			}
		}
	}
}

// onOuterElectrode reports whether (r,z) sits on the grounded/biased can:
// the top face, the outer radius, the bottom 45-degree taper surface, or
// the wrap-around ring at z=0.
func onOuterElectrode(c geometry.Crystal, r, z, step float64) bool {
	if z >= c.Length-step/2 {
		return true
	}
	if r >= c.Radius-step/2 {
		return true
	}
	if c.TaperLength > 0 && z < c.TaperLength && r >= c.Length-c.TaperLength+z-step/2 {
		return true
	}
	if c.WrapAroundRadius > 0 && z < step/2 && r >= c.WrapAroundRadius {
		return true
	}
	return false
}

// faceEpsilon returns the relative permittivity at the midpoint of (r,z),
// 1.0 inside the vacuum ditch carved for a wrap-around BEGe contact and
// consts.GePermittivity everywhere else in the bulk.
func (g *Grid) faceEpsilon(r, z float64) float64 {
	if g.wrapRadius > 0 && g.ditchDepth > 0 &&
		z < g.ditchDepth && r <= g.wrapRadius && r > g.wrapRadius-g.ditchThickness {
		return consts.VacuumPermittivity
	}
	return consts.GePermittivity
}

// rWeights returns the cylindrical geometric weights for the r+1 and r-1
// neighbors of pixel ir; at r=0 the two fold together by reflection
// symmetry (spec.md §4.D).
func rWeights(ir int) (wPlus, wMinus float64) {
	if ir == 0 {
		return 2.0, 0.0
	}
	r := float64(ir)
	return 1 + 0.5/r, 1 - 0.5/r
}

// sweep performs one Jacobi-style relaxation pass over every non-Fixed
// pixel, writing into next (double-buffered per spec.md §4.D) and
// returning the max-abs change. chi is 1 for the Poisson (bias) pass and 0
// for the Laplace (weighting) pass. poisson additionally enables
// space-charge clamping and bubble/pinch-off detection.
func (g *Grid) sweep(next *mat.Dense, imp Impurity, chi float64, poisson bool, bubble *bubbleState, undepleted [][]bool) float64 {
	h := g.Step
	kappa := consts.SpaceChargeFactor * 4 * h * h

	var pinchedSum, pinchedWeight float64

	for iz := 0; iz <= g.Nz; iz++ {
		z := float64(iz) * h
		for ir := 0; ir <= g.Nr; ir++ {
			switch g.tag[iz][ir] {
			case Fixed:
				next.Set(iz, ir, g.fixed[iz][ir])
				continue
			case Pinched:
				// resolved in the second pass below; hold the old value for now.
				next.Set(iz, ir, g.V.At(iz, ir))
				continue
			}

			sumW, sumWV := 0.0, 0.0
			wRp, wRm := rWeights(ir)

			type nb struct {
				jz, jr int
				w      float64
			}
			neighbors := []nb{
				{iz, ir + 1, wRp},
				{iz, ir - 1, wRm},
				{iz + 1, ir, 1.0},
				{iz - 1, ir, 1.0},
			}
			if iz == 0 {
				neighbors[3] = nb{iz + 1, ir, 2.0}
				neighbors = neighbors[:3]
			}

			// For an edge pixel, only the single neighbor on the contact
			// side of the sub-pixel boundary (the direction delta was
			// measured in) gets the f(delta) weight; the opposite
			// neighbor keeps its normal geometric weight (mjd_fieldgen.c
			// bulk==1/bulk==2 branches).
			edgeNeighborR, edgeNeighborZ := ir-1, iz-1
			if g.tag[iz][ir] == EdgeR && g.delta[iz][ir] > 0 {
				edgeNeighborR = ir + 1
			}
			if g.tag[iz][ir] == EdgeZ && g.delta[iz][ir] > 0 {
				edgeNeighborZ = iz + 1
			}

			for _, n := range neighbors {
				if n.jr < 0 || n.jr > g.Nr || n.jz < 0 || n.jz > g.Nz {
					continue
				}
				eps := g.faceEpsilon((float64(ir)+float64(n.jr-ir)/2)*h, (float64(iz)+float64(n.jz-iz)/2)*h)
				w := n.w * eps

				if g.tag[iz][ir] == EdgeR && n.jr == edgeNeighborR {
					w = edgeWeight(g.delta[iz][ir]) * eps
				}
				if g.tag[iz][ir] == EdgeZ && n.jz == edgeNeighborZ {
					w = edgeWeight(g.delta[iz][ir]) * eps
				}

				nv := g.V.At(n.jz, n.jr)
				sumWV += nv * w
				sumW += w
			}

			vnew := 0.0
			if sumW > 0 {
				vnew = sumWV / sumW
			}
			vnew += chi * g.vfrac[iz][ir] * (imp.N0 + imp.M*z) * kappa

			if poisson {
				vnew = bubble.clamp(g, iz, ir, vnew, undepleted)
			}

			next.Set(iz, ir, vnew)

			if !poisson && g.tag[iz][ir] == Bulk {
				// contribute this pixel's previous-sweep value to any
				// PINCHED neighbor's shared average, weighted the same way
				// the kernel weights that neighbor direction (eps times
				// the cylindrical geometric factor), keeping the update a
				// pure function of the old buffer.
				vold := g.V.At(iz, ir)
				for _, n := range neighbors {
					if n.jr < 0 || n.jr > g.Nr || n.jz < 0 || n.jz > g.Nz {
						continue
					}
					if g.tag[n.jz][n.jr] == Pinched {
						eps := g.faceEpsilon((float64(ir)+float64(n.jr-ir)/2)*h, (float64(iz)+float64(n.jz-iz)/2)*h)
						w := n.w * eps
						pinchedSum += vold * w
						pinchedWeight += w
					}
				}
			}
		}
	}

	maxDiff := 0.0
	if !poisson && pinchedWeight > 0 {
		avg := pinchedSum / pinchedWeight
		for iz := 0; iz <= g.Nz; iz++ {
			for ir := 0; ir <= g.Nr; ir++ {
				if g.tag[iz][ir] == Pinched {
					next.Set(iz, ir, avg)
				}
			}
		}
	}

	for iz := 0; iz <= g.Nz; iz++ {
		for ir := 0; ir <= g.Nr; ir++ {
			d := math.Abs(next.At(iz, ir) - g.V.At(iz, ir))
			if d > maxDiff {
				maxDiff = d
			}
		}
	}
	return maxDiff
}

// edgeWeight implements the f = 1/(1-delta) / f = -1/delta sub-pixel
// boundary weight from spec.md §4.D.
func edgeWeight(delta float64) float64 {
	if delta > 0 {
		return 1 / (1 - delta)
	}
	if delta < 0 {
		return -1 / delta
	}
	return 1
}

// bubbleState remembers the first pinch-off bubble value found during a
// Poisson pass so every subsequent bubble in the same solve snaps to it
// (spec.md §4.D).
type bubbleState struct {
	volts float64
	set   bool
}

// clamp applies the space-charge clamping / bubble-detection rule to one
// freshly computed value and records which pixels went undepleted.
func (b *bubbleState) clamp(g *Grid, iz, ir int, vnew float64, undepleted [][]bool) float64 {
	if vnew < 0 {
		undepleted[iz][ir] = true
		return 0
	}
	neighborMin := math.Inf(1)
	for _, d := range [][2]int{{0, 1}, {0, -1}, {1, 0}, {-1, 0}} {
		jz, jr := iz+d[0], ir+d[1]
		if jr < 0 || jr > g.Nr || jz < 0 || jz > g.Nz {
			continue
		}
		v := g.V.At(jz, jr)
		if v < neighborMin {
			neighborMin = v
		}
	}
	if vnew < neighborMin {
		if !b.set {
			b.volts = neighborMin + 0.1
			b.set = true
		}
		undepleted[iz][ir] = true
		return b.volts
	}
	return vnew
}

// prolongate fills a fine grid (ratio x finer) by bilinear interpolation of
// this (coarser) grid's values, per spec.md §4.D step 1.
func (g *Grid) prolongate(fine *Grid, ratio int) {
	for iz := 0; iz <= fine.Nz; iz++ {
		cz := float64(iz) / float64(ratio)
		iZ := int(math.Floor(cz))
		if iZ >= g.Nz {
			iZ = g.Nz - 1
		}
		dz := cz - float64(iZ)
		for ir := 0; ir <= fine.Nr; ir++ {
			cr := float64(ir) / float64(ratio)
			iR := int(math.Floor(cr))
			if iR >= g.Nr {
				iR = g.Nr - 1
			}
			dr := cr - float64(iR)

			v00 := g.V.At(iZ, iR)
			v01 := g.V.At(iZ, iR+1)
			v10 := g.V.At(iZ+1, iR)
			v11 := g.V.At(iZ+1, iR+1)
			v0 := v00*(1-dr) + v01*dr
			v1 := v10*(1-dr) + v11*dr
			fine.V.Set(iz, ir, v0*(1-dz)+v1*dz)
		}
	}
}
