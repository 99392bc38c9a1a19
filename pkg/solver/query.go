package solver

import (
	"fmt"
	"math"

	"gesim/pkg/errs"
)

// EfieldAt bilinearly interpolates the bias field at (r,z), letting the
// orchestrator query a freshly computed Result without a disk round-trip
// through pkg/field.
func (res *Result) EfieldAt(r, z float64) (er, ez float64, err error) {
	return interpGradient(res.bias, r, z)
}

// WpotentialAt bilinearly interpolates the weighting potential at (r,z).
func (res *Result) WpotentialAt(r, z float64) (float64, error) {
	return interpScalar(res.wp, r, z)
}

func interpScalar(g *Grid, r, z float64) (float64, error) {
	fr := r / g.Step
	fz := z / g.Step
	ir := int(math.Floor(fr))
	iz := int(math.Floor(fz))
	if ir < 0 || iz < 0 || ir >= g.Nr || iz >= g.Nz {
		return 0, errs.New(errs.OutOfField, fmt.Sprintf("(r=%g,z=%g) outside solved grid", r, z))
	}
	dr := fr - float64(ir)
	dz := fz - float64(iz)
	v00, v01 := g.V.At(iz, ir), g.V.At(iz, ir+1)
	v10, v11 := g.V.At(iz+1, ir), g.V.At(iz+1, ir+1)
	v0 := v00*(1-dr) + v01*dr
	v1 := v10*(1-dr) + v11*dr
	return v0*(1-dz) + v1*dz, nil
}

func interpGradient(g *Grid, r, z float64) (er, ez float64, err error) {
	fr := r / g.Step
	fz := z / g.Step
	ir := int(math.Floor(fr))
	iz := int(math.Floor(fz))
	if ir < 0 || iz < 0 || ir >= g.Nr || iz >= g.Nz {
		return 0, 0, errs.New(errs.OutOfField, fmt.Sprintf("(r=%g,z=%g) outside solved grid", r, z))
	}
	er00, ez00 := gridGradient(g, ir, iz)
	er01, ez01 := gridGradient(g, ir+1, iz)
	er10, ez10 := gridGradient(g, ir, iz+1)
	er11, ez11 := gridGradient(g, ir+1, iz+1)
	dr := fr - float64(ir)
	dz := fz - float64(iz)
	er = (er00*(1-dr)+er01*dr)*(1-dz) + (er10*(1-dr)+er11*dr)*dz
	ez = (ez00*(1-dr)+ez01*dr)*(1-dz) + (ez10*(1-dr)+ez11*dr)*dz
	return er, ez, nil
}
