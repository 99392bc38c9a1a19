package solver

import (
	"bufio"
	"fmt"
	"math"
	"os"

	"gesim/pkg/errs"
)

// WriteField writes the six-column ASCII field file from spec.md §6:
// r(mm) z(mm) V(V) |E|(V/cm) E_r(V/cm) E_z(V/cm), outer loop over r.
func (res *Result) WriteField(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errs.Wrap(errs.IoError, "creating field file "+path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	defer w.Flush()

	fmt.Fprintln(w, "## r (mm), z (mm), V (V), E (V/cm), E_r (V/cm), E_z (V/cm)")
	g := res.bias
	h := g.Step
	for ir := 0; ir <= g.Nr; ir++ {
		r := float64(ir) * h
		for iz := 0; iz <= g.Nz; iz++ {
			z := float64(iz) * h
			er, ez := gridGradient(g, ir, iz)
			emag := math.Hypot(er, ez)
			fmt.Fprintf(w, "%g %g %g %g %g %g\n", r, z, g.V.At(iz, ir), emag, er, ez)
		}
		fmt.Fprintln(w)
	}
	return nil
}

// WriteWeightingPotential writes the three-column WP file from spec.md §6.
func (res *Result) WriteWeightingPotential(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errs.Wrap(errs.IoError, "creating weighting-potential file "+path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	defer w.Flush()

	fmt.Fprintln(w, "## r (mm), z (mm), WP")
	g := res.wp
	h := g.Step
	for ir := 0; ir <= g.Nr; ir++ {
		r := float64(ir) * h
		for iz := 0; iz <= g.Nz; iz++ {
			z := float64(iz) * h
			fmt.Fprintf(w, "%g %g %g\n", r, z, g.V.At(iz, ir))
		}
		fmt.Fprintln(w)
	}
	return nil
}

// WriteUndepletedMap writes the character map from spec.md §6:
// ' ' depleted, '.' bulk, '*' undepleted, 'B' pinch-off bubble.
func (res *Result) WriteUndepletedMap(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errs.Wrap(errs.IoError, "creating undepleted map "+path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	defer w.Flush()

	g := res.bias
	for iz := 0; iz <= g.Nz; iz++ {
		for ir := 0; ir <= g.Nr; ir++ {
			switch {
			case g.tag[iz][ir] == Pinched:
				w.WriteByte('B')
			case res.undepleted[iz][ir]:
				w.WriteByte('*')
			case g.tag[iz][ir] == Fixed:
				w.WriteByte(' ')
			default:
				w.WriteByte('.')
			}
		}
		w.WriteByte('\n')
	}
	return nil
}

// AxisProfile returns (z, V, E_z) sampled along r=0, for diagnostic use by
// callers; the core stays I/O-free so this is returned rather than printed.
func (res *Result) AxisProfile() (z, v, ez []float64) {
	g := res.bias
	for iz := 0; iz <= g.Nz; iz++ {
		_, eZ := gridGradient(g, 0, iz)
		z = append(z, float64(iz)*g.Step)
		v = append(v, g.V.At(iz, 0))
		ez = append(ez, eZ)
	}
	return z, v, ez
}

// gridGradient returns (E_r, E_z) in V/cm at pixel (ir,iz) by centered
// finite differences (mm spacing converted to cm).
func gridGradient(g *Grid, ir, iz int) (er, ez float64) {
	h := g.Step / 10.0 // mm -> cm
	rp, rm := ir+1, ir-1
	if rp > g.Nr {
		rp = g.Nr
	}
	if rm < 0 {
		rm = 0
	}
	zp, zm := iz+1, iz-1
	if zp > g.Nz {
		zp = g.Nz
	}
	if zm < 0 {
		zm = 0
	}
	dr := float64(rp-rm) * h
	dz := float64(zp-zm) * h
	if dr > 0 {
		er = -(g.V.At(iz, rp) - g.V.At(iz, rm)) / dr
	}
	if dz > 0 {
		ez = -(g.V.At(zp, ir) - g.V.At(zm, ir)) / dz
	}
	if ir == 0 {
		er = 0
	}
	return er, ez
}
