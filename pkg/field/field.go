// Package field holds the precomputed electric-field and weighting-potential
// grids written by the relaxation solver and serves bilinear-interpolated
// queries to the drift integrator (spec.md §4.C). Grid storage uses
// gonum.org/v1/gonum/mat.Dense, the same dense-matrix idiom the relaxation
// solver itself uses for its (r,z) potential arrays, grounded on
// mjd_fieldgen.c's field-file writer/reader pair.
package field

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gesim/pkg/errs"

	"gonum.org/v1/gonum/mat"
)

// Store holds one loaded (r,z) grid pair: the E-field components and the
// weighting potential, both at spacing Step over [0,Rmax]x[0,Zmax].
type Store struct {
	Step float64
	Nr   int
	Nz   int

	er *mat.Dense // V/cm
	ez *mat.Dense // V/cm

	wp *mat.Dense // dimensionless, in [0,1]
}

// LoadField reads the six-column ASCII field file from spec.md §6 into a
// Store's E_r/E_z grids.
func LoadField(path string) (*Store, error) {
	s := &Store{}
	err := loadGrid(path, 6, func(nr, nz int, step float64) {
		s.Nr, s.Nz, s.Step = nr, nz, step
		s.er = mat.NewDense(nz+1, nr+1, nil)
		s.ez = mat.NewDense(nz+1, nr+1, nil)
	}, func(iz, ir int, cols []float64) {
		// cols: r, z, V, |E|, E_r, E_z
		s.er.Set(iz, ir, cols[4])
		s.ez.Set(iz, ir, cols[5])
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// LoadWeightingPotential reads the three-column weighting-potential file
// into a Store's WP grid; typically called on the same Store LoadField
// populated, sharing the grid geometry.
func (s *Store) LoadWeightingPotential(path string) error {
	return loadGrid(path, 3, func(nr, nz int, step float64) {
		if s.wp == nil {
			s.Nr, s.Nz, s.Step = nr, nz, step
		}
		s.wp = mat.NewDense(nz+1, nr+1, nil)
	}, func(iz, ir int, cols []float64) {
		// cols: r, z, WP
		s.wp.Set(iz, ir, cols[2])
	})
}

func loadGrid(path string, ncols int, alloc func(nr, nz int, step float64), set func(iz, ir int, cols []float64)) error {
	f, err := os.Open(path)
	if err != nil {
		return errs.Wrap(errs.IoError, "opening grid file "+path, err)
	}
	defer f.Close()

	var rows [][]float64
	var rStep float64 = -1
	var zStep float64 = -1
	var lastR float64 = math.NaN()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < ncols {
			return errs.New(errs.IoError, fmt.Sprintf("%s:%d: expected %d columns, got %d", path, lineNo, ncols, len(fields)))
		}
		vals := make([]float64, ncols)
		for i := 0; i < ncols; i++ {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return errs.Wrap(errs.IoError, fmt.Sprintf("%s:%d", path, lineNo), err)
			}
			vals[i] = v
		}
		if !math.IsNaN(lastR) && vals[0] != lastR {
			if zStep < 0 && len(rows) > 1 {
				zStep = rows[len(rows)-1][1] - rows[len(rows)-2][1]
			}
			if rStep < 0 {
				rStep = vals[0] - lastR
			}
		}
		lastR = vals[0]
		rows = append(rows, vals)
	}
	if err := scanner.Err(); err != nil {
		return errs.Wrap(errs.IoError, "reading grid file "+path, err)
	}
	if len(rows) == 0 {
		return errs.New(errs.IoError, path+": empty grid file")
	}
	if zStep < 0 {
		for i := 1; i < len(rows); i++ {
			if rows[i][0] == rows[0][0] {
				zStep = rows[i][1] - rows[i-1][1]
				break
			}
		}
	}
	if zStep <= 0 {
		zStep = 1
	}
	if rStep <= 0 {
		rStep = zStep
	}
	step := zStep

	rmax, zmax := 0.0, 0.0
	for _, r := range rows {
		if r[0] > rmax {
			rmax = r[0]
		}
		if r[1] > zmax {
			zmax = r[1]
		}
	}
	nr := int(math.Round(rmax / step))
	nz := int(math.Round(zmax / step))

	alloc(nr, nz, step)

	for _, r := range rows {
		ir := int(math.Round(r[0] / step))
		iz := int(math.Round(r[1] / step))
		set(iz, ir, r)
	}
	return nil
}

// EfieldAt returns the bilinearly interpolated (E_r, E_z) at cylindrical
// point (r,z); fails with OutOfField outside the grid.
func (s *Store) EfieldAt(r, z float64) (er, ez float64, err error) {
	if s.er == nil {
		return 0, 0, errs.New(errs.OutOfField, "field grid not loaded")
	}
	er, err = s.interp(s.er, r, z)
	if err != nil {
		return 0, 0, err
	}
	ez, err = s.interp(s.ez, r, z)
	return er, ez, err
}

// WpotentialAt returns the bilinearly interpolated weighting potential at
// cylindrical point (r,z); fails with OutOfField outside the grid.
func (s *Store) WpotentialAt(r, z float64) (float64, error) {
	if s.wp == nil {
		return 0, errs.New(errs.OutOfField, "weighting-potential grid not loaded")
	}
	return s.interp(s.wp, r, z)
}

// EfieldAtCartesian folds (x,y,z) to cylindrical radius before delegating.
func (s *Store) EfieldAtCartesian(x, y, z float64) (er, ez float64, err error) {
	r := math.Hypot(x, y)
	return s.EfieldAt(r, z)
}

func (s *Store) interp(g *mat.Dense, r, z float64) (float64, error) {
	fr := r / s.Step
	fz := z / s.Step
	ir := int(math.Floor(fr))
	iz := int(math.Floor(fz))
	if ir < 0 || iz < 0 || ir >= s.Nr || iz >= s.Nz {
		return 0, errs.New(errs.OutOfField, fmt.Sprintf("(r=%g, z=%g) outside grid [0,%g]x[0,%g]", r, z, float64(s.Nr)*s.Step, float64(s.Nz)*s.Step))
	}
	dr := fr - float64(ir)
	dz := fz - float64(iz)

	v00 := g.At(iz, ir)
	v01 := g.At(iz, ir+1)
	v10 := g.At(iz+1, ir)
	v11 := g.At(iz+1, ir+1)

	v0 := v00*(1-dr) + v01*dr
	v1 := v10*(1-dr) + v11*dr
	return v0*(1-dz) + v1*dz, nil
}
