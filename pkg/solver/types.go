// Package solver implements the multi-grid relaxation field solver
// (spec.md §4.D; two-buffer Jacobi sweeps, no over-relaxation factor) that computes the bias potential (Poisson, with
// space charge) and the weighting potential (Laplace) of a coaxial
// PPC/BEGe crystal on a cylindrically symmetric (r,z) mesh, grounded on
// mjd_fieldgen.c's relaxation loop and the teacher's package-per-concern
// layout (pkg/matrix split into circuit.go/device.go; here grid.go carries
// the mesh mechanics and solver.go the iteration schedule).
package solver

import "gesim/pkg/geometry"

// Tag classifies a grid pixel for the relaxation kernel (spec.md §3).
type Tag int

const (
	Bulk Tag = iota
	Fixed
	EdgeR
	EdgeZ
	Pinched
)

func (t Tag) String() string {
	switch t {
	case Bulk:
		return "BULK"
	case Fixed:
		return "FIXED"
	case EdgeR:
		return "EDGE_R"
	case EdgeZ:
		return "EDGE_Z"
	case Pinched:
		return "PINCHED"
	default:
		return "?"
	}
}

// Impurity is the linear net-impurity profile rho(z) = N0 + M*z (spec.md §3).
type Impurity struct {
	N0 float64 // 1e10 e/cm^3
	M  float64 // 1e10 e/cm^3/cm, i.e. cm^-4
}

// Params bundles everything the solver needs beyond the crystal geometry.
type Params struct {
	Crystal geometry.Crystal
	Imp     Impurity

	BiasVolts float64

	GridStep      float64
	MaxIterations int // 0 selects the built-in default schedule

	DitchDepth     float64
	DitchThickness float64

	WriteField bool
	WriteWP    bool
}

// Result is everything the signal pipeline and CLI need after Solve.
type Result struct {
	Step float64
	Nr   int
	Nz   int

	bias *Grid
	wp   *Grid

	NPoissonIters int
	NLaplaceIters int
	Converged     bool

	Capacitance    float64 // pF, from the weighting-field volume integral
	CapacitanceAlt float64 // pF, from the point-contact surface integral

	undepleted [][]bool
}
