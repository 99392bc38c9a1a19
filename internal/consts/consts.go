// Package consts holds the physical constants shared by the field solver
// and the signal generator.
package consts

const (
	ElementaryCharge = 1.6021918e-19 // C
	Boltzmann        = 1.3806226e-23 // J/K
	KelvinOffset     = 273.15        // K

	// GePermittivity is the relative permittivity of germanium used by the
	// relaxation kernel's boundary condition at the Ge/vacuum interface.
	GePermittivity = 16.0
	// VacuumPermittivity is the relative permittivity inside the ditch
	// region carved out for a wrap-around BEGe contact.
	VacuumPermittivity = 1.0

	// EpsilonGe is the absolute permittivity of germanium in pF/mm, used by
	// the capacitance integral.
	EpsilonGe = 8.85 * GePermittivity / 1000.0

	// SpaceChargeFactor is e/epsilon0 expressed in mm*V units for a unit
	// grid step; the relaxation kernel scales it by 4*h^2 per pass.
	SpaceChargeFactor = 0.7072

	ReferenceTemp = 77.0  // K, drift-velocity table reference temperature
	MinTemp       = 77.0  // K
	MaxTemp       = 110.0 // K
)
