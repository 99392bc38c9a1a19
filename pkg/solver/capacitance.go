package solver

import (
	"math"

	"gesim/internal/consts"
	"gesim/pkg/geometry"
)

// capacitance computes the point-contact capacitance two ways, grounded on
// mjd_fieldgen.c's esum/esum2 accumulators: esum integrates the weighting
// field's stored energy over the whole depleted volume, esum2 integrates
// the field just outside the point-contact surface. Result is in pF; the
// two should agree to within about 10% (spec.md §8 Scenario 1).
func capacitance(bias, wp *Grid, imp Impurity, c geometry.Crystal) (esum, esum2 float64) {
	h := wp.Step
	volumeScale := 2 * math.Pi * consts.EpsilonGe * h * h

	for iz := 0; iz <= wp.Nz; iz++ {
		z := float64(iz) * h
		for ir := 1; ir <= wp.Nr; ir++ {
			r := float64(ir) * h
			if bias.tag[iz][ir] == Fixed {
				continue
			}
			dwdr := (wp.V.At(iz, min(ir+1, wp.Nr)) - wp.V.At(iz, max(ir-1, 0))) / (2 * h)
			dwdz := (wp.V.At(min(iz+1, wp.Nz), ir) - wp.V.At(max(iz-1, 0), ir)) / (2 * h)
			grad2 := dwdr*dwdr + dwdz*dwdz
			esum += grad2 * r
			_ = z
		}
	}
	esum *= volumeScale

	surfaceScale := 2 * math.Pi * consts.EpsilonGe * h
	for iz := 0; iz <= wp.Nz; iz++ {
		z := float64(iz) * h
		for ir := 0; ir <= wp.Nr; ir++ {
			r := float64(ir) * h
			if bias.tag[iz][ir] != Fixed {
				continue
			}
			if !(r <= c.PCRadius && z <= c.PCLength) {
				continue
			}
			isBoundary := false
			for _, d := range [][2]int{{0, 1}, {0, -1}, {1, 0}, {-1, 0}} {
				jz, jr := iz+d[0], ir+d[1]
				if jr < 0 || jr > wp.Nr || jz < 0 || jz > wp.Nz {
					continue
				}
				if bias.tag[jz][jr] != Fixed {
					isBoundary = true
				}
			}
			if !isBoundary {
				continue
			}
			dwdr := (wp.V.At(iz, min(ir+1, wp.Nr)) - wp.V.At(iz, max(ir-1, 0))) / (2 * h)
			dwdz := (wp.V.At(min(iz+1, wp.Nz), ir) - wp.V.At(max(iz-1, 0), ir)) / (2 * h)
			esum2 += math.Hypot(dwdr, dwdz) * r
		}
	}
	esum2 *= surfaceScale

	return esum, esum2
}
