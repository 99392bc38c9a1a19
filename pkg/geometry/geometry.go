// Package geometry answers whether a point lies inside the active volume
// of a coaxial PPC/BEGe crystal (spec.md §3, §4.A), grounded on
// detector_geometry.c's outside_detector/outside_detector_cyl.
package geometry

import "math"

// Crystal holds the immutable dimensions of one detector (spec.md §3).
// Either (WrapAroundRadius + DitchDepth/DitchThickness) or TaperLength is
// meaningfully populated, not both.
type Crystal struct {
	Length          float64 // L_z, axial length, mm
	Radius          float64 // R_max, outer radius, mm
	TopBulletRadius float64 // b_t
	PCLength        float64 // L_c, point-contact length
	PCRadius        float64 // R_c, point-contact radius
	TaperLength     float64 // L_t, 45-degree bottom taper
	WrapAroundRadius float64 // R_w
	DitchDepth      float64 // d_d
	DitchThickness  float64 // d_w
}

// Valid checks the invariants from spec.md §3.
func (c Crystal) Valid() bool {
	return c.PCRadius >= 0 && c.PCLength >= 0 &&
		c.PCRadius <= c.Radius && c.PCLength <= c.Length
}

// Inside reports whether the cylindrical point (r, z) lies within the
// active crystal volume (spec.md §4.A). It is a pure, total function.
func (c Crystal) Inside(r, z float64) bool {
	if z < 0 || z >= c.Length {
		return false
	}
	if r > c.Radius {
		return false
	}
	if c.TopBulletRadius > 0 {
		br := c.TopBulletRadius
		if z > c.Length-br {
			dz := z - (c.Length - br)
			limit := (c.Radius - br) + math.Sqrt(math.Max(0, br*br-dz*dz))
			if r > limit {
				return false
			}
		}
	}
	if c.PCRadius > 0 && z <= c.PCLength && r <= c.PCRadius {
		return false
	}
	if c.TaperLength > 0 && z < c.TaperLength && r > c.Length-c.TaperLength+z {
		return false
	}
	return true
}

// InsideCartesian is the (x, y, z) entry point; it folds to the
// cylindrical radius and delegates to Inside.
func (c Crystal) InsideCartesian(x, y, z float64) bool {
	r := math.Hypot(x, y)
	return c.Inside(r, z)
}
