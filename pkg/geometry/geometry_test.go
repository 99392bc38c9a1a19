package geometry

import "testing"

func sampleCrystal() Crystal {
	return Crystal{
		Length:   50.5,
		Radius:   34.5,
		PCLength: 2.1,
		PCRadius: 1.4,
	}
}

func TestInsidePointContactCavityExcluded(t *testing.T) {
	c := sampleCrystal()
	if c.Inside(0.5, 1.0) {
		t.Error("point inside the point-contact cavity should be excluded")
	}
}

func TestInsideBulkIncluded(t *testing.T) {
	c := sampleCrystal()
	if !c.Inside(10, 25) {
		t.Error("a bulk point well inside the crystal should be included")
	}
}

func TestInsideRejectsBeyondOuterRadius(t *testing.T) {
	c := sampleCrystal()
	if c.Inside(c.Radius+1, 10) {
		t.Error("point beyond the outer radius should be excluded")
	}
}

func TestInsideRejectsBeyondLength(t *testing.T) {
	c := sampleCrystal()
	if c.Inside(10, c.Length) {
		t.Error("point at/beyond z=Length should be excluded")
	}
	if c.Inside(10, -1) {
		t.Error("point at negative z should be excluded")
	}
}

func TestInsideIdempotent(t *testing.T) {
	c := sampleCrystal()
	r, z := 10.0, 25.0
	if c.Inside(r, z) != c.Inside(r, z) {
		t.Error("Inside should be a pure, idempotent function")
	}
}

func TestInsideMonotoneUnderShrinkingRadius(t *testing.T) {
	big := sampleCrystal()
	small := big
	small.Radius = big.Radius / 2

	r, z := big.Radius*0.75, 25.0
	if !big.Inside(r, z) {
		t.Fatal("setup invariant: point should be inside the larger crystal")
	}
	if small.Inside(r, z) {
		t.Error("a point beyond the shrunken radius should be excluded")
	}
}

func TestInsideTopBulletization(t *testing.T) {
	c := sampleCrystal()
	c.TopBulletRadius = 5
	// A point at the outer radius near the very top should now be excluded
	// by the bulletization curve even though it was inside a flat-top
	// crystal of the same radius.
	if c.Inside(c.Radius-0.1, c.Length-0.1) {
		t.Error("point near the top corner should be excluded by bulletization")
	}
}

func TestValid(t *testing.T) {
	c := sampleCrystal()
	if !c.Valid() {
		t.Error("sample crystal should satisfy the geometry invariants")
	}
	bad := c
	bad.PCRadius = c.Radius + 1
	if bad.Valid() {
		t.Error("PCRadius > Radius should be invalid")
	}
}
