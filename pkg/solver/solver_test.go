package solver

import (
	"testing"

	"gesim/pkg/geometry"
)

func smallCrystal() geometry.Crystal {
	return geometry.Crystal{
		Length:   20,
		Radius:   15,
		PCLength: 2,
		PCRadius: 1,
	}
}

func TestSolveConverges(t *testing.T) {
	p := Params{
		Crystal:       smallCrystal(),
		Imp:           Impurity{N0: -0.5, M: -0.01},
		BiasVolts:     2000,
		GridStep:      1.0,
		MaxIterations: 2000,
	}
	res, err := Solve(p, nil)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if !res.Converged {
		t.Fatal("expected solver to converge on a small well-conditioned crystal")
	}
}

func TestWeightingPotentialBounded(t *testing.T) {
	p := Params{
		Crystal:       smallCrystal(),
		Imp:           Impurity{N0: -0.5, M: -0.01},
		BiasVolts:     2000,
		GridStep:      1.0,
		MaxIterations: 2000,
	}
	res, err := Solve(p, nil)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	g := res.wp
	for iz := 0; iz <= g.Nz; iz++ {
		for ir := 0; ir <= g.Nr; ir++ {
			v := g.V.At(iz, ir)
			if v < -1e-6 || v > 1+1e-6 {
				t.Fatalf("weighting potential out of [0,1] at (iz=%d,ir=%d): %g", iz, ir, v)
			}
		}
	}
}

func TestPointContactIsZeroBias(t *testing.T) {
	p := Params{
		Crystal:       smallCrystal(),
		Imp:           Impurity{N0: -0.5, M: -0.01},
		BiasVolts:     2000,
		GridStep:      1.0,
		MaxIterations: 2000,
	}
	res, err := Solve(p, nil)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	v := res.bias.V.At(0, 0)
	if v != 0 {
		t.Errorf("point contact should be fixed at 0 V, got %g", v)
	}
}

func TestGridScheduleBoundedAtThreeLevels(t *testing.T) {
	c := geometry.Crystal{Length: 800, Radius: 800}
	steps := gridSchedule(c, 0.1)
	if len(steps) > 3 {
		t.Fatalf("expected at most 3 grid levels, got %d", len(steps))
	}
	for i := 1; i < len(steps); i++ {
		if steps[i-1] != steps[i]*2 {
			t.Errorf("grid levels should double: steps=%v", steps)
		}
	}
}
