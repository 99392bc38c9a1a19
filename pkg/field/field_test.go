package field

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleField = `## r (mm), z (mm), V (V), E (V/cm), E_r (V/cm), E_z (V/cm)
0 0 1000 500 0 500
0 1 900 480 0 480

1 0 950 510 10 500
1 1 850 490 10 480
`

const sampleWP = `## r (mm), z (mm), WP
0 0 1
0 1 0.8

1 0 0.9
1 1 0.7
`

func TestLoadFieldAndInterpolate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "field.dat")
	if err := os.WriteFile(path, []byte(sampleField), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := LoadField(path)
	if err != nil {
		t.Fatalf("LoadField: %v", err)
	}
	er, ez, err := s.EfieldAt(0, 0)
	if err != nil {
		t.Fatalf("EfieldAt: %v", err)
	}
	if er != 0 || ez != 500 {
		t.Errorf("EfieldAt(0,0) = (%g,%g), want (0,500)", er, ez)
	}

	// symmetry invariant: E_r(r=0,z) == 0 for any z on axis.
	er0, _, err := s.EfieldAt(0, 0.5)
	if err != nil {
		t.Fatalf("EfieldAt: %v", err)
	}
	if er0 != 0 {
		t.Errorf("E_r(r=0,z) = %g, want 0 by cylindrical symmetry", er0)
	}
}

func TestEfieldOutOfFieldError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "field.dat")
	os.WriteFile(path, []byte(sampleField), 0o644)
	s, err := LoadField(path)
	if err != nil {
		t.Fatalf("LoadField: %v", err)
	}
	if _, _, err := s.EfieldAt(100, 100); err == nil {
		t.Fatal("expected OutOfField for a point outside the grid")
	}
}

func TestWeightingPotentialRange(t *testing.T) {
	dir := t.TempDir()
	fpath := filepath.Join(dir, "field.dat")
	wpath := filepath.Join(dir, "wp.dat")
	os.WriteFile(fpath, []byte(sampleField), 0o644)
	os.WriteFile(wpath, []byte(sampleWP), 0o644)

	s, err := LoadField(fpath)
	if err != nil {
		t.Fatalf("LoadField: %v", err)
	}
	if err := s.LoadWeightingPotential(wpath); err != nil {
		t.Fatalf("LoadWeightingPotential: %v", err)
	}

	wp, err := s.WpotentialAt(0.5, 0.5)
	if err != nil {
		t.Fatalf("WpotentialAt: %v", err)
	}
	if wp < 0 || wp > 1 {
		t.Errorf("weighting potential %g outside [0,1]", wp)
	}
}
