package drift

import (
	"os"
	"path/filepath"
	"testing"

	"gesim/pkg/errs"
	"gesim/pkg/geometry"
	"gesim/pkg/velocity"
)

// fakeField is a trivial uniform-field stand-in implementing FieldSource,
// used so drift tests don't depend on a solved grid.
type fakeField struct {
	crystal geometry.Crystal
}

func (f fakeField) EfieldAt(r, z float64) (float64, float64, error) {
	if !f.crystal.Inside(r, z) {
		return 0, 0, errs.New(errs.OutOfField, "outside")
	}
	return 0, 500, nil
}

func (f fakeField) WpotentialAt(r, z float64) (float64, error) {
	if !f.crystal.Inside(r, z) {
		return 0, errs.New(errs.OutOfField, "outside")
	}
	return 1 - z/f.crystal.Length, nil
}

const sampleTable = `0      0      0      0      0      0      0
100    0.05   0.048  0.046  0.04   0.038  0.036
500    0.09   0.086  0.082  0.07   0.066  0.062
1000   0.10   0.095  0.090  0.08   0.075  0.070
e 6.6e7 -1.68 6e6 0.6
h 4.9e6 0.46 8.8e5 0.85
`

func loadTable(t *testing.T) *velocity.Table {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "vel.tab")
	os.WriteFile(path, []byte(sampleTable), 0o644)
	tab, err := velocity.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	tab.Prepare()
	return tab
}

func TestMakeSignalOutsideDetectorFailsImmediately(t *testing.T) {
	c := geometry.Crystal{Length: 20, Radius: 15, PCLength: 2, PCRadius: 1}
	p := Params{
		Field:    fakeField{crystal: c},
		Velocity: loadTable(t),
		Crystal:  c,
		NCalc:    100,
		StepTime: 1,
		Collecting: velocity.Hole,
	}
	_, err := MakeSignal([3]float64{0, 0, -5}, velocity.Hole, p)
	if !errs.Is(err, errs.OutsideDetector) {
		t.Fatalf("expected OutsideDetector, got %v", err)
	}
}

func TestMakeSignalRunsToCompletionOrTail(t *testing.T) {
	c := geometry.Crystal{Length: 20, Radius: 15, PCLength: 2, PCRadius: 1}
	p := Params{
		Field:      fakeField{crystal: c},
		Velocity:   loadTable(t),
		Crystal:    c,
		NCalc:      500,
		StepTime:   1,
		Collecting: velocity.Hole,
	}
	res, err := MakeSignal([3]float64{3, 0, 10}, velocity.Hole, p)
	if err != nil {
		t.Fatalf("MakeSignal: %v", err)
	}
	if len(res.Signal) != 500 {
		t.Fatalf("expected 500 signal samples, got %d", len(res.Signal))
	}
	if len(res.Trace) == 0 {
		t.Error("expected a non-empty drift trace")
	}
}
