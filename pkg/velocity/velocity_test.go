package velocity

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleTable = `# E v_e100 v_e110 v_e111 v_h100 v_h110 v_h111
0      0      0      0      0      0      0
100    0.05   0.048  0.046  0.04   0.038  0.036
500    0.09   0.086  0.082  0.07   0.066  0.062
1000   0.10   0.095  0.090  0.08   0.075  0.070
e 6.6e7 -1.68 6e6 0.6
h 4.9e6 0.46 8.8e5 0.85
`

func writeSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "vel.tab")
	if err := os.WriteFile(path, []byte(sampleTable), 0o644); err != nil {
		t.Fatalf("write sample table: %v", err)
	}
	return path
}

func TestLoadAndPrepare(t *testing.T) {
	path := writeSample(t)
	tab, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(tab.rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(tab.rows))
	}
	tab.Prepare()
	if tab.eTemp.mu0 != 6.6e7 {
		t.Errorf("eTemp.mu0 = %g, want 6.6e7", tab.eTemp.mu0)
	}
}

func TestLoadRejectsUnsortedE(t *testing.T) {
	bad := "0 0 0 0 0 0 0\n100 0.1 0.1 0.1 0.1 0.1 0.1\n50 0.2 0.2 0.2 0.2 0.2 0.2\ne 1 1 1 1\nh 1 1 1 1\n"
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.tab")
	os.WriteFile(path, []byte(bad), 0o644)
	if _, err := Load(path); err == nil {
		t.Fatal("expected MalformedTable error for unsorted E")
	}
}

func TestQueryOutOfField(t *testing.T) {
	path := writeSample(t)
	tab, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	tab.Prepare()
	_, err = tab.Query(Hole, [3]float64{0, 0, 5000})
	if err == nil {
		t.Fatal("expected OutOfField error")
	}
}

func TestQueryZeroField(t *testing.T) {
	path := writeSample(t)
	tab, _ := Load(path)
	tab.Prepare()
	v, err := tab.Query(Electron, [3]float64{0, 0, 0})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if v != ([3]float64{}) {
		t.Errorf("expected zero velocity at zero field, got %v", v)
	}
}

func TestQueryElectronSignConvention(t *testing.T) {
	path := writeSample(t)
	tab, _ := Load(path)
	tab.Prepare()
	field := [3]float64{0, 0, 500}
	ve, err := tab.Query(Electron, field)
	if err != nil {
		t.Fatalf("Query electron: %v", err)
	}
	vh, err := tab.Query(Hole, field)
	if err != nil {
		t.Fatalf("Query hole: %v", err)
	}
	if ve[2] >= 0 {
		t.Errorf("electron should drift opposite to E (z<0), got %v", ve)
	}
	if vh[2] <= 0 {
		t.Errorf("hole should drift along E (z>0), got %v", vh)
	}
}

func TestCorrectRejectsOutOfRangeTemp(t *testing.T) {
	path := writeSample(t)
	tab, _ := Load(path)
	tab.Prepare()
	if err := tab.Correct(50); err == nil {
		t.Fatal("expected OutOfTemperatureRange for 50K")
	}
	if err := tab.Correct(120); err == nil {
		t.Fatal("expected OutOfTemperatureRange for 120K")
	}
}

func TestCorrectAtReferenceTempIsNearIdentity(t *testing.T) {
	path := writeSample(t)
	tab, _ := Load(path)
	tab.Prepare()
	before := tab.rows[2].h100
	if err := tab.Correct(77); err != nil {
		t.Fatalf("Correct: %v", err)
	}
	after := tab.rows[2].h100
	diff := after - before
	if diff < 0 {
		diff = -diff
	}
	if diff > 1e-6 {
		t.Errorf("correcting to the reference temperature should be near identity: before=%g after=%g", before, after)
	}
}
