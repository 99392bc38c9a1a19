package signal

import "testing"

func stepInput(n int) []float64 {
	in := make([]float64, n)
	for i := range in {
		in[i] = 1
	}
	return in
}

func TestRCIntegrateRisesToOneMinusInvE(t *testing.T) {
	n := 5
	in := stepInput(n)
	out := make([]float64, n)
	RCIntegrate(in, out, 1.0)

	want := 1 - 1/2.718281828459045
	if diff := out[1] - want; diff < -1e-3 || diff > 1e-3 {
		t.Errorf("RCIntegrate tau=1 sample 1 = %g, want %g", out[1], want)
	}
}

func TestRCIntegrateScenarioTau30Dt10(t *testing.T) {
	n := 5
	in := stepInput(n)
	out := make([]float64, n)
	RCIntegrate(in, out, 3.0) // tau=30ns / dt_out=10ns

	if diff := out[1] - 0.283; diff < -1e-3 || diff > 1e-3 {
		t.Errorf("sample 1 = %g, want ~0.283", out[1])
	}
	if diff := out[2] - 0.487; diff < -1e-3 || diff > 1e-3 {
		t.Errorf("sample 2 = %g, want ~0.487", out[2])
	}
}

func TestRCIntegrateAliasingSafe(t *testing.T) {
	n := 10
	in := stepInput(n)
	separate := make([]float64, n)
	RCIntegrate(in, separate, 3.0)

	aliased := stepInput(n)
	RCIntegrate(aliased, aliased, 3.0)

	for i := range separate {
		if diff := separate[i] - aliased[i]; diff < -1e-9 || diff > 1e-9 {
			t.Errorf("sample %d: separate=%g aliased=%g, want equal", i, separate[i], aliased[i])
		}
	}
}

func TestRCIntegrateSubOneTauShifts(t *testing.T) {
	in := []float64{1, 2, 3, 4}
	out := make([]float64, 4)
	RCIntegrate(in, out, 0.5)

	want := []float64{0, 1, 2, 3}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("sample %d = %g, want %g", i, out[i], want[i])
		}
	}
}

func TestShouldRCIntegrateThreshold(t *testing.T) {
	if shouldRCIntegrate(0.099) {
		t.Error("ratio below 0.1 should skip the RC stage")
	}
	if !shouldRCIntegrate(0.1) {
		t.Error("ratio at 0.1 should run the RC stage")
	}
	if !shouldRCIntegrate(3.0) {
		t.Error("ratio above 0.1 should run the RC stage")
	}
}

func TestDownsampleAverages(t *testing.T) {
	in := []float64{1, 1, 3, 3, 5, 5}
	out := downsample(in, 3)
	want := []float64{1, 3, 5}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("sample %d = %g, want %g", i, out[i], want[i])
		}
	}
}
