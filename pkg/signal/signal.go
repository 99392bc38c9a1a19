// Package signal is the post-processing pipeline (spec.md §4.F): it takes
// the raw electron/hole current traces from pkg/drift, convolves them with
// the charge-cloud size, downsamples to the output rate, and runs them
// through the preamp's RC integration. Grounded on calc_signal.c's
// get_signal/rc_integrate.
package signal

import (
	"math"

	"gesim/pkg/drift"
	"gesim/pkg/velocity"
)

// Params configures one GetSignal call.
type Params struct {
	Drift drift.Params

	NOut        int     // ntsteps_out
	StepTimeOut float64 // step_time_out, ns
	PreampTau   float64 // preamp_tau, ns
}

// Scratch holds the lazily-allocated, length-keyed buffers get_signal reuses
// across calls (spec.md §3 Signal buffers, §5 resource lifecycle).
type Scratch struct {
	nCalc      int
	raw, tmp, sum []float64
}

// Result is the fully processed output waveform plus diagnostic traces.
type Result struct {
	Out []float64

	HoleReason     drift.Reason
	ElectronReason drift.Reason
	HoleTrace      [][3]float64
	ElectronTrace  [][3]float64
}

// GetSignal runs make_signal for both carriers at start, sums their induced
// current, integrates to charge, convolves, downsamples, and RC-filters.
// Per spec.md §4.E, the event fails only if the hole call fails; an
// electron failure is absorbed silently.
func GetSignal(start [3]float64, sc *Scratch, p Params) (*Result, error) {
	holeParams := p.Drift
	holeRes, err := drift.MakeSignal(start, velocity.Hole, holeParams)
	if err != nil {
		return nil, err
	}

	elecParams := p.Drift
	elecRes, elecErr := drift.MakeSignal(start, velocity.Electron, elecParams)

	nCalc := p.Drift.NCalc
	if sc.nCalc != nCalc {
		sc.nCalc = nCalc
		sc.raw = make([]float64, nCalc)
		sc.tmp = make([]float64, nCalc)
		sc.sum = make([]float64, nCalc)
	}
	for i := range sc.raw {
		sc.raw[i] = holeRes.Signal[i]
	}
	if elecErr == nil {
		for i := range sc.raw {
			sc.raw[i] += elecRes.Signal[i]
		}
	}

	// prefix-sum current into charge.
	running := 0.0
	for i := range sc.raw {
		running += sc.raw[i]
		sc.raw[i] = running
	}

	sigma := cloudSigma(holeRes, p.Drift)
	gaussianConvolve(sc.raw, sc.tmp, sc.sum, sigma)

	out := downsample(sc.raw, p.NOut)

	// Below a preamp_tau/step_time_out ratio of 0.1 the RC stage is
	// skipped entirely rather than degenerating into the one-sample
	// shift: the preamp's time constant is negligible next to the
	// output sample period, so the signal is left unfiltered
	// (calc_signal.c's get_signal gates rc_integrate the same way).
	rcOut := make([]float64, len(out))
	tau := p.PreampTau / p.StepTimeOut
	if shouldRCIntegrate(tau) {
		RCIntegrate(out, rcOut, tau)
	} else {
		copy(rcOut, out)
	}

	res := &Result{
		Out:        rcOut,
		HoleReason: holeRes.Reason,
		HoleTrace:  holeRes.Trace,
	}
	if elecErr == nil {
		res.ElectronReason = elecRes.Reason
		res.ElectronTrace = elecRes.Trace
	}
	return res, nil
}

// cloudSigma computes the effective Gaussian width in samples, per
// spec.md §4.E(i): charge_cloud_size/(dt*|v_init|) without diffusion, or
// sqrt(final_charge_size_sq)/(dt*|v_final|) with it.
func cloudSigma(holeRes *drift.Result, p drift.Params) float64 {
	if holeRes.InitialVel == 0 {
		return 0
	}
	if p.UseDiffusion {
		return math.Sqrt(holeRes.FinalCloudSizeSq) / (p.StepTime * holeRes.InitialVel)
	}
	return p.ChargeCloudSize / (p.StepTime * holeRes.InitialVel)
}

// gaussianConvolve smooths sig in place with a symmetric Gaussian kernel of
// width sigma (in samples), per spec.md §4.E(i). No-ops if sigma <= 1.
func gaussianConvolve(sig, tmp, sum []float64, sigma float64) {
	if sigma <= 1 {
		return
	}
	n := len(sig)
	for i := range tmp {
		tmp[i] = 0
		sum[i] = 0
	}
	w := sigma / 2.355
	l := int(w / 5)
	if l < 1 {
		l = 1
	}
	for k := l; float64(k) < 2*sigma; k += l {
		y := math.Exp(-(float64(k) / w) * (float64(k) / w))
		for j := 0; j < n; j++ {
			if j+k < n {
				tmp[j] += y * sig[j+k]
				sum[j] += y
			}
			if j-k >= 0 {
				tmp[j] += y * sig[j-k]
				sum[j] += y
			}
		}
	}
	for j := 0; j < n; j++ {
		tmp[j] += sig[j]
		sum[j] += 1
		sig[j] = tmp[j] / sum[j]
	}
}

// downsample averages contiguous runs of c = len(in)/len(out) samples.
func downsample(in []float64, nOut int) []float64 {
	out := make([]float64, nOut)
	if nOut == 0 {
		return out
	}
	c := len(in) / nOut
	if c < 1 {
		c = 1
	}
	for j := 0; j < nOut; j++ {
		start := j * c
		end := start + c
		if end > len(in) {
			end = len(in)
		}
		if start >= len(in) {
			out[j] = out[j-1]
			continue
		}
		sum := 0.0
		for i := start; i < end; i++ {
			sum += in[i]
		}
		out[j] = sum / float64(end-start)
	}
	return out
}

// shouldRCIntegrate reports whether the RC stage runs at all: below a
// preamp_tau/step_time_out ratio of 0.1 the preamp's time constant is
// negligible next to the output sample period and get_signal leaves the
// waveform unfiltered instead.
func shouldRCIntegrate(tau float64) bool {
	return tau >= 0.1
}

// RCIntegrate applies the preamp's single-pole RC response (spec.md
// §4.E(iii), the exact per-sample update of the continuous RC recurrence
// y[j] = y[j-1] + (x[j-1]-y[j-1])*(1-e^(-1/tau)), tau in output-sample
// units) for tau >= 1, or a one-sample right shift for tau < 1. Safe for
// out == in.
func RCIntegrate(in, out []float64, tau float64) {
	n := len(in)
	if n == 0 {
		return
	}
	if tau < 1.0 {
		for j := n - 1; j > 0; j-- {
			out[j] = in[j-1]
		}
		out[0] = 0
		return
	}
	alpha := 1 - math.Exp(-1/tau)
	// xPrev/prevY are cached one iteration ahead of the write to out[j] so
	// the recurrence stays correct when out and in are the same slice.
	xPrev, prevY := 0.0, 0.0
	for j := 0; j < n; j++ {
		xCur := in[j]
		y := prevY + (xPrev-prevY)*alpha
		out[j] = y
		xPrev, prevY = xCur, y
	}
}
