// Package spectrum estimates a positive-frequency magnitude spectrum from
// irregular event times.
//
// The estimate interpolates a constant signal of ones, defined at the event
// times, onto a uniform grid and takes its DFT. The result tracks arrival
// density rather than a physical amplitude; the computation is kept as is.
package spectrum

import (
	"log/slog"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/stat"

	"labwatch/internal/artifact"
	"labwatch/internal/logging"
)

// Result pairs strictly positive frequencies (Hz) with coefficient magnitudes.
type Result struct {
	Frequencies []float64 `json:"frequencies"`
	Magnitudes  []float64 `json:"magnitudes"`
	// Sorted reports that the input was not strictly increasing and was
	// reordered by time before estimation.
	Sorted bool `json:"sorted"`
}

// Len is the number of bins.
func (r Result) Len() int { return len(r.Frequencies) }

// Peak returns the bin with the largest magnitude.
func (r Result) Peak() (freq, mag float64, ok bool) {
	if len(r.Magnitudes) == 0 {
		return 0, 0, false
	}
	best := 0
	for i, m := range r.Magnitudes {
		if m > r.Magnitudes[best] {
			best = i
		}
	}
	return r.Frequencies[best], r.Magnitudes[best], true
}

// Estimate computes the spectrum of timestamps. The second result is false
// when there are fewer than two samples, when the mean spacing is not
// positive, or when the uniform grid yields no positive-frequency bins.
func Estimate(timestamps []float64) (Result, bool) {
	if len(timestamps) < 2 {
		return Result{}, false
	}
	t := append([]float64(nil), timestamps...)
	var res Result
	if !strictlyIncreasing(t) {
		sort.Float64s(t)
		res.Sorted = true
	}

	diffs := make([]float64, len(t)-1)
	for i := range diffs {
		diffs[i] = t[i+1] - t[i]
	}
	dt := stat.Mean(diffs, nil)
	if !(dt > 0) {
		return Result{}, false
	}

	lo, hi := t[0], t[len(t)-1]
	n := int((hi - lo) / dt)
	if n <= 0 {
		return Result{}, false
	}

	signal, ok := resample(t, lo, hi, n)
	if !ok {
		return Result{}, false
	}

	fft := fourier.NewFFT(n)
	coeff := fft.Coefficients(nil, signal)
	positive := (n - 1) / 2
	if positive == 0 {
		return Result{}, false
	}
	res.Frequencies = make([]float64, positive)
	res.Magnitudes = make([]float64, positive)
	for k := 1; k <= positive; k++ {
		res.Frequencies[k-1] = fft.Freq(k) / dt
		res.Magnitudes[k-1] = cmplx.Abs(coeff[k])
	}
	return res, true
}

// resample linearly interpolates ones defined at t onto n evenly spaced
// points covering [lo, hi] inclusive.
func resample(t []float64, lo, hi float64, n int) ([]float64, bool) {
	xs := make([]float64, 0, len(t))
	for i, v := range t {
		if i == 0 || v > xs[len(xs)-1] {
			xs = append(xs, v)
		}
	}
	if len(xs) < 2 {
		return nil, false
	}
	ys := make([]float64, len(xs))
	for i := range ys {
		ys[i] = 1
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return nil, false
	}

	signal := make([]float64, n)
	for i := range signal {
		x := hi
		if n > 1 {
			x = lo + float64(i)*(hi-lo)/float64(n-1)
		}
		signal[i] = pl.Predict(x)
	}
	return signal, true
}

func strictlyIncreasing(t []float64) bool {
	for i := 1; i < len(t); i++ {
		if !(t[i] > t[i-1]) {
			return false
		}
	}
	return true
}

// Estimator runs Estimate over artifacts and logs the outcome. Failure is
// advisory and never returned as an error.
type Estimator struct {
	logger *slog.Logger
}

// NewEstimator returns an Estimator logging under the "spectrum" component.
func NewEstimator(logger *slog.Logger) *Estimator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Estimator{logger: logging.NewComponentLogger(logger, "spectrum")}
}

// Estimate computes the spectrum of the artifact's timestamps.
func (e *Estimator) Estimate(a *artifact.Artifact) (Result, bool) {
	timestamps, ok := a.Timestamps()
	if !ok {
		e.logger.Debug("no spectrum: artifact has no timestamps", logging.String(logging.FieldFile, a.Name()))
		return Result{}, false
	}
	res, ok := Estimate(timestamps)
	if !ok {
		e.logger.Debug("no spectrum: insufficient spacing",
			logging.String(logging.FieldFile, a.Name()),
			logging.Int("samples", len(timestamps)),
		)
		return Result{}, false
	}
	if res.Sorted {
		e.logger.Warn("timestamps were not strictly increasing; sorted by time for spectrum",
			logging.String(logging.FieldEventType, "timestamps_sorted"),
			logging.String(logging.FieldFile, a.Name()),
			logging.String(logging.FieldErrorHint, "check the producer preserves arrival order"),
			logging.String(logging.FieldImpact, "spectrum reflects time order rather than arrival order"),
		)
	}
	e.logger.Debug("spectrum estimated",
		logging.String(logging.FieldFile, a.Name()),
		logging.Int("bins", res.Len()),
	)
	return res, true
}
