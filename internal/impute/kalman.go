package impute

import (
	"fmt"
	"math"
)

// KalmanOptions tunes the local-level state-space model used for series
// imputation.
type KalmanOptions struct {
	// SignalToNoise is the ratio of process variance to observation variance.
	SignalToNoise float64
}

// DefaultKalmanOptions returns the defaults used by the stock report.
func DefaultKalmanOptions() KalmanOptions {
	return KalmanOptions{SignalToNoise: 0.1}
}

// Kalman fills missing values in a series using a local-level Kalman filter
// followed by a Rauch-Tung-Striebel smoothing pass. Observed values are kept
// as-is; missing values take the smoothed state estimate.
func Kalman(values []float64, opts KalmanOptions) ([]float64, error) {
	n := len(values)
	if n == 0 {
		return nil, fmt.Errorf("kalman: empty series")
	}
	if opts.SignalToNoise <= 0 {
		opts = DefaultKalmanOptions()
	}

	// Observation variance from the first differences of observed pairs.
	r := diffVariance(values)
	if r <= 0 || math.IsNaN(r) {
		r = 1
	}
	q := r * opts.SignalToNoise

	first := -1
	for i, v := range values {
		if !math.IsNaN(v) {
			first = i
			break
		}
	}
	if first < 0 {
		return nil, fmt.Errorf("kalman: series has no observed values")
	}

	// Forward filter.
	xPred := make([]float64, n) // prior mean at t
	pPred := make([]float64, n) // prior variance at t
	xFilt := make([]float64, n) // posterior mean at t
	pFilt := make([]float64, n) // posterior variance at t

	x, p := values[first], r
	for t := 0; t < n; t++ {
		if t > 0 {
			p += q
		}
		xPred[t], pPred[t] = x, p

		if !math.IsNaN(values[t]) {
			k := p / (p + r)
			x = x + k*(values[t]-x)
			p = (1 - k) * p
		}
		xFilt[t], pFilt[t] = x, p
	}

	// Backward RTS smoother.
	xSmooth := make([]float64, n)
	xSmooth[n-1] = xFilt[n-1]
	pSmooth := pFilt[n-1]
	for t := n - 2; t >= 0; t-- {
		if pPred[t+1] == 0 {
			xSmooth[t] = xFilt[t]
			continue
		}
		g := pFilt[t] / pPred[t+1]
		xSmooth[t] = xFilt[t] + g*(xSmooth[t+1]-xPred[t+1])
		pSmooth = pFilt[t] + g*g*(pSmooth-pPred[t+1])
	}

	out := make([]float64, n)
	for t, v := range values {
		if math.IsNaN(v) {
			out[t] = xSmooth[t]
		} else {
			out[t] = v
		}
	}
	return out, nil
}

func diffVariance(values []float64) float64 {
	var diffs []float64
	prev := math.NaN()
	for _, v := range values {
		if math.IsNaN(v) {
			prev = math.NaN()
			continue
		}
		if !math.IsNaN(prev) {
			diffs = append(diffs, v-prev)
		}
		prev = v
	}
	if len(diffs) < 2 {
		return math.NaN()
	}

	mean := 0.0
	for _, d := range diffs {
		mean += d
	}
	mean /= float64(len(diffs))

	ss := 0.0
	for _, d := range diffs {
		ss += (d - mean) * (d - mean)
	}
	// Halved: a first difference of white noise doubles the variance.
	return ss / float64(len(diffs)-1) / 2
}
