package transform

import (
	"fmt"

	"github.com/ezoic/scigo/preprocessing"
	"gonum.org/v1/gonum/mat"
)

// StandardScale centres and scales a feature matrix to zero mean and unit
// variance, delegating to scigo's StandardScaler. The fitted scaler is
// returned so hold-out data can be transformed with the training statistics.
func StandardScale(X *mat.Dense) (*mat.Dense, *preprocessing.StandardScaler, error) {
	scaler := preprocessing.NewStandardScaler(true, true)
	if err := scaler.Fit(X); err != nil {
		return nil, nil, fmt.Errorf("fit scaler: %w", err)
	}
	scaled, err := scaler.Transform(X)
	if err != nil {
		return nil, nil, fmt.Errorf("transform: %w", err)
	}
	return mat.DenseCopyOf(scaled), scaler, nil
}

// ApplyScale transforms a matrix with an already-fitted scaler.
func ApplyScale(scaler *preprocessing.StandardScaler, X *mat.Dense) (*mat.Dense, error) {
	scaled, err := scaler.Transform(X)
	if err != nil {
		return nil, fmt.Errorf("transform: %w", err)
	}
	return mat.DenseCopyOf(scaled), nil
}

// MinMax rescales values into [0, 1]. A constant column maps to all zeros.
func MinMax(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	out := make([]float64, len(values))
	if hi == lo {
		return out
	}
	for i, v := range values {
		out[i] = (v - lo) / (hi - lo)
	}
	return out
}
