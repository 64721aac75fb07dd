// Package impute fills missing cells. Three strategies are provided, matching
// what each report needs: median/mode for cross-sectional tables, a Kalman
// local-level smoother for time series, and chained equations for tables with
// correlated numeric features.
package impute

import (
	"fmt"
	"math"
	"sort"

	"insightcli/internal/dataset"
)

// Median returns a copy of the frame with missing numeric cells replaced by
// the column median and missing categorical cells by the column mode.
func Median(frame *dataset.Frame) (*dataset.Frame, error) {
	out := frame.Clone()
	for _, col := range out.Columns() {
		switch col.Kind {
		case dataset.Numeric:
			filled, err := fillMedian(col.Floats)
			if err != nil {
				return nil, fmt.Errorf("impute %q: %w", col.Name, err)
			}
			if err := out.SetNumeric(col.Name, filled); err != nil {
				return nil, err
			}
		case dataset.Categorical:
			filled, err := fillMode(col.Labels)
			if err != nil {
				return nil, fmt.Errorf("impute %q: %w", col.Name, err)
			}
			if err := out.SetLabels(col.Name, filled); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func fillMedian(values []float64) ([]float64, error) {
	observed := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			observed = append(observed, v)
		}
	}
	if len(observed) == 0 {
		return nil, fmt.Errorf("no observed values")
	}

	sort.Float64s(observed)
	var median float64
	n := len(observed)
	if n%2 == 0 {
		median = (observed[n/2-1] + observed[n/2]) / 2
	} else {
		median = observed[n/2]
	}

	out := make([]float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			out[i] = median
		} else {
			out[i] = v
		}
	}
	return out, nil
}

func fillMode(values []string) ([]string, error) {
	counts := make(map[string]int)
	for _, v := range values {
		if v != "" {
			counts[v]++
		}
	}
	if len(counts) == 0 {
		return nil, fmt.Errorf("no observed values")
	}

	mode, best := "", 0
	for level, n := range counts {
		if n > best || (n == best && level < mode) {
			mode, best = level, n
		}
	}

	out := make([]string, len(values))
	for i, v := range values {
		if v == "" {
			out[i] = mode
		} else {
			out[i] = v
		}
	}
	return out, nil
}
