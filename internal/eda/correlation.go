package eda

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"insightcli/internal/dataset"
)

// CorrelationMatrix holds pairwise Pearson correlations between the named
// numeric columns. Pairs are computed over rows where both values are
// observed.
type CorrelationMatrix struct {
	Names  []string
	Values [][]float64
}

// Correlation computes the correlation matrix for the given numeric columns.
func Correlation(frame *dataset.Frame, names ...string) (*CorrelationMatrix, error) {
	if len(names) < 2 {
		return nil, fmt.Errorf("correlation: need at least 2 columns")
	}

	cols := make([][]float64, len(names))
	for i, name := range names {
		vals, err := frame.Numeric(name)
		if err != nil {
			return nil, fmt.Errorf("correlation: %w", err)
		}
		cols[i] = vals
	}

	values := make([][]float64, len(names))
	for i := range values {
		values[i] = make([]float64, len(names))
		values[i][i] = 1
	}

	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			r := pairwiseCorrelation(cols[i], cols[j])
			values[i][j] = r
			values[j][i] = r
		}
	}

	return &CorrelationMatrix{Names: names, Values: values}, nil
}

// At returns the correlation between two named columns.
func (m *CorrelationMatrix) At(a, b string) (float64, error) {
	ai, bi := -1, -1
	for i, name := range m.Names {
		if name == a {
			ai = i
		}
		if name == b {
			bi = i
		}
	}
	if ai < 0 || bi < 0 {
		return 0, fmt.Errorf("correlation: unknown pair (%s, %s)", a, b)
	}
	return m.Values[ai][bi], nil
}

func pairwiseCorrelation(x, y []float64) float64 {
	var xs, ys []float64
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	return stat.Correlation(xs, ys, nil)
}
