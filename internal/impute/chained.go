package impute

import (
	"fmt"
	"math"

	"github.com/ezoic/scigo/linear"
	"gonum.org/v1/gonum/mat"

	"insightcli/internal/dataset"
)

// ChainedOptions tunes the chained-equations imputation pass.
type ChainedOptions struct {
	// MaxIterations bounds the number of full sweeps over the columns.
	MaxIterations int
	// Tolerance stops iteration once the largest imputed-cell change in a
	// sweep falls below it.
	Tolerance float64
}

// DefaultChainedOptions returns the defaults used by the insurance report.
func DefaultChainedOptions() ChainedOptions {
	return ChainedOptions{MaxIterations: 10, Tolerance: 1e-3}
}

// Chained fills missing numeric cells by chained equations: each incomplete
// column is regressed on the remaining numeric columns and its missing cells
// replaced by the regression prediction, sweeping until the imputations
// stabilise. Categorical columns are mode-filled. The per-column regressions
// delegate to scigo's LinearRegression.
func Chained(frame *dataset.Frame, opts ChainedOptions) (*dataset.Frame, error) {
	if opts.MaxIterations <= 0 {
		opts = DefaultChainedOptions()
	}

	// Start from the median fill; chained sweeps refine it.
	out, err := Median(frame)
	if err != nil {
		return nil, fmt.Errorf("chained: initial fill: %w", err)
	}

	var numeric []string
	missingAt := make(map[string][]int)
	for _, col := range frame.Columns() {
		if col.Kind != dataset.Numeric {
			continue
		}
		numeric = append(numeric, col.Name)
		for i, v := range col.Floats {
			if math.IsNaN(v) {
				missingAt[col.Name] = append(missingAt[col.Name], i)
			}
		}
	}
	if len(numeric) < 2 {
		return out, nil
	}

	for iter := 0; iter < opts.MaxIterations; iter++ {
		maxDelta := 0.0

		for _, target := range numeric {
			rows := missingAt[target]
			if len(rows) == 0 {
				continue
			}

			predictors := otherColumns(numeric, target)
			delta, err := sweepColumn(out, target, predictors, rows)
			if err != nil {
				return nil, fmt.Errorf("chained: column %q: %w", target, err)
			}
			if delta > maxDelta {
				maxDelta = delta
			}
		}

		if maxDelta < opts.Tolerance {
			break
		}
	}

	return out, nil
}

// sweepColumn refits the target on its predictors and rewrites the imputed
// cells, returning the largest absolute change.
func sweepColumn(frame *dataset.Frame, target string, predictors []string, rows []int) (float64, error) {
	missing := make(map[int]bool, len(rows))
	for _, i := range rows {
		missing[i] = true
	}

	X, err := frame.Matrix(predictors...)
	if err != nil {
		return 0, err
	}
	y, err := frame.Numeric(target)
	if err != nil {
		return 0, err
	}

	n := frame.NumRows()
	nTrain := n - len(rows)
	if nTrain <= len(predictors)+1 {
		return 0, nil // not enough complete rows to fit, keep the median fill
	}

	XTrain := mat.NewDense(nTrain, len(predictors), nil)
	yTrain := mat.NewDense(nTrain, 1, nil)
	r := 0
	for i := 0; i < n; i++ {
		if missing[i] {
			continue
		}
		for j := range predictors {
			XTrain.Set(r, j, X.At(i, j))
		}
		yTrain.Set(r, 0, y[i])
		r++
	}

	model := linear.NewLinearRegression()
	if err := model.Fit(XTrain, yTrain); err != nil {
		return 0, fmt.Errorf("fit: %w", err)
	}

	XMiss := mat.NewDense(len(rows), len(predictors), nil)
	for k, i := range rows {
		for j := range predictors {
			XMiss.Set(k, j, X.At(i, j))
		}
	}
	pred, err := model.Predict(XMiss)
	if err != nil {
		return 0, fmt.Errorf("predict: %w", err)
	}

	maxDelta := 0.0
	for k, i := range rows {
		next := pred.At(k, 0)
		if d := math.Abs(next - y[i]); d > maxDelta {
			maxDelta = d
		}
		y[i] = next
	}
	if err := frame.SetNumeric(target, y); err != nil {
		return 0, err
	}
	return maxDelta, nil
}

func otherColumns(all []string, exclude string) []string {
	out := make([]string, 0, len(all)-1)
	for _, name := range all {
		if name != exclude {
			out = append(out, name)
		}
	}
	return out
}
