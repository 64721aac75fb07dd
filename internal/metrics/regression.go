// Package metrics scores model output: forecast and regression errors,
// classification accuracy, confusion matrices and ROC/AUC.
package metrics

import (
	"fmt"
	"math"
)

// MAPE returns the mean absolute percentage error in percent. Rows where the
// actual value is zero are skipped.
func MAPE(actual, predicted []float64) (float64, error) {
	if err := sameLength(actual, predicted); err != nil {
		return 0, fmt.Errorf("mape: %w", err)
	}

	sum, n := 0.0, 0
	for i := range actual {
		if actual[i] == 0 {
			continue
		}
		sum += math.Abs((actual[i] - predicted[i]) / actual[i])
		n++
	}
	if n == 0 {
		return 0, fmt.Errorf("mape: all actual values are zero")
	}
	return sum / float64(n) * 100, nil
}

// RMSE returns the root mean squared error.
func RMSE(actual, predicted []float64) (float64, error) {
	if err := sameLength(actual, predicted); err != nil {
		return 0, fmt.Errorf("rmse: %w", err)
	}

	sum := 0.0
	for i := range actual {
		d := actual[i] - predicted[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(actual))), nil
}

// MAE returns the mean absolute error.
func MAE(actual, predicted []float64) (float64, error) {
	if err := sameLength(actual, predicted); err != nil {
		return 0, fmt.Errorf("mae: %w", err)
	}

	sum := 0.0
	for i := range actual {
		sum += math.Abs(actual[i] - predicted[i])
	}
	return sum / float64(len(actual)), nil
}

// R2 returns the coefficient of determination.
func R2(actual, predicted []float64) (float64, error) {
	if err := sameLength(actual, predicted); err != nil {
		return 0, fmt.Errorf("r2: %w", err)
	}

	mean := 0.0
	for _, v := range actual {
		mean += v
	}
	mean /= float64(len(actual))

	ssTot, ssRes := 0.0, 0.0
	for i := range actual {
		d := actual[i] - mean
		ssTot += d * d
		r := actual[i] - predicted[i]
		ssRes += r * r
	}
	if ssTot == 0 {
		return 0, fmt.Errorf("r2: actual values are constant")
	}
	return 1 - ssRes/ssTot, nil
}

func sameLength(a, b []float64) error {
	if len(a) == 0 {
		return fmt.Errorf("empty input")
	}
	if len(a) != len(b) {
		return fmt.Errorf("length mismatch: %d vs %d", len(a), len(b))
	}
	return nil
}
