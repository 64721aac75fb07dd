package model

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// twoClusters builds a linearly separable binary problem: class 0 around
// (0,0), class 1 around (4,4), n rows per class.
func twoClusters(n int, seed int64) (*mat.Dense, []int) {
	rng := rand.New(rand.NewSource(seed))
	X := mat.NewDense(2*n, 2, nil)
	y := make([]int, 2*n)
	for i := 0; i < n; i++ {
		X.Set(i, 0, rng.NormFloat64()*0.5)
		X.Set(i, 1, rng.NormFloat64()*0.5)
		X.Set(n+i, 0, 4+rng.NormFloat64()*0.5)
		X.Set(n+i, 1, 4+rng.NormFloat64()*0.5)
		y[n+i] = 1
	}
	return X, y
}

func TestLDASeparatesClusters(t *testing.T) {
	X, y := twoClusters(30, 1)

	lda := NewLDA()
	require.NoError(t, lda.Fit(X, y))

	pred, err := lda.Predict(X)
	require.NoError(t, err)

	correct := 0
	for i := range y {
		if pred[i] == y[i] {
			correct++
		}
	}
	assert.GreaterOrEqual(t, correct, 58, "lda should separate well-spread clusters")

	scores, err := lda.Scores(X)
	require.NoError(t, err)
	assert.Len(t, scores, 60)
}

func TestLDARejectsBadLabels(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	err := NewLDA().Fit(X, []int{0, 1, 2, 1})
	assert.Error(t, err)
}

func TestLDANotFitted(t *testing.T) {
	_, err := NewLDA().Predict(mat.NewDense(1, 1, []float64{1}))
	assert.Error(t, err)
}

func TestLogisticSeparatesClusters(t *testing.T) {
	X, y := twoClusters(30, 2)

	lr := NewLogistic()
	require.NoError(t, lr.Fit(X, y))

	probs, err := lr.Probabilities(X)
	require.NoError(t, err)

	// Probabilities ordered with the clusters
	assert.Less(t, probs[0], 0.5)
	assert.Greater(t, probs[59], 0.5)

	pred, err := lr.Predict(X)
	require.NoError(t, err)
	correct := 0
	for i := range y {
		if pred[i] == y[i] {
			correct++
		}
	}
	assert.GreaterOrEqual(t, correct, 58)

	coeffs, err := lr.Coefficients()
	require.NoError(t, err)
	assert.Len(t, coeffs, 3) // intercept + 2 features
}

func TestLogisticDimensionMismatch(t *testing.T) {
	X, y := twoClusters(20, 3)
	lr := NewLogistic()
	require.NoError(t, lr.Fit(X, y))

	_, err := lr.Predict(mat.NewDense(2, 5, nil))
	assert.Error(t, err)
}

func TestStepwisePicksInformativeTerms(t *testing.T) {
	// y = 3*x1 - 2*x3 + noise; x2 is pure noise.
	rng := rand.New(rand.NewSource(7))
	n := 200
	X := mat.NewDense(n, 3, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x1 := rng.NormFloat64()
		x2 := rng.NormFloat64()
		x3 := rng.NormFloat64()
		X.Set(i, 0, x1)
		X.Set(i, 1, x2)
		X.Set(i, 2, x3)
		y[i] = 3*x1 - 2*x3 + rng.NormFloat64()*0.1
	}

	result, err := Stepwise(context.Background(), X, []string{"x1", "x2", "x3"}, y, nil)
	require.NoError(t, err)

	assert.Contains(t, result.Selected, "x1")
	assert.Contains(t, result.Selected, "x3")
	assert.NotContains(t, result.Selected, "x2")
	assert.InDelta(t, 3.0, result.Coefficients["x1"], 0.1)
	assert.InDelta(t, -2.0, result.Coefficients["x3"], 0.1)

	pred, err := result.Predict(X)
	require.NoError(t, err)
	require.Len(t, pred, n)
	assert.InDelta(t, y[0], pred[0], 0.5)
}

func TestStepwiseTooFewRows(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	_, err := Stepwise(context.Background(), X, []string{"a", "b"}, []float64{1, 2, 3}, nil)
	assert.Error(t, err)
}

func TestKNNSeparatesClusters(t *testing.T) {
	X, y := twoClusters(25, 4)

	cls := NewKNN(3)
	require.NoError(t, cls.Fit(X, y))

	probe := mat.NewDense(2, 2, []float64{0.1, -0.2, 4.2, 3.9})
	pred, err := cls.Predict(probe)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, pred)
}

func TestKNNNotFitted(t *testing.T) {
	_, err := NewKNN(3).Predict(mat.NewDense(1, 2, []float64{0, 0}))
	assert.Error(t, err)
}

func TestTreeSeparatesClusters(t *testing.T) {
	X, y := twoClusters(40, 5)

	tree := NewTree(0.6)
	require.NoError(t, tree.Fit(X, y))

	pred, err := tree.Predict(X)
	require.NoError(t, err)
	correct := 0
	for i := range y {
		if pred[i] == y[i] {
			correct++
		}
	}
	assert.Greater(t, correct, 60)
}

func TestForestSeparatesClusters(t *testing.T) {
	X, y := twoClusters(40, 6)

	forest := NewForest(10, 2)
	require.NoError(t, forest.Fit(X, y))

	pred, err := forest.Predict(X)
	require.NoError(t, err)
	correct := 0
	for i := range y {
		if pred[i] == y[i] {
			correct++
		}
	}
	assert.Greater(t, correct, 60)
}

func TestFitForecastTrendingSeries(t *testing.T) {
	// Noisy random walk with drift
	rng := rand.New(rand.NewSource(8))
	values := make([]float64, 120)
	values[0] = 100
	for i := 1; i < len(values); i++ {
		values[i] = values[i-1] + 0.3 + rng.NormFloat64()*0.5
	}

	result, err := FitForecast(context.Background(), values, 10, DefaultForecastConfig(), nil)
	require.NoError(t, err)
	require.Len(t, result.Forecast, 10)
	assert.NotEmpty(t, result.Order)
	assert.Greater(t, result.ModelsEvaluated, 0)

	// Forecast continues from the end of the series, not from zero
	for _, v := range result.Forecast {
		assert.False(t, math.IsNaN(v))
		assert.Greater(t, v, 100.0)
	}
}

func TestFitForecastRejectsShortSeries(t *testing.T) {
	_, err := FitForecast(context.Background(), []float64{1, 2, 3}, 5, DefaultForecastConfig(), nil)
	assert.Error(t, err)
}

func TestFitForecastRejectsBadHorizon(t *testing.T) {
	values := make([]float64, 50)
	for i := range values {
		values[i] = float64(i)
	}
	_, err := FitForecast(context.Background(), values, 0, DefaultForecastConfig(), nil)
	assert.Error(t, err)
}
