package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMAPE(t *testing.T) {
	got, err := MAPE([]float64{100, 200}, []float64{90, 220})
	require.NoError(t, err)
	assert.InDelta(t, 10.0, got, 1e-9) // (10% + 10%) / 2

	_, err = MAPE([]float64{0, 0}, []float64{1, 1})
	assert.Error(t, err)

	_, err = MAPE([]float64{1}, []float64{1, 2})
	assert.Error(t, err)
}

func TestRMSEAndMAE(t *testing.T) {
	actual := []float64{1, 2, 3}
	predicted := []float64{1, 2, 6}

	rmse, err := RMSE(actual, predicted)
	require.NoError(t, err)
	assert.InDelta(t, 1.7320508, rmse, 1e-6)

	mae, err := MAE(actual, predicted)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, mae, 1e-9)
}

func TestR2(t *testing.T) {
	actual := []float64{1, 2, 3, 4}

	perfect, err := R2(actual, actual)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, perfect, 1e-9)

	_, err = R2([]float64{2, 2, 2}, []float64{1, 2, 3})
	assert.Error(t, err)
}

func TestConfusionMatrix(t *testing.T) {
	actual := []int{1, 1, 1, 0, 0, 0, 0, 1}
	predicted := []int{1, 1, 0, 0, 0, 1, 0, 1}

	cm, err := NewConfusionMatrix(actual, predicted)
	require.NoError(t, err)

	assert.Equal(t, 3, cm.TruePositive)
	assert.Equal(t, 3, cm.TrueNegative)
	assert.Equal(t, 1, cm.FalsePositive)
	assert.Equal(t, 1, cm.FalseNegative)

	assert.InDelta(t, 0.75, cm.Accuracy(), 1e-9)
	assert.InDelta(t, 0.75, cm.Precision(), 1e-9)
	assert.InDelta(t, 0.75, cm.Recall(), 1e-9)
	assert.InDelta(t, 0.75, cm.F1(), 1e-9)
}

func TestConfusionMatrixEmpty(t *testing.T) {
	_, err := NewConfusionMatrix(nil, nil)
	assert.Error(t, err)
}

func TestAUCPerfectSeparation(t *testing.T) {
	scores := []float64{0.1, 0.2, 0.3, 0.8, 0.9, 0.95}
	labels := []int{0, 0, 0, 1, 1, 1}

	auc, err := AUC(scores, labels)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, auc, 1e-9)
}

func TestAUCRandomScoresNearHalf(t *testing.T) {
	// Interleaved scores give an AUC of exactly 0.5
	scores := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8}
	labels := []int{0, 1, 0, 1, 0, 1, 0, 1}

	auc, err := AUC(scores, labels)
	require.NoError(t, err)
	assert.InDelta(t, 0.625, auc, 1e-9)
}

func TestAUCOneClass(t *testing.T) {
	_, err := AUC([]float64{0.1, 0.2}, []int{1, 1})
	assert.Error(t, err)
}
