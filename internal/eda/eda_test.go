package eda

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightcli/internal/dataset"
)

func testFrame(t *testing.T) *dataset.Frame {
	t.Helper()
	frame := dataset.NewFrame()
	require.NoError(t, frame.AddNumeric("income", []float64{100, 200, 300, 400, math.NaN()}))
	require.NoError(t, frame.AddNumeric("amount", []float64{10, 21, 29, 41, 50}))
	require.NoError(t, frame.AddCategorical("area", []string{"Urban", "Rural", "Urban", "", "Urban"}))
	return frame
}

func TestSummarizeNumeric(t *testing.T) {
	summaries, err := NewSummarizer(nil).Summarize(context.Background(), testFrame(t))
	require.NoError(t, err)
	require.Len(t, summaries, 3)

	income := summaries[0]
	assert.Equal(t, "income", income.Name)
	assert.Equal(t, "numeric", income.Kind)
	assert.Equal(t, 4, income.Count)
	assert.Equal(t, 1, income.Missing)
	assert.InDelta(t, 0.2, income.MissingRatio, 1e-9)
	assert.InDelta(t, 250, income.Mean, 1e-9)
	assert.Equal(t, 100.0, income.Min)
	assert.Equal(t, 400.0, income.Max)
}

func TestSummarizeCategorical(t *testing.T) {
	summaries, err := NewSummarizer(nil).Summarize(context.Background(), testFrame(t))
	require.NoError(t, err)

	area := summaries[2]
	assert.Equal(t, "categorical", area.Kind)
	assert.Equal(t, 4, area.Count)
	assert.Equal(t, 1, area.Missing)
	assert.Equal(t, 2, area.Levels)
	assert.Equal(t, "Urban", area.Top)
	assert.Equal(t, 3, area.TopSize)
}

func TestSummarizeEmptyFrame(t *testing.T) {
	_, err := NewSummarizer(nil).Summarize(context.Background(), dataset.NewFrame())
	assert.Error(t, err)
}

func TestCorrelation(t *testing.T) {
	frame := dataset.NewFrame()
	require.NoError(t, frame.AddNumeric("x", []float64{1, 2, 3, 4, 5}))
	require.NoError(t, frame.AddNumeric("y", []float64{2, 4, 6, 8, 10}))
	require.NoError(t, frame.AddNumeric("z", []float64{5, 4, 3, 2, 1}))

	m, err := Correlation(frame, "x", "y", "z")
	require.NoError(t, err)

	xy, err := m.At("x", "y")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, xy, 1e-9)

	xz, err := m.At("x", "z")
	require.NoError(t, err)
	assert.InDelta(t, -1.0, xz, 1e-9)
}

func TestCorrelationSkipsMissingPairs(t *testing.T) {
	frame := dataset.NewFrame()
	require.NoError(t, frame.AddNumeric("x", []float64{1, 2, math.NaN(), 4, 5}))
	require.NoError(t, frame.AddNumeric("y", []float64{1, 2, 100, 4, 5}))

	m, err := Correlation(frame, "x", "y")
	require.NoError(t, err)

	xy, err := m.At("x", "y")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, xy, 1e-9)
}

func TestDetectOutliers(t *testing.T) {
	frame := dataset.NewFrame()
	vals := []float64{10, 11, 12, 13, 12, 11, 10, 12, 11, 200}
	require.NoError(t, frame.AddNumeric("amount", vals))

	report, err := DetectOutliers(frame, "amount")
	require.NoError(t, err)
	assert.Equal(t, []int{9}, report.Indices)
	assert.Less(t, report.UpperFence, 200.0)
}

func TestDetectOutliersTooFew(t *testing.T) {
	frame := dataset.NewFrame()
	require.NoError(t, frame.AddNumeric("x", []float64{1, 2, math.NaN()}))
	_, err := DetectOutliers(frame, "x")
	assert.Error(t, err)
}
