package transform

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestLabelEncodeDeterministic(t *testing.T) {
	codes, enc, err := LabelEncode([]string{"Urban", "Rural", "Urban", "Semiurban"})
	require.NoError(t, err)

	// Levels are sorted: Rural=0, Semiurban=1, Urban=2
	assert.Equal(t, []string{"Rural", "Semiurban", "Urban"}, enc.Levels)
	assert.Equal(t, []float64{2, 0, 2, 1}, codes)

	c, err := enc.Code("Semiurban")
	require.NoError(t, err)
	assert.Equal(t, 1.0, c)

	_, err = enc.Code("Coastal")
	assert.Error(t, err)
}

func TestLabelEncodeRejectsMissing(t *testing.T) {
	_, _, err := LabelEncode([]string{"a", "", "b"})
	assert.Error(t, err)
}

func TestOneHotDropsReference(t *testing.T) {
	names, cols, err := OneHot("area", []string{"Urban", "Rural", "Semiurban", "Urban"})
	require.NoError(t, err)

	// Rural is the sorted-first reference level
	assert.Equal(t, []string{"area_Semiurban", "area_Urban"}, names)
	assert.Equal(t, []float64{0, 0, 1, 0}, cols[0])
	assert.Equal(t, []float64{1, 0, 0, 1}, cols[1])
}

func TestOneHotSingleLevel(t *testing.T) {
	_, _, err := OneHot("x", []string{"a", "a"})
	assert.Error(t, err)
}

func TestStandardScale(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{2, 4, 6, 8})
	scaled, scaler, err := StandardScale(X)
	require.NoError(t, err)
	require.NotNil(t, scaler)

	mean := 0.0
	for i := 0; i < 4; i++ {
		mean += scaled.At(i, 0)
	}
	assert.InDelta(t, 0, mean/4, 1e-9)

	// Applying the fitted scaler to new data reuses training statistics
	out, err := ApplyScale(scaler, mat.NewDense(1, 1, []float64{5}))
	require.NoError(t, err)
	assert.InDelta(t, 0, out.At(0, 0), 1e-9)
}

func TestMinMax(t *testing.T) {
	out := MinMax([]float64{10, 20, 30})
	assert.Equal(t, []float64{0, 0.5, 1}, out)

	assert.Equal(t, []float64{0, 0}, MinMax([]float64{5, 5}))
	assert.Nil(t, MinMax(nil))
}

func TestBoxCoxRecoversLogForLognormal(t *testing.T) {
	// exp(linear trend) is made normal by lambda ~ 0
	values := make([]float64, 50)
	for i := range values {
		values[i] = math.Exp(0.1 * float64(i))
	}

	res, err := BoxCox(values)
	require.NoError(t, err)
	assert.InDelta(t, 0, res.Lambda, 0.15)
}

func TestBoxCoxRoundTrip(t *testing.T) {
	values := []float64{1, 2.5, 4, 8, 16, 32}
	res, err := BoxCox(values)
	require.NoError(t, err)

	back := InvBoxCox(res.Transformed, res.Lambda)
	for i := range values {
		assert.InDelta(t, values[i], back[i], 1e-6)
	}
}

func TestBoxCoxRejectsNonPositive(t *testing.T) {
	_, err := BoxCox([]float64{1, 0, 2})
	assert.Error(t, err)
}

func TestLambdaGridSnapsZero(t *testing.T) {
	grid := lambdaGrid()
	assert.Contains(t, grid, 0.0)
	for _, l := range grid {
		if l != 0 {
			assert.GreaterOrEqual(t, math.Abs(l), boxCoxLambdaGrid.step/2,
				"residual float error survived in candidate %g", l)
		}
	}
}

func TestApplyLambdaZeroIsLog(t *testing.T) {
	out := Apply([]float64{math.E}, 0)
	assert.InDelta(t, 1, out[0], 1e-12)
}
