package forecast

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitOLS_RecoversLine(t *testing.T) {
	var y []float64
	var x [][]float64
	for i := 0; i < 6; i++ {
		v := float64(i)
		x = append(x, []float64{v})
		y = append(y, 2+3*v)
	}

	beta, err := FitOLS(y, x)
	require.NoError(t, err)
	require.Len(t, beta, 2)
	assert.InDelta(t, 2, beta[0], 1e-9)
	assert.InDelta(t, 3, beta[1], 1e-9)
	assert.InDelta(t, 32, Predict(beta, []float64{10}), 1e-9)
}

func TestFitOLS_TwoVariables(t *testing.T) {
	x := [][]float64{{1, 0}, {0, 1}, {1, 1}, {2, 1}, {3, 5}}
	y := make([]float64, len(x))
	for i, row := range x {
		y[i] = -1 + 0.5*row[0] + 4*row[1]
	}

	beta, err := FitOLS(y, x)
	require.NoError(t, err)
	assert.InDelta(t, -1, beta[0], 1e-9)
	assert.InDelta(t, 0.5, beta[1], 1e-9)
	assert.InDelta(t, 4, beta[2], 1e-9)
}

func TestFitOLS_BiasOnlyIsMean(t *testing.T) {
	beta, err := FitOLS([]float64{2, 4, 9}, [][]float64{{}, {}, {}})
	require.NoError(t, err)
	assert.Equal(t, []float64{5}, roundAll(beta))
}

func TestFitOLS_InsufficientSamples(t *testing.T) {
	_, err := FitOLS([]float64{1}, [][]float64{{1}})
	assert.ErrorIs(t, err, ErrInsufficientSamples)

	_, err = FitOLS(nil, nil)
	assert.ErrorIs(t, err, ErrInsufficientSamples)
}

func TestFitOLS_Singular(t *testing.T) {
	// A regressor that never moves off zero carries no information.
	_, err := FitOLS([]float64{1, 2, 3}, [][]float64{{0}, {0}, {0}})
	assert.ErrorIs(t, err, ErrSingular)
}

func TestFitOLS_ShapeMismatch(t *testing.T) {
	_, err := FitOLS([]float64{1, 2}, [][]float64{{1}})
	assert.Error(t, err)

	_, err = FitOLS([]float64{1, 2, 3}, [][]float64{{1}, {2, 3}, {4}})
	assert.Error(t, err)
}

func TestPredict_WidthMismatch(t *testing.T) {
	assert.True(t, math.IsNaN(Predict([]float64{1, 2}, []float64{1, 2})))
}

func roundAll(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = math.Round(v*1e9) / 1e9
	}
	return out
}
