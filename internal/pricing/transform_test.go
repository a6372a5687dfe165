package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMovingAverageFillsWindow(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	got := movingAverage(values, 3)

	// raw until the window fills, then averaged
	assert.Equal(t, []float64{1, 2, 2, 3, 4}, got)
}

func TestMovingAverageShortSeriesEqualsRaw(t *testing.T) {
	values := make([]float64, smaWindow-1)
	for i := range values {
		values[i] = float64(i) * 1.5
	}

	got := movingAverage(values, smaWindow)
	require.Len(t, got, len(values))
	for i := range values {
		assert.Equal(t, values[i], got[i], "index %d", i)
	}
}

func TestMovingAverageAtWindowBoundary(t *testing.T) {
	values := make([]float64, smaWindow)
	var sum float64
	for i := range values {
		values[i] = float64(i + 1)
		sum += values[i]
	}

	got := movingAverage(values, smaWindow)
	assert.Equal(t, values[smaWindow-2], got[smaWindow-2])
	assert.InDelta(t, sum/float64(smaWindow), got[smaWindow-1], 1e-9)
}

func TestNormalizeRebasesToBase(t *testing.T) {
	got := normalize([]float64{2, 4, 6}, indexBase)
	assert.Equal(t, []float64{1000, 2000, 3000}, got)
}

func TestNormalizeZeroAnchorPassesThrough(t *testing.T) {
	got := normalize([]float64{0, 4, 6}, indexBase)
	assert.Equal(t, []float64{0, 4, 6}, got)

	assert.Empty(t, normalize(nil, indexBase))
}

func TestScaleDown(t *testing.T) {
	got := scaleDown([]float64{2.5e9, 1e6}, equityScale)
	assert.Equal(t, []float64{2500, 1}, got)
}
