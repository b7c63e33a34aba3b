package forecasting

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStandardScalerUsesPopulationDeviation(t *testing.T) {
	s := standardScaler([]float64{1, 2, math.NaN(), 3, 4})
	assert.InDelta(t, 2.5, s.Center, 1e-12)
	assert.InDelta(t, math.Sqrt(1.25), s.Scale, 1e-12)
	assert.InDelta(t, 0, s.apply(2.5), 1e-12)
	assert.InDelta(t, 4, s.invert(s.apply(4)), 1e-12)
}

func TestStandardScalerConstantSeries(t *testing.T) {
	s := standardScaler([]float64{5, 5, 5})
	assert.Equal(t, scaler{Center: 5, Scale: 1}, s)
	assert.Equal(t, scaler{Scale: 1}, standardScaler(nil))
}

func TestRobustScalerInterpolatesQuartiles(t *testing.T) {
	s := robustScaler([]float64{5, 1, 4, 2, 3})
	assert.InDelta(t, 3, s.Center, 1e-12)
	assert.InDelta(t, 2, s.Scale, 1e-12)

	// quartiles of 1..4 fall between order statistics: 1.75 and 3.25.
	s = robustScaler([]float64{4, 3, 2, 1})
	assert.InDelta(t, 2.5, s.Center, 1e-12)
	assert.InDelta(t, 1.5, s.Scale, 1e-12)
}

func TestMedianLeavesInputUntouched(t *testing.T) {
	v := []float64{9, 1, 4, 2}
	assert.InDelta(t, 3, median(v), 1e-12)
	assert.Equal(t, []float64{9, 1, 4, 2}, v)
	assert.InDelta(t, 4, mean(v), 1e-12)
	assert.Equal(t, 0.0, mean(nil))
}
