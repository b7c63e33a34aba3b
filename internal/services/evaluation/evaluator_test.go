package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DeclCast/internal/domain/models"
)

func TestEvaluatePerfectPrediction(t *testing.T) {
	e := NewEvaluator()
	yTest := []float64{10, 12, 14, 11}
	m, err := e.Evaluate(yTest, []float64{5, 7, 6, 9}, yTest)
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.MAE)
	assert.Equal(t, 0.0, m.MAPE)
	assert.Equal(t, 0.0, m.MASE)
	assert.InDelta(t, 1.0, m.R2, 1e-12)
	assert.Equal(t, 0.0, m.Bias)
}

func TestEvaluateKnownValues(t *testing.T) {
	e := NewEvaluator()
	pred := []float64{110, 90}
	yTest := []float64{100, 100}
	yTrain := []float64{0, 10, 0}

	m, err := e.Evaluate(pred, yTrain, yTest)
	require.NoError(t, err)
	assert.InDelta(t, 10, m.MAE, 1e-12)
	// 2*10/210 and 2*10/190, averaged, in percent
	assert.InDelta(t, (20.0/210+20.0/190)/2*100, m.MAPE, 1e-9)
	assert.InDelta(t, 1.0, m.MASE, 1e-12)
	assert.Equal(t, 0.0, m.R2)
	assert.InDelta(t, 0.0, m.Bias, 1e-12)
}

func TestEvaluateBiasSign(t *testing.T) {
	m, err := NewEvaluator().Evaluate([]float64{12, 12}, []float64{1, 2}, []float64{10, 10})
	require.NoError(t, err)
	assert.InDelta(t, 20, m.Bias, 1e-12)
}

func TestEvaluateZeroActualSum(t *testing.T) {
	_, err := NewEvaluator().Evaluate([]float64{1, -1}, []float64{1, 2}, []float64{0, 0})
	assert.ErrorIs(t, err, models.ErrDivisionByZeroMetric)
}

func TestEvaluateShortTrainingSeries(t *testing.T) {
	_, err := NewEvaluator().Evaluate([]float64{1}, []float64{1}, []float64{1})
	assert.ErrorIs(t, err, models.ErrDivisionByZeroMetric)
}

func TestEvaluateFlatTrainingSeries(t *testing.T) {
	e := NewEvaluator()
	m, err := e.Evaluate([]float64{3, 3}, []float64{3, 3, 3}, []float64{3, 3})
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.MASE)
	assert.Equal(t, 1.0, m.R2)

	_, err = e.Evaluate([]float64{4, 3}, []float64{3, 3, 3}, []float64{3, 3})
	assert.ErrorIs(t, err, models.ErrDivisionByZeroMetric)
}

func TestEvaluateInputShape(t *testing.T) {
	e := NewEvaluator()
	_, err := e.Evaluate(nil, []float64{1, 2}, nil)
	assert.ErrorIs(t, err, models.ErrEmptyInput)

	_, err = e.Evaluate([]float64{1}, []float64{1, 2}, []float64{1, 2})
	assert.ErrorIs(t, err, models.ErrSchema)
}

func TestSMAPEBothZero(t *testing.T) {
	assert.Equal(t, 0.0, SMAPE([]float64{0, 0}, []float64{0, 0}))
	assert.InDelta(t, 100.0, SMAPE([]float64{0, 2}, []float64{0, 0}), 1e-12)
}
