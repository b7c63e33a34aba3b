package evaluation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"DeclCast/internal/domain/models"
)

// Evaluator computes point-forecast accuracy and bias metrics.
type Evaluator struct{}

// NewEvaluator returns a stateless evaluator.
func NewEvaluator() *Evaluator { return &Evaluator{} }

// Evaluate scores prediction against yTest. yTrain only provides the naive
// one-step scale for MASE.
func (e *Evaluator) Evaluate(prediction, yTrain, yTest []float64) (models.Metrics, error) {
	n := len(yTest)
	if n == 0 {
		return models.Metrics{}, fmt.Errorf("no held-out values: %w", models.ErrEmptyInput)
	}
	if len(prediction) != n {
		return models.Metrics{}, fmt.Errorf("%d predictions for %d actuals: %w", len(prediction), n, models.ErrSchema)
	}
	if hasNaN(prediction) || hasNaN(yTest) || hasNaN(yTrain) {
		return models.Metrics{}, fmt.Errorf("metric inputs contain NaN: %w", models.ErrSchema)
	}

	var m models.Metrics
	m.MAE = floats.Distance(prediction, yTest, 1) / float64(n)
	m.MAPE = SMAPE(prediction, yTest)

	mase, err := MASE(m.MAE, yTrain)
	if err != nil {
		return models.Metrics{}, err
	}
	m.MASE = mase
	m.R2 = R2(prediction, yTest)

	bias, err := Bias(prediction, yTest)
	if err != nil {
		return models.Metrics{}, err
	}
	m.Bias = bias
	return m, nil
}

// SMAPE is the symmetric mean absolute percentage error in percent. A pair
// where both values are zero contributes no error.
func SMAPE(prediction, actual []float64) float64 {
	sum := 0.0
	for i, a := range actual {
		p := prediction[i]
		den := math.Abs(a) + math.Abs(p)
		if den == 0 {
			continue
		}
		sum += 2 * math.Abs(p-a) / den
	}
	return sum / float64(len(actual)) * 100
}

// MASE scales mae by the in-sample mean absolute one-step difference.
func MASE(mae float64, yTrain []float64) (float64, error) {
	if len(yTrain) < 2 {
		return 0, fmt.Errorf("mase needs 2 training points, have %d: %w", len(yTrain), models.ErrDivisionByZeroMetric)
	}
	scale := 0.0
	for i := 1; i < len(yTrain); i++ {
		scale += math.Abs(yTrain[i] - yTrain[i-1])
	}
	scale /= float64(len(yTrain) - 1)
	if scale == 0 {
		if mae == 0 {
			return 0, nil
		}
		return 0, fmt.Errorf("mase: training series has no variation: %w", models.ErrDivisionByZeroMetric)
	}
	return mae / scale, nil
}

// R2 is the coefficient of determination. For a constant actual series it is
// 1 when the prediction is exact and 0 otherwise.
func R2(prediction, actual []float64) float64 {
	mu := stat.Mean(actual, nil)
	ssTot, ssRes := 0.0, 0.0
	for i, a := range actual {
		ssTot += (a - mu) * (a - mu)
		d := a - prediction[i]
		ssRes += d * d
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return stat.RSquaredFrom(prediction, actual, nil)
}

// Bias is the relative total over- or under-forecast in percent.
func Bias(prediction, actual []float64) (float64, error) {
	total := floats.Sum(actual)
	if total == 0 {
		return 0, fmt.Errorf("forecast bias: actuals sum to zero: %w", models.ErrDivisionByZeroMetric)
	}
	return (floats.Sum(prediction) - total) / total * 100, nil
}

func hasNaN(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) {
			return true
		}
	}
	return false
}
