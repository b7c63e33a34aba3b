package service

import (
	"context"
	"time"

	"DeclCast/internal/domain/models"
)

// FeatureBuilder turns raw declarations into the supervised feature table.
type FeatureBuilder interface {
	Build(records []models.RawRecord) (models.FeatureTable, error)
}

// HorizonBuilder produces the future feature skeleton for a forecast request.
type HorizonBuilder interface {
	Build(days int) (models.Frame, error)
}

// Forecaster is the contract shared by every forecasting algorithm.
//
// Train receives the feature matrix, the aligned target and an optional
// horizon hint (the future date index). Variants ignore what they do not use:
// tree ensembles ignore dates and the hint, statistical models use only the
// target indexed by x.Dates, recurrent models require the hint.
type Forecaster interface {
	Type() models.ModelType
	Train(ctx context.Context, x models.Frame, y []float64, horizon []time.Time) error
	Forecast(ctx context.Context, x models.Frame) ([]float64, error)
	MarshalState() ([]byte, error)
	UnmarshalState(data []byte) error
}

// Evaluator scores predictions against held-out actuals.
type Evaluator interface {
	Evaluate(prediction, yTrain, yTest []float64) (models.Metrics, error)
}
