package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"DeclCast/internal/domain/models"
	domrepo "DeclCast/internal/domain/repository"
	"DeclCast/internal/domain/service"
	applogger "DeclCast/pkg/logger"
)

// ModelFactory builds an untrained forecaster for a model type.
type ModelFactory interface {
	New(mt models.ModelType) (service.Forecaster, error)
}

// ForecastingUseCase drives the feature pipeline, the model family, the store
// and the evaluation log. Every call works on its own model instance.
type ForecastingUseCase struct {
	features  service.FeatureBuilder
	horizon   service.HorizonBuilder
	factory   ModelFactory
	store     domrepo.ModelStore
	evaluator service.Evaluator
	evalLog   domrepo.EvaluationLog

	events  domrepo.EventPublisher
	metrics domrepo.Metrics
	l       *applogger.Logger

	defaultModel    models.ModelType
	defaultHorizon  int
	defaultTestSize int
	now             func() time.Time
	newRunID        func() string
}

type Option func(*ForecastingUseCase)

func WithLogger(l *applogger.Logger) Option {
	return func(uc *ForecastingUseCase) { uc.l = l }
}

func WithMetrics(m domrepo.Metrics) Option {
	return func(uc *ForecastingUseCase) { uc.metrics = m }
}

func WithEvents(p domrepo.EventPublisher) Option {
	return func(uc *ForecastingUseCase) { uc.events = p }
}

// WithDefaults sets the training horizon and held-out size used when a
// request leaves them unset.
func WithDefaults(horizon, testSize int) Option {
	return func(uc *ForecastingUseCase) {
		if horizon > 0 {
			uc.defaultHorizon = horizon
		}
		if testSize > 0 {
			uc.defaultTestSize = testSize
		}
	}
}

// WithDefaultModel sets the model type used when a request names none.
func WithDefaultModel(mt models.ModelType) Option {
	return func(uc *ForecastingUseCase) {
		if mt != "" {
			uc.defaultModel = mt
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(uc *ForecastingUseCase) { uc.now = now }
}

func NewForecastingUseCase(
	features service.FeatureBuilder,
	horizon service.HorizonBuilder,
	factory ModelFactory,
	store domrepo.ModelStore,
	evaluator service.Evaluator,
	evalLog domrepo.EvaluationLog,
	opts ...Option,
) *ForecastingUseCase {
	uc := &ForecastingUseCase{
		features:        features,
		horizon:         horizon,
		factory:         factory,
		store:           store,
		evaluator:       evaluator,
		evalLog:         evalLog,
		l:               applogger.NewNop(),
		defaultModel:    models.DefaultModelType,
		defaultHorizon:  30,
		defaultTestSize: 90,
		now:             time.Now,
		newRunID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

type TrainParams struct {
	CustomerID string
	ModelType  string
	Horizon    int
	Records    []models.RawRecord
}

type TrainResult struct {
	ModelType models.ModelType
	Rows      int
	Duration  time.Duration
}

// Train fits a fresh model on the records and replaces the stored one.
// Client cancellation is ignored once training starts.
func (uc *ForecastingUseCase) Train(ctx context.Context, p TrainParams) (*TrainResult, error) {
	ctx = context.WithoutCancel(ctx)
	mt, err := uc.modelType(p.ModelType)
	if err != nil {
		uc.recordError("unknown_model")
		return nil, err
	}
	l := uc.l.With(applogger.Customer(p.CustomerID), applogger.Model(mt.String()))
	if p.Horizon <= 0 {
		p.Horizon = uc.defaultHorizon
	}

	table, err := uc.features.Build(p.Records)
	if err != nil {
		l.Warn("feature build failed", applogger.Error(err))
		uc.recordError("features")
		return nil, err
	}
	hint, err := uc.horizon.Build(p.Horizon)
	if err != nil {
		uc.recordError("horizon")
		return nil, err
	}
	m, err := uc.factory.New(mt)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	err = m.Train(ctx, table.Frame, table.Target, hint.Dates)
	elapsed := time.Since(start)
	if uc.metrics != nil {
		uc.metrics.RecordTraining(mt.String(), elapsed.Seconds(), err)
	}
	if err != nil {
		l.Error("training failed", applogger.Int("rows", table.Len()), applogger.Error(err))
		return nil, fmt.Errorf("train %s: %w", mt, err)
	}
	if err := uc.store.Save(ctx, p.CustomerID, m); err != nil {
		l.Error("save model failed", applogger.Error(err))
		uc.recordError("store")
		return nil, err
	}
	l.Info("model trained",
		applogger.Int("rows", table.Len()),
		applogger.Int("horizon", p.Horizon),
		applogger.Duration("duration_ms", elapsed),
	)
	uc.publish(ctx, models.Event{
		Type:       models.EventModelTrained,
		CustomerID: p.CustomerID,
		ModelType:  mt,
		OccurredAt: uc.now().UTC(),
		Payload: map[string]interface{}{
			"rows":        table.Len(),
			"duration_ms": elapsed.Milliseconds(),
		},
	})
	return &TrainResult{ModelType: mt, Rows: table.Len(), Duration: elapsed}, nil
}

type ForecastParams struct {
	CustomerID string
	ModelType  string
	Horizon    int
}

type ForecastPoint struct {
	Date  time.Time
	Value float64
}

// Forecast loads the stored model and predicts horizon days starting tomorrow.
func (uc *ForecastingUseCase) Forecast(ctx context.Context, p ForecastParams) ([]ForecastPoint, error) {
	mt, err := uc.modelType(p.ModelType)
	if err != nil {
		uc.recordError("unknown_model")
		return nil, err
	}
	l := uc.l.With(applogger.Customer(p.CustomerID), applogger.Model(mt.String()))

	x, err := uc.horizon.Build(p.Horizon)
	if err != nil {
		uc.recordError("horizon")
		return nil, err
	}
	m, err := uc.store.Load(ctx, p.CustomerID, mt)
	if err != nil {
		l.Warn("load model failed", applogger.Error(err))
		uc.recordError("store")
		return nil, err
	}
	preds, err := m.Forecast(ctx, x)
	if uc.metrics != nil {
		uc.metrics.RecordForecast(mt.String(), len(preds), err)
	}
	if err != nil {
		l.Error("forecast failed", applogger.Int("horizon", p.Horizon), applogger.Error(err))
		return nil, fmt.Errorf("forecast %s: %w", mt, err)
	}
	out := make([]ForecastPoint, len(preds))
	for i, v := range preds {
		out[i] = ForecastPoint{Date: x.Dates[i], Value: v}
	}
	l.Debug("forecast served", applogger.Int("horizon", len(out)))
	return out, nil
}

type EvaluateParams struct {
	CustomerID string
	ModelType  string
	TestSize   int
	Records    []models.RawRecord
}

type EvaluateResult struct {
	Record      models.EvaluationRecord
	Predictions []models.PredictionRow
}

// Evaluate trains a fresh model on all but the last TestSize rows, scores it
// on the held-out tail and logs both the predictions and the metric row. The
// stored model is left untouched.
func (uc *ForecastingUseCase) Evaluate(ctx context.Context, p EvaluateParams) (*EvaluateResult, error) {
	ctx = context.WithoutCancel(ctx)
	mt, err := uc.modelType(p.ModelType)
	if err != nil {
		uc.recordError("unknown_model")
		return nil, err
	}
	l := uc.l.With(applogger.Customer(p.CustomerID), applogger.Model(mt.String()))
	if p.TestSize <= 0 {
		p.TestSize = uc.defaultTestSize
	}

	table, err := uc.features.Build(p.Records)
	if err != nil {
		uc.recordError("features")
		return nil, err
	}
	train, test, err := table.Split(p.TestSize)
	if err != nil {
		uc.recordError("split")
		return nil, err
	}
	m, err := uc.factory.New(mt)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	err = m.Train(ctx, train.Frame, train.Target, test.Dates)
	if uc.metrics != nil {
		uc.metrics.RecordTraining(mt.String(), time.Since(start).Seconds(), err)
	}
	if err != nil {
		l.Error("evaluation training failed", applogger.Int("rows", train.Len()), applogger.Error(err))
		return nil, fmt.Errorf("train %s: %w", mt, err)
	}
	preds, err := m.Forecast(ctx, test.Frame)
	if err != nil {
		return nil, fmt.Errorf("forecast %s: %w", mt, err)
	}
	metrics, err := uc.evaluator.Evaluate(preds, train.Target, test.Target)
	if err != nil {
		l.Warn("metrics failed", applogger.Error(err))
		uc.recordError("metrics")
		return nil, err
	}

	rec := models.EvaluationRecord{
		RunID:      uc.newRunID(),
		CustomerID: p.CustomerID,
		ModelType:  mt,
		CreatedAt:  uc.now().UTC().Truncate(time.Second),
		Metrics:    metrics,
	}
	rows := make([]models.PredictionRow, len(preds))
	for i := range preds {
		rows[i] = models.PredictionRow{Date: test.Dates[i], Actual: test.Target[i], Prediction: preds[i]}
	}
	if err := uc.evalLog.WritePredictions(ctx, rec, rows); err != nil {
		uc.recordError("evaluation_log")
		return nil, fmt.Errorf("write predictions: %w", err)
	}
	if err := uc.evalLog.AppendEvaluation(ctx, rec); err != nil {
		uc.recordError("evaluation_log")
		return nil, fmt.Errorf("append evaluation: %w", err)
	}
	if uc.metrics != nil {
		uc.metrics.RecordEvaluation(mt.String(), metrics.Map())
	}
	l.Info("model evaluated",
		applogger.String("run_id", rec.RunID),
		applogger.Int("train_rows", train.Len()),
		applogger.Int("test_rows", test.Len()),
		applogger.Float64("mae", metrics.MAE),
		applogger.Float64("mase", metrics.MASE),
	)
	uc.publish(ctx, models.Event{
		Type:       models.EventModelEvaluated,
		CustomerID: p.CustomerID,
		ModelType:  mt,
		OccurredAt: rec.CreatedAt,
		Payload: map[string]interface{}{
			"run_id":  rec.RunID,
			"metrics": metrics,
		},
	})
	return &EvaluateResult{Record: rec, Predictions: rows}, nil
}

// ListEvaluations returns a customer's evaluation history in log order.
func (uc *ForecastingUseCase) ListEvaluations(ctx context.Context, customerID string) ([]models.EvaluationRecord, error) {
	return uc.evalLog.ListEvaluations(ctx, customerID)
}

func (uc *ForecastingUseCase) modelType(s string) (models.ModelType, error) {
	if strings.TrimSpace(s) == "" {
		return uc.defaultModel, nil
	}
	return models.ParseModelType(s)
}

func (uc *ForecastingUseCase) publish(ctx context.Context, ev models.Event) {
	if uc.events == nil {
		return
	}
	if err := uc.events.Publish(ctx, ev); err != nil {
		uc.l.Warn("publish event failed",
			applogger.String("type", ev.Type),
			applogger.Customer(ev.CustomerID),
			applogger.Error(err),
		)
		uc.recordError("events")
	}
}

func (uc *ForecastingUseCase) recordError(kind string) {
	if uc.metrics != nil {
		uc.metrics.RecordError(kind)
	}
}
