package usecase

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DeclCast/internal/domain/models"
	"DeclCast/internal/repository"
	"DeclCast/internal/services/evaluation"
	"DeclCast/internal/services/features"
	"DeclCast/internal/services/forecasting"
	"DeclCast/pkg/cache"
)

var (
	firstDay = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	today    = time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)
)

type recordedMetrics struct {
	mu          sync.Mutex
	trainings   int
	forecasts   int
	evaluations []map[string]float64
	errors      []string
}

func (r *recordedMetrics) RecordTraining(string, float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trainings++
}

func (r *recordedMetrics) RecordForecast(string, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forecasts++
}

func (r *recordedMetrics) RecordEvaluation(_ string, m map[string]float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evaluations = append(r.evaluations, m)
}

func (r *recordedMetrics) RecordError(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, kind)
}

type recordedEvents struct {
	mu     sync.Mutex
	events []models.Event
	err    error
}

func (p *recordedEvents) Publish(_ context.Context, ev models.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordedEvents) Close() error { return nil }

type fixture struct {
	uc      *ForecastingUseCase
	metrics *recordedMetrics
	events  *recordedEvents
	evalLog *repository.CSVEvaluationLog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := cache.NewMemoryCache()
	t.Cleanup(func() { mem.Close() })
	factory := forecasting.NewFactory(forecasting.WithSettings(forecasting.Settings{ForestTrees: 15, RecurrentSteps: 20}))
	store := repository.NewBlobModelStore(repository.NewCacheBlobStore(mem, time.Second), factory)
	evalLog, err := repository.NewCSVEvaluationLog(t.TempDir())
	require.NoError(t, err)

	f := &fixture{metrics: &recordedMetrics{}, events: &recordedEvents{}, evalLog: evalLog}
	f.uc = NewForecastingUseCase(
		features.NewBuilder(),
		features.NewHorizon(features.WithClock(func() time.Time { return today })),
		factory,
		store,
		evaluation.NewEvaluator(),
		evalLog,
		WithMetrics(f.metrics),
		WithEvents(f.events),
		WithDefaults(10, 20),
		WithClock(func() time.Time { return today }),
	)
	return f
}

func records(days int) []models.RawRecord {
	out := make([]models.RawRecord, 0, days)
	for i := 0; i < days; i++ {
		v := 1000 + 150*math.Sin(2*math.Pi*float64(i)/7) + float64(i)
		out = append(out, models.RawRecord{Assessment: &models.Assessment{
			Amount:  decimal.NewNullDecimal(decimal.NewFromFloat(v).Round(2)),
			Created: firstDay.AddDate(0, 0, i).Format("2006-01-02"),
		}})
	}
	return out
}

func TestTrainThenForecast(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.uc.Train(ctx, TrainParams{CustomerID: "C1", ModelType: "forest", Records: records(120)})
	require.NoError(t, err)
	assert.Equal(t, models.ModelForest, res.ModelType)
	assert.Equal(t, 114, res.Rows)

	points, err := f.uc.Forecast(ctx, ForecastParams{CustomerID: "C1", ModelType: "forest", Horizon: 5})
	require.NoError(t, err)
	require.Len(t, points, 5)
	assert.Equal(t, time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), points[0].Date)
	for i, p := range points {
		assert.False(t, math.IsNaN(p.Value), "point %d", i)
		if i > 0 {
			assert.True(t, p.Date.After(points[i-1].Date))
		}
	}

	assert.Equal(t, 1, f.metrics.trainings)
	assert.Equal(t, 1, f.metrics.forecasts)
	require.Len(t, f.events.events, 1)
	assert.Equal(t, models.EventModelTrained, f.events.events[0].Type)
	assert.Equal(t, 114, f.events.events[0].Payload["rows"])
}

func TestTrainDefaultsToForest(t *testing.T) {
	f := newFixture(t)
	res, err := f.uc.Train(context.Background(), TrainParams{CustomerID: "C1", Records: records(40)})
	require.NoError(t, err)
	assert.Equal(t, models.ModelForest, res.ModelType)
}

func TestForecastWithoutModel(t *testing.T) {
	f := newFixture(t)
	_, err := f.uc.Forecast(context.Background(), ForecastParams{CustomerID: "C9", ModelType: "ets", Horizon: 3})
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Contains(t, f.metrics.errors, "store")
}

func TestForecastInvalidHorizon(t *testing.T) {
	f := newFixture(t)
	_, err := f.uc.Forecast(context.Background(), ForecastParams{CustomerID: "C1", Horizon: 0})
	assert.ErrorIs(t, err, models.ErrInvalidHorizon)
}

func TestUnknownModelType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.uc.Train(ctx, TrainParams{CustomerID: "C1", ModelType: "prophet", Records: records(40)})
	assert.ErrorIs(t, err, models.ErrUnknownModelType)
	_, err = f.uc.Evaluate(ctx, EvaluateParams{CustomerID: "C1", ModelType: "prophet", Records: records(40)})
	assert.ErrorIs(t, err, models.ErrUnknownModelType)
}

func TestTrainSchemaError(t *testing.T) {
	f := newFixture(t)
	recs := records(20)
	recs[3].Assessment = nil
	_, err := f.uc.Train(context.Background(), TrainParams{CustomerID: "C1", Records: recs})
	assert.ErrorIs(t, err, models.ErrSchema)
}

func TestTrainIgnoresCancellation(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.uc.Train(ctx, TrainParams{CustomerID: "C1", ModelType: "xgboost", Records: records(60)})
	require.NoError(t, err)
}

func TestEvaluateWritesLogs(t *testing.T) {
	f := newFixture(t)
	f.uc.newRunID = func() string { return "run-1" }
	ctx := context.Background()

	res, err := f.uc.Evaluate(ctx, EvaluateParams{CustomerID: "C1", ModelType: "ets", TestSize: 14, Records: records(100)})
	require.NoError(t, err)
	assert.Equal(t, "run-1", res.Record.RunID)
	assert.Equal(t, models.ModelETS, res.Record.ModelType)
	require.Len(t, res.Predictions, 14)
	assert.Equal(t, time.Date(2024, 4, 9, 0, 0, 0, 0, time.UTC), res.Predictions[13].Date)
	assert.Less(t, res.Record.Metrics.MAPE, 50.0)

	history, err := f.uc.ListEvaluations(ctx, "C1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, res.Record, history[0])

	require.Len(t, f.metrics.evaluations, 1)
	assert.Equal(t, res.Record.Metrics.MAE, f.metrics.evaluations[0][models.MetricMAE])
	require.Len(t, f.events.events, 1)
	assert.Equal(t, models.EventModelEvaluated, f.events.events[0].Type)

	_, err = f.uc.Forecast(ctx, ForecastParams{CustomerID: "C1", ModelType: "ets", Horizon: 3})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestEvaluateDefaultTestSize(t *testing.T) {
	f := newFixture(t)
	res, err := f.uc.Evaluate(context.Background(), EvaluateParams{CustomerID: "C1", ModelType: "forest", Records: records(60)})
	require.NoError(t, err)
	assert.Len(t, res.Predictions, 20)
}

func TestEvaluateTooFewRows(t *testing.T) {
	f := newFixture(t)
	_, err := f.uc.Evaluate(context.Background(), EvaluateParams{CustomerID: "C1", ModelType: "forest", TestSize: 50, Records: records(30)})
	assert.ErrorIs(t, err, models.ErrEmptyInput)
}

func TestEvaluateRecurrentUsesHeldOutHorizon(t *testing.T) {
	f := newFixture(t)
	res, err := f.uc.Evaluate(context.Background(), EvaluateParams{CustomerID: "C1", ModelType: "lstm", TestSize: 7, Records: records(80)})
	require.NoError(t, err)
	assert.Len(t, res.Predictions, 7)
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("broker down")
	_, err := f.uc.Train(context.Background(), TrainParams{CustomerID: "C1", Records: records(40)})
	require.NoError(t, err)
	assert.Contains(t, f.metrics.errors, "events")
}
