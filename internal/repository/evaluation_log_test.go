package repository

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DeclCast/internal/domain/models"
	pkgch "DeclCast/pkg/clickhouse"
)

func sampleRecord(runID string, mt models.ModelType) models.EvaluationRecord {
	return models.EvaluationRecord{
		RunID:      runID,
		CustomerID: "C1",
		ModelType:  mt,
		CreatedAt:  time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC),
		Metrics:    models.Metrics{MAE: 1.5, MAPE: 2.25, MASE: 0.5, R2: 0.9, Bias: -1},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVEvaluationLog_AppendsWithSingleHeader(t *testing.T) {
	ctx := context.Background()
	log, err := NewCSVEvaluationLog(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, log.AppendEvaluation(ctx, sampleRecord("r1", models.ModelForest)))
	require.NoError(t, log.AppendEvaluation(ctx, sampleRecord("r2", models.ModelETS)))

	rows := readCSV(t, log.EvaluationPath("C1"))
	require.Len(t, rows, 3)
	assert.Equal(t, evaluationHeader(), rows[0])
	assert.Equal(t, "forest", rows[1][len(rows[1])-1])
	assert.Equal(t, "ets", rows[2][len(rows[2])-1])
	assert.Equal(t, "1.5", rows[1][2])

	got, err := log.ListEvaluations(ctx, "C1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, sampleRecord("r1", models.ModelForest), got[0])
}

func TestCSVEvaluationLog_ConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	log, err := NewCSVEvaluationLog(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, log.AppendEvaluation(ctx, sampleRecord("r", models.ModelForest)))
		}()
	}
	wg.Wait()

	rows := readCSV(t, log.EvaluationPath("C1"))
	assert.Len(t, rows, 21)
}

func TestCSVEvaluationLog_WritePredictions(t *testing.T) {
	dir := t.TempDir()
	log, err := NewCSVEvaluationLog(dir)
	require.NoError(t, err)
	rec := sampleRecord("r1", models.ModelXGBoost)
	d := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := []models.PredictionRow{
		{Date: d, Actual: 10, Prediction: 11},
		{Date: d.AddDate(0, 0, 1), Actual: 12, Prediction: 11.5},
	}
	require.NoError(t, log.WritePredictions(context.Background(), rec, rows))

	path := filepath.Join(dir, "prediction", "C1_xgboost_2024-03-05_14-07-09_prediction.csv")
	assert.Equal(t, path, log.PredictionPath(rec))
	got := readCSV(t, path)
	assert.Equal(t, [][]string{
		{"date", "y_test", "prediction"},
		{"2024-03-01", "10", "11"},
		{"2024-03-02", "12", "11.5"},
	}, got)
}

func TestCSVEvaluationLog_SameSecondRunsKeepBothFiles(t *testing.T) {
	dir := t.TempDir()
	log, err := NewCSVEvaluationLog(dir)
	require.NoError(t, err)
	ctx := context.Background()
	d := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	first := sampleRecord("r1", models.ModelForest)
	second := sampleRecord("r2", models.ModelForest)
	require.NoError(t, log.WritePredictions(ctx, first, []models.PredictionRow{{Date: d, Actual: 1, Prediction: 2}}))
	require.NoError(t, log.WritePredictions(ctx, second, []models.PredictionRow{{Date: d, Actual: 3, Prediction: 4}}))

	assert.Equal(t, [][]string{{"date", "y_test", "prediction"}, {"2024-03-01", "1", "2"}},
		readCSV(t, log.PredictionPath(first)))
	again := filepath.Join(dir, "prediction", "C1_forest_2024-03-05_14-07-09-2_prediction.csv")
	assert.Equal(t, [][]string{{"date", "y_test", "prediction"}, {"2024-03-01", "3", "4"}},
		readCSV(t, again))
}

func TestCSVEvaluationLog_ListWhileAppending(t *testing.T) {
	ctx := context.Background()
	log, err := NewCSVEvaluationLog(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, log.AppendEvaluation(ctx, sampleRecord("r0", models.ModelForest)))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			assert.NoError(t, log.AppendEvaluation(ctx, sampleRecord("r", models.ModelLSTM)))
		}
	}()
	go func() {
		defer wg.Done()
		seen := 0
		for i := 0; i < 50; i++ {
			got, err := log.ListEvaluations(ctx, "C1")
			if !assert.NoError(t, err) {
				return
			}
			assert.GreaterOrEqual(t, len(got), seen)
			seen = len(got)
		}
	}()
	wg.Wait()

	got, err := log.ListEvaluations(ctx, "C1")
	require.NoError(t, err)
	assert.Len(t, got, 51)
}

func TestCSVEvaluationLog_UnknownCustomer(t *testing.T) {
	log, err := NewCSVEvaluationLog(t.TempDir())
	require.NoError(t, err)
	_, err = log.ListEvaluations(context.Background(), "nobody")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCHEvaluationLog_Append(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	log := NewCHEvaluationLog(pkgch.NewClientFromDB(db))

	rec := sampleRecord("r1", models.ModelARIMA)
	mock.ExpectExec("INSERT INTO evaluations").
		WithArgs("r1", "C1", "arima", sqlmock.AnyArg(), 1.5, 2.25, 0.5, 0.9, -1.0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO predictions").
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, log.AppendEvaluation(context.Background(), rec))
	require.NoError(t, log.WritePredictions(context.Background(), rec, []models.PredictionRow{
		{Date: rec.CreatedAt, Actual: 1, Prediction: 2},
		{Date: rec.CreatedAt, Actual: 3, Prediction: 4},
	}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCHEvaluationLog_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	log := NewCHEvaluationLog(pkgch.NewClientFromDB(db))

	created := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"run_id", "model_type", "created_at", "mae", "smape", "mase", "r2", "bias"}).
		AddRow("r1", "ets", created, 1.0, 2.0, 3.0, 0.5, 4.0)
	mock.ExpectQuery("SELECT run_id").WithArgs("C1").WillReturnRows(rows)

	got, err := log.ListEvaluations(context.Background(), "C1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.ModelETS, got[0].ModelType)
	assert.Equal(t, 0.5, got[0].Metrics.R2)
	assert.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectQuery("SELECT run_id").WithArgs("C2").
		WillReturnRows(sqlmock.NewRows([]string{"run_id", "model_type", "created_at", "mae", "smape", "mase", "r2", "bias"}))
	_, err = log.ListEvaluations(context.Background(), "C2")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
