package repository

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"DeclCast/internal/domain/models"
	"DeclCast/pkg/util"
)

const (
	predictionStampLayout = "2006-01-02_15-04-05"
	maxPredictionSuffix   = 1000
)

// CSVEvaluationLog writes evaluation rows to per-customer CSV files and the
// per-run predictions to timestamped files under the data directory.
type CSVEvaluationLog struct {
	evalDir string
	predDir string
	mu      sync.Mutex
}

func NewCSVEvaluationLog(dataDir string) (*CSVEvaluationLog, error) {
	s := &CSVEvaluationLog{
		evalDir: filepath.Join(dataDir, "evaluation"),
		predDir: filepath.Join(dataDir, "prediction"),
	}
	for _, d := range []string{s.evalDir, s.predDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", d, err)
		}
	}
	return s, nil
}

func evaluationHeader() []string {
	h := []string{"run_id", "created_at"}
	h = append(h, models.MetricNames()...)
	return append(h, "modeltype")
}

func checkFileKey(customerID string) error {
	if customerID == "" || strings.ContainsAny(customerID, `/\`) || strings.Contains(customerID, "..") {
		return fmt.Errorf("invalid customer id %q: %w", customerID, models.ErrSchema)
	}
	return nil
}

// EvaluationPath is the cumulative metrics file of a customer.
func (s *CSVEvaluationLog) EvaluationPath(customerID string) string {
	return filepath.Join(s.evalDir, customerID+"_evaluation.csv")
}

// PredictionPath is the detail file of one evaluation run.
func (s *CSVEvaluationLog) PredictionPath(rec models.EvaluationRecord) string {
	return s.predictionPath(rec, 1)
}

// predictionPath suffixes the stamp with -n for the n-th run of a customer
// and model within the same second.
func (s *CSVEvaluationLog) predictionPath(rec models.EvaluationRecord, n int) string {
	stamp := rec.CreatedAt.Format(predictionStampLayout)
	if n > 1 {
		stamp += "-" + strconv.Itoa(n)
	}
	name := fmt.Sprintf("%s_%s_%s_prediction.csv", rec.CustomerID, rec.ModelType, stamp)
	return filepath.Join(s.predDir, name)
}

func (s *CSVEvaluationLog) createPredictionFile(rec models.EvaluationRecord) (*os.File, error) {
	for n := 1; n <= maxPredictionSuffix; n++ {
		f, err := os.OpenFile(s.predictionPath(rec, n), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%d prediction files already stamped %s", maxPredictionSuffix, rec.CreatedAt.Format(predictionStampLayout))
}

func (s *CSVEvaluationLog) AppendEvaluation(ctx context.Context, rec models.EvaluationRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkFileKey(rec.CustomerID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.EvaluationPath(rec.CustomerID)
	f, err := os.OpenFile(p, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open evaluation log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat evaluation log: %w", err)
	}
	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(evaluationHeader()); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	row := []string{rec.RunID, rec.CreatedAt.UTC().Format(time.RFC3339)}
	for _, v := range rec.Metrics.Values() {
		row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
	}
	row = append(row, rec.ModelType.String())
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write evaluation row: %w", err)
	}
	w.Flush()
	return w.Error()
}

func (s *CSVEvaluationLog) WritePredictions(ctx context.Context, rec models.EvaluationRecord, rows []models.PredictionRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkFileKey(rec.CustomerID); err != nil {
		return err
	}
	f, err := s.createPredictionFile(rec)
	if err != nil {
		return fmt.Errorf("create prediction file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"date", "y_test", "prediction"}); err != nil {
		return err
	}
	for _, r := range rows {
		line := []string{
			util.FormatDate(r.Date),
			strconv.FormatFloat(r.Actual, 'g', -1, 64),
			strconv.FormatFloat(r.Prediction, 'g', -1, 64),
		}
		if err := w.Write(line); err != nil {
			return fmt.Errorf("write prediction row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func (s *CSVEvaluationLog) ListEvaluations(ctx context.Context, customerID string) ([]models.EvaluationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkFileKey(customerID); err != nil {
		return nil, err
	}
	// Appends hold the same lock, so the snapshot never ends in a partial row.
	s.mu.Lock()
	b, err := os.ReadFile(s.EvaluationPath(customerID))
	s.mu.Unlock()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("evaluations of %s: %w", customerID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("read evaluation log: %w", err)
	}

	r := csv.NewReader(bytes.NewReader(b))
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []models.EvaluationRecord{}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[h] = i
	}
	out := make([]models.EvaluationRecord, 0, 16)
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read evaluation row: %w", err)
		}
		rec, err := parseEvaluationRow(customerID, col, row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseEvaluationRow(customerID string, col map[string]int, row []string) (models.EvaluationRecord, error) {
	get := func(name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}
	rec := models.EvaluationRecord{
		RunID:      get("run_id"),
		CustomerID: customerID,
		ModelType:  models.ModelType(get("modeltype")),
	}
	if ts := get("created_at"); ts != "" {
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return rec, fmt.Errorf("created_at %q: %w", ts, models.ErrSchema)
		}
		rec.CreatedAt = t
	}
	vals := make([]float64, 0, 5)
	for _, name := range models.MetricNames() {
		v, err := strconv.ParseFloat(get(name), 64)
		if err != nil {
			return rec, fmt.Errorf("metric %q: %w", name, models.ErrSchema)
		}
		vals = append(vals, v)
	}
	rec.Metrics = models.Metrics{MAE: vals[0], MAPE: vals[1], MASE: vals[2], R2: vals[3], Bias: vals[4]}
	return rec, nil
}

func (s *CSVEvaluationLog) Close() error { return nil }
