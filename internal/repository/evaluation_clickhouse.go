package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"DeclCast/internal/domain/models"
	pkgch "DeclCast/pkg/clickhouse"
	applogger "DeclCast/pkg/logger"
)

// EvaluationSchema creates the ClickHouse tables used by CHEvaluationLog.
var EvaluationSchema = []string{
	`CREATE TABLE IF NOT EXISTS evaluations (
        run_id String,
        customer_id String,
        model_type LowCardinality(String),
        created_at DateTime64(3, 'UTC'),
        mae Float64,
        smape Float64,
        mase Float64,
        r2 Float64,
        bias Float64
    ) ENGINE = MergeTree ORDER BY (customer_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS predictions (
        run_id String,
        customer_id String,
        model_type LowCardinality(String),
        date Date,
        y_test Float64,
        prediction Float64
    ) ENGINE = MergeTree ORDER BY (customer_id, run_id, date)`,
}

// CHEvaluationLog implements EvaluationLog backed by ClickHouse. Rows are only
// ever inserted.
type CHEvaluationLog struct {
	ch *pkgch.Client
	db *sql.DB
	l  *applogger.Logger
}

// NewCHEvaluationLog takes ownership of ch; Close closes it.
func NewCHEvaluationLog(ch *pkgch.Client) *CHEvaluationLog {
	return &CHEvaluationLog{ch: ch, db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHEvaluationLog) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHEvaluationLog) AppendEvaluation(ctx context.Context, rec models.EvaluationRecord) error {
	const q = `INSERT INTO evaluations (run_id, customer_id, model_type, created_at, mae, smape, mase, r2, bias)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	m := rec.Metrics
	_, err := s.db.ExecContext(ctx, q,
		rec.RunID,
		rec.CustomerID,
		rec.ModelType.String(),
		rec.CreatedAt.UTC(),
		m.MAE, m.MAPE, m.MASE, m.R2, m.Bias,
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse append_evaluation error",
				applogger.Customer(rec.CustomerID),
				applogger.Model(rec.ModelType.String()),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("insert evaluation: %w", err)
	}
	return nil
}

func (s *CHEvaluationLog) WritePredictions(ctx context.Context, rec models.EvaluationRecord, rows []models.PredictionRow) error {
	if len(rows) == 0 {
		return nil
	}
	const chunkSize = 2000
	for start := 0; start < len(rows); start += chunkSize {
		end := start + chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*6)
		for _, r := range rows[start:end] {
			values = append(values, "(?, ?, ?, ?, ?, ?)")
			args = append(args, rec.RunID, rec.CustomerID, rec.ModelType.String(), r.Date, r.Actual, r.Prediction)
		}
		q := fmt.Sprintf("INSERT INTO predictions (run_id, customer_id, model_type, date, y_test, prediction) VALUES %s", strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse write_predictions error",
					applogger.Customer(rec.CustomerID),
					applogger.String("run_id", rec.RunID),
					applogger.Int("rows", end-start),
					applogger.Error(err),
				)
			}
			return fmt.Errorf("insert predictions: %w", err)
		}
	}
	return nil
}

func (s *CHEvaluationLog) ListEvaluations(ctx context.Context, customerID string) ([]models.EvaluationRecord, error) {
	start := time.Now()
	const q = `
        SELECT run_id, model_type, created_at, mae, smape, mase, r2, bias
        FROM evaluations
        WHERE customer_id = ?
        ORDER BY created_at ASC
    `
	rows, err := s.db.QueryContext(ctx, q, customerID)
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	defer rows.Close()

	out := make([]models.EvaluationRecord, 0, 16)
	for rows.Next() {
		rec := models.EvaluationRecord{CustomerID: customerID}
		var mt string
		m := &rec.Metrics
		if err := rows.Scan(&rec.RunID, &mt, &rec.CreatedAt, &m.MAE, &m.MAPE, &m.MASE, &m.R2, &m.Bias); err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		rec.ModelType = models.ModelType(mt)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("evaluations of %s: %w", customerID, models.ErrNotFound)
	}
	if s.l != nil {
		s.l.Debug("clickhouse list_evaluations ok",
			applogger.Customer(customerID),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHEvaluationLog) Close() error { return s.ch.Close() }
