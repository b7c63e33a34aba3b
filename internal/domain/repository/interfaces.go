package repository

import (
	"context"

	"DeclCast/internal/domain/models"
	"DeclCast/internal/domain/service"
)

// BlobStore persists opaque byte payloads under string keys.
// Get returns models.ErrNotFound for unknown keys.
type BlobStore interface {
	Put(ctx context.Context, key string, blob []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Close() error
}

// ModelStore persists trained models keyed by (customer id, model type).
// Save overwrites any earlier state under the same key.
type ModelStore interface {
	Save(ctx context.Context, customerID string, m service.Forecaster) error
	Load(ctx context.Context, customerID string, mt models.ModelType) (service.Forecaster, error)
}

// EvaluationLog records evaluation runs. Metric rows are append-only.
type EvaluationLog interface {
	AppendEvaluation(ctx context.Context, rec models.EvaluationRecord) error
	WritePredictions(ctx context.Context, rec models.EvaluationRecord, rows []models.PredictionRow) error
	ListEvaluations(ctx context.Context, customerID string) ([]models.EvaluationRecord, error)
	Close() error
}

// EventPublisher emits domain events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, ev models.Event) error
	Close() error
}

// Metrics records operational measurements of the forecasting pipeline.
// Evaluation metrics are passed by name so recorders need no domain types.
type Metrics interface {
	RecordTraining(modelType string, seconds float64, err error)
	RecordForecast(modelType string, points int, err error)
	RecordEvaluation(modelType string, metrics map[string]float64)
	RecordError(kind string)
}
