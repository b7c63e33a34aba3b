package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"DeclCast/internal/domain/models"
	domrepo "DeclCast/internal/domain/repository"
	"DeclCast/internal/domain/service"
	applogger "DeclCast/pkg/logger"
)

const envelopeVersion = 1

// ModelFactory builds an empty forecaster for a model type.
type ModelFactory interface {
	New(mt models.ModelType) (service.Forecaster, error)
}

type modelEnvelope struct {
	ModelType models.ModelType `json:"model_type"`
	Version   int              `json:"version"`
	TrainedAt time.Time        `json:"trained_at"`
	State     json.RawMessage  `json:"state"`
}

// BlobModelStore implements ModelStore on top of any BlobStore.
type BlobModelStore struct {
	blobs   domrepo.BlobStore
	factory ModelFactory
	now     func() time.Time
	l       *applogger.Logger
}

func NewBlobModelStore(blobs domrepo.BlobStore, factory ModelFactory) *BlobModelStore {
	return &BlobModelStore{blobs: blobs, factory: factory, now: time.Now}
}

// SetLogger injects a structured logger.
func (s *BlobModelStore) SetLogger(l *applogger.Logger) { s.l = l }

// ModelKey is the storage key of one customer's model of one type.
func ModelKey(customerID string, mt models.ModelType) string {
	return fmt.Sprintf("%s_%s_model", customerID, mt)
}

func (s *BlobModelStore) Save(ctx context.Context, customerID string, m service.Forecaster) error {
	state, err := m.MarshalState()
	if err != nil {
		return fmt.Errorf("marshal %s state: %w", m.Type(), err)
	}
	blob, err := json.Marshal(modelEnvelope{
		ModelType: m.Type(),
		Version:   envelopeVersion,
		TrainedAt: s.now().UTC(),
		State:     state,
	})
	if err != nil {
		return fmt.Errorf("encode model envelope: %w", err)
	}
	key := ModelKey(customerID, m.Type())
	if err := s.blobs.Put(ctx, key, blob); err != nil {
		return fmt.Errorf("save model %s: %w", key, err)
	}
	if s.l != nil {
		s.l.Debug("model saved",
			applogger.Customer(customerID),
			applogger.Model(m.Type().String()),
			applogger.Int("bytes", len(blob)),
		)
	}
	return nil
}

func (s *BlobModelStore) Load(ctx context.Context, customerID string, mt models.ModelType) (service.Forecaster, error) {
	key := ModelKey(customerID, mt)
	blob, err := s.blobs.Get(ctx, key)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("model %s: %w", key, models.ErrNotFound)
		}
		return nil, fmt.Errorf("load model %s: %w", key, err)
	}
	var env modelEnvelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return nil, fmt.Errorf("decode model %s: %v: %w", key, err, models.ErrUntrainedModel)
	}
	if len(env.State) == 0 || string(env.State) == "null" {
		return nil, fmt.Errorf("model %s has no state: %w", key, models.ErrUntrainedModel)
	}
	if env.ModelType != "" && env.ModelType != mt {
		return nil, fmt.Errorf("model %s holds %s state: %w", key, env.ModelType, models.ErrUntrainedModel)
	}
	m, err := s.factory.New(mt)
	if err != nil {
		return nil, err
	}
	if err := m.UnmarshalState(env.State); err != nil {
		if errors.Is(err, models.ErrUntrainedModel) {
			return nil, err
		}
		return nil, fmt.Errorf("restore model %s: %v: %w", key, err, models.ErrUntrainedModel)
	}
	return m, nil
}
