package models

import (
	"fmt"
	"strings"
)

// ModelType selects one forecasting algorithm.
type ModelType string

const (
	ModelARIMA   ModelType = "arima"
	ModelETS     ModelType = "ets"
	ModelForest  ModelType = "forest"
	ModelXGBoost ModelType = "xgboost"
	ModelRNN     ModelType = "rnn"
	ModelLSTM    ModelType = "lstm"
)

// DefaultModelType is used when a request does not name a model.
const DefaultModelType = ModelForest

// ModelTypes lists every supported selector in a stable order.
func ModelTypes() []ModelType {
	return []ModelType{ModelARIMA, ModelETS, ModelForest, ModelXGBoost, ModelRNN, ModelLSTM}
}

// ParseModelType normalizes a selector string.
func ParseModelType(s string) (ModelType, error) {
	mt := ModelType(strings.ToLower(strings.TrimSpace(s)))
	if mt == "" {
		return DefaultModelType, nil
	}
	for _, known := range ModelTypes() {
		if mt == known {
			return mt, nil
		}
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownModelType)
}

func (m ModelType) String() string { return string(m) }
