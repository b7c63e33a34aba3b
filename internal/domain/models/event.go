package models

import "time"

const (
	EventModelTrained   = "model.trained"
	EventModelEvaluated = "model.evaluated"
)

// Event is a domain notification published after a pipeline step completes.
type Event struct {
	Type       string                 `json:"type"`
	CustomerID string                 `json:"customer_id"`
	ModelType  ModelType              `json:"model_type"`
	OccurredAt time.Time              `json:"occurred_at"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
}
