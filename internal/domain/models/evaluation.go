package models

import "time"

// Metric column names, in the order they are written to evaluation logs.
const (
	MetricMAE  = "Mean Absolute Error"
	MetricMAPE = "Mean Absolute Percentage Error (%)"
	MetricMASE = "Mean Absolute Scaled Error"
	MetricR2   = "r2"
	MetricBias = "Forecast Bias (%)"
)

// MetricNames returns the metric columns in log order.
func MetricNames() []string {
	return []string{MetricMAE, MetricMAPE, MetricMASE, MetricR2, MetricBias}
}

// Metrics is the accuracy/bias record of one evaluation run.
type Metrics struct {
	MAE  float64 `json:"Mean Absolute Error"`
	MAPE float64 `json:"Mean Absolute Percentage Error (%)"`
	MASE float64 `json:"Mean Absolute Scaled Error"`
	R2   float64 `json:"r2"`
	Bias float64 `json:"Forecast Bias (%)"`
}

// Values returns the metrics aligned with MetricNames.
func (m Metrics) Values() []float64 {
	return []float64{m.MAE, m.MAPE, m.MASE, m.R2, m.Bias}
}

// Map returns the metrics keyed by their column names.
func (m Metrics) Map() map[string]float64 {
	out := make(map[string]float64, 5)
	for i, name := range MetricNames() {
		out[name] = m.Values()[i]
	}
	return out
}

// EvaluationRecord is one appended row of a customer's evaluation log.
type EvaluationRecord struct {
	RunID      string    `json:"run_id"`
	CustomerID string    `json:"customer_id"`
	ModelType  ModelType `json:"modeltype"`
	CreatedAt  time.Time `json:"created_at"`
	Metrics    Metrics   `json:"metrics"`
}

// PredictionRow pairs a held-out actual with the model's prediction.
type PredictionRow struct {
	Date       time.Time `json:"date"`
	Actual     float64   `json:"y_test"`
	Prediction float64   `json:"prediction"`
}
