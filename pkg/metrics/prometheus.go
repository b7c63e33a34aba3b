package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	trainings       *prometheus.CounterVec
	trainingLatency *prometheus.HistogramVec
	forecasts       *prometheus.CounterVec
	forecastPoints  *prometheus.CounterVec
	evaluations     *prometheus.CounterVec
	lastMetric      *prometheus.GaugeVec
	errorsTotal     *prometheus.CounterVec
}

// New creates a Prometheus recorder registered on reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		trainings: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "declcast_trainings_total",
				Help: "Total number of model trainings",
			},
			[]string{"model_type", "result"},
		),
		trainingLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "declcast_training_duration_seconds",
				Help:    "Duration of model training in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"model_type"},
		),
		forecasts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "declcast_forecasts_total",
				Help: "Total number of forecast requests served",
			},
			[]string{"model_type", "result"},
		),
		forecastPoints: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "declcast_forecast_points_total",
				Help: "Total number of forecast days produced",
			},
			[]string{"model_type"},
		),
		evaluations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "declcast_evaluations_total",
				Help: "Total number of evaluation runs",
			},
			[]string{"model_type"},
		),
		lastMetric: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "declcast_last_evaluation_metric",
				Help: "Metric value of the latest evaluation per model type",
			},
			[]string{"model_type", "metric"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "declcast_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

// RecordTraining records one training run and its duration.
func (r *Recorder) RecordTraining(modelType string, seconds float64, err error) {
	r.trainings.WithLabelValues(modelType, result(err)).Inc()
	if err == nil {
		r.trainingLatency.WithLabelValues(modelType).Observe(seconds)
	}
}

// RecordForecast records one forecast request.
func (r *Recorder) RecordForecast(modelType string, points int, err error) {
	r.forecasts.WithLabelValues(modelType, result(err)).Inc()
	if err == nil {
		r.forecastPoints.WithLabelValues(modelType).Add(float64(points))
	}
}

// RecordEvaluation stores the latest metric values for a model type.
func (r *Recorder) RecordEvaluation(modelType string, metrics map[string]float64) {
	r.evaluations.WithLabelValues(modelType).Inc()
	for name, v := range metrics {
		r.lastMetric.WithLabelValues(modelType, name).Set(v)
	}
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
