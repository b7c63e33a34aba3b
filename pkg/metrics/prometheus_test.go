package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorderCounts(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.RecordTraining("forest", 1.2, nil)
	r.RecordTraining("forest", 0, errors.New("x"))
	r.RecordForecast("forest", 5, nil)
	r.RecordEvaluation("forest", map[string]float64{"r2": 0.8})
	r.RecordError("schema")

	assert.Equal(t, 1.0, testutil.ToFloat64(r.trainings.WithLabelValues("forest", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.trainings.WithLabelValues("forest", "error")))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.forecastPoints.WithLabelValues("forest")))
	assert.Equal(t, 0.8, testutil.ToFloat64(r.lastMetric.WithLabelValues("forest", "r2")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("schema")))
}
