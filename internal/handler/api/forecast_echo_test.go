package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DeclCast/internal/repository"
	"DeclCast/internal/service/ratelimit"
	"DeclCast/internal/services/evaluation"
	"DeclCast/internal/services/features"
	"DeclCast/internal/services/forecasting"
	"DeclCast/internal/usecase"
	"DeclCast/pkg/cache"
	xhttp "DeclCast/pkg/http"
	xlogger "DeclCast/pkg/logger"
)

var now = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, limiter *ratelimit.Limiter) *echo.Echo {
	t.Helper()
	mem := cache.NewMemoryCache()
	t.Cleanup(func() { mem.Close() })
	factory := forecasting.NewFactory(forecasting.WithSettings(forecasting.Settings{ForestTrees: 10}))
	evalLog, err := repository.NewCSVEvaluationLog(t.TempDir())
	require.NoError(t, err)
	uc := usecase.NewForecastingUseCase(
		features.NewBuilder(),
		features.NewHorizon(features.WithClock(func() time.Time { return now })),
		factory,
		repository.NewBlobModelStore(repository.NewCacheBlobStore(mem, time.Second), factory),
		evaluation.NewEvaluator(),
		evalLog,
		usecase.WithDefaults(7, 10),
	)
	e := xhttp.NewEcho(&xhttp.ServerConfig{Logger: xlogger.NewNop(), BodyLimit: "10M"})
	NewForecastEchoHandler(xlogger.NewNop(), uc, limiter).RegisterRoutes(e)
	return e
}

func payload(customer, model string, days int, extra string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `{"customerid":%q,"modeltype":%q,%s"data":[`, customer, model, extra)
	for i := 0; i < days; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
		fmt.Fprintf(&b, `{"Abgabenbescheid":{"Gesamtabgabe":%d,"Datum Erstellung":%q}}`, 100+i%5, d.Format("2006-01-02"))
	}
	b.WriteString("]}")
	return b.String()
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestTrainAndForecast(t *testing.T) {
	e := newTestServer(t, nil)

	rec := do(e, http.MethodPost, "/train", payload("C1", "forest", 40, ""))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])

	rec = do(e, http.MethodGet, "/forecast?customerid=C1&modeltype=forest&horizon=3", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body = decode(t, rec)
	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Len(t, data, 3)
	assert.Contains(t, data, "2024-06-02")
	assert.Contains(t, data, "2024-06-04")
}

func TestForecastFromJSONBody(t *testing.T) {
	e := newTestServer(t, nil)
	require.Equal(t, http.StatusOK, do(e, http.MethodPost, "/train", payload("C1", "", 40, "")).Code)

	rec := do(e, http.MethodGet, "/forecast", `{"customerid":"C1","horizon":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decode(t, rec)["data"], 2)
}

func TestForecastUnknownCustomerIs404(t *testing.T) {
	e := newTestServer(t, nil)
	rec := do(e, http.MethodGet, "/forecast?customerid=nobody&horizon=3", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["Exception"])
}

func TestValidationFailures(t *testing.T) {
	e := newTestServer(t, nil)

	rec := do(e, http.MethodGet, "/forecast?customerid=C1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, "/train", `{"customerid":"../etc","data":[{}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, "/train", `{"customerid":"C1","data":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, decode(t, rec)["success"])
}

func TestSchemaErrorIs400(t *testing.T) {
	e := newTestServer(t, nil)
	rec := do(e, http.MethodPost, "/train", `{"customerid":"C1","data":[{"Abgabenbescheid":{"Gesamtabgabe":5}}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["Exception"], "schema")
}

func TestEvaluateUnknownModelIs400(t *testing.T) {
	e := newTestServer(t, nil)
	rec := do(e, http.MethodPost, "/evaluate", payload("C1", "prophet", 40, ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["message"])
}

func TestEvaluateAndHistory(t *testing.T) {
	e := newTestServer(t, nil)

	rec := do(e, http.MethodPost, "/evaluate", payload("C1", "forest", 60, `"test_size":10,`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	matrix, ok := body["validation_matrix"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, matrix, "Mean Absolute Error")
	assert.Contains(t, matrix, "r2")

	rec = do(e, http.MethodGet, "/evaluations?customerid=C1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := decode(t, rec)["data"].(map[string]interface{})
	assert.EqualValues(t, 1, data["total"])
}

func TestRateLimitedTraining(t *testing.T) {
	e := newTestServer(t, ratelimit.New(0.001, 1, time.Minute))
	require.Equal(t, http.StatusOK, do(e, http.MethodPost, "/train", payload("C1", "forest", 30, "")).Code)

	rec := do(e, http.MethodPost, "/train", payload("C1", "forest", 30, ""))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = do(e, http.MethodPost, "/train", payload("C2", "forest", 30, ""))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealth(t *testing.T) {
	e := newTestServer(t, nil)
	rec := do(e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
