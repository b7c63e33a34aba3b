package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DeclCast/pkg/config"
	applogger "DeclCast/pkg/logger"
)

type pingHandler struct{}

func (pingHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })
}

type closer struct {
	name  string
	order *[]string
}

func (c closer) Close() error {
	*c.order = append(*c.order, c.name)
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	return cfg
}

func serve(e *echo.Echo, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServerRegistersHandlersAndMetrics(t *testing.T) {
	app := New(testConfig(t), applogger.NewNop(), nil)
	app.handlers = append(app.handlers, pingHandler{})
	e := app.Server().Echo()

	rec := serve(e, "/ping")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())

	assert.Equal(t, http.StatusOK, serve(e, "/metrics").Code)
	assert.Same(t, app.Server(), app.Server())
}

func TestServerWithoutMetrics(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Enabled = false
	app := New(cfg, nil, nil)

	assert.Equal(t, http.StatusNotFound, serve(app.Server().Echo(), "/metrics").Code)
}

func TestShutdownClosesInReverseOrder(t *testing.T) {
	var order []string
	app := New(testConfig(t), applogger.NewNop(), nil,
		closer{"store", &order}, closer{"log", &order}, closer{"events", &order})

	require.NoError(t, app.Shutdown(context.Background()))
	assert.Equal(t, []string{"events", "log", "store"}, order)

	app.Close()
	assert.Len(t, order, 3)
}
