package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"DeclCast/internal/domain/models"
	apimetrics "DeclCast/internal/service/metrics"
	"DeclCast/internal/service/ratelimit"
	"DeclCast/internal/usecase"
	xhttp "DeclCast/pkg/http"
	xlogger "DeclCast/pkg/logger"
	"DeclCast/pkg/util"
)

// ForecastEchoHandler serves the train, forecast and evaluate endpoints.
type ForecastEchoHandler struct {
	logger  *xlogger.Logger
	uc      *usecase.ForecastingUseCase
	limiter *ratelimit.Limiter
}

// NewForecastEchoHandler wires the handler. limiter may be nil to disable
// per-customer rate limiting.
func NewForecastEchoHandler(logger *xlogger.Logger, uc *usecase.ForecastingUseCase, limiter *ratelimit.Limiter) *ForecastEchoHandler {
	return &ForecastEchoHandler{logger: logger, uc: uc, limiter: limiter}
}

func (h *ForecastEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/train", h.Train)
	e.GET("/forecast", h.Forecast)
	e.POST("/evaluate", h.Evaluate)
	e.GET("/evaluations", h.Evaluations)
	e.GET("/healthz", h.Health)
}

func (h *ForecastEchoHandler) Train(c echo.Context) error {
	req := &models.TrainRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationFailureResponse(c, verr)
	}
	if !h.allow(c, req.CustomerID) {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("Too many training requests"))
	}
	apimetrics.PayloadRecords.WithLabelValues(c.Path()).Observe(float64(len(req.Data)))

	_, err := h.uc.Train(c.Request().Context(), usecase.TrainParams{
		CustomerID: req.CustomerID,
		ModelType:  req.ModelType,
		Horizon:    req.Horizon,
		Records:    req.Data,
	})
	if err != nil {
		h.logger.Error("train usecase error", xlogger.Customer(req.CustomerID), xlogger.Error(err))
		return errorResponse(c, "Training failed", err)
	}
	return xhttp.ResultResponse(c, models.TrainResponse{
		Success: true,
		Message: "Model trained successfully",
	})
}

func (h *ForecastEchoHandler) Forecast(c echo.Context) error {
	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationFailureResponse(c, verr)
	}

	points, err := h.uc.Forecast(c.Request().Context(), usecase.ForecastParams{
		CustomerID: req.CustomerID,
		ModelType:  req.ModelType,
		Horizon:    req.Horizon,
	})
	if err != nil {
		h.logger.Error("forecast usecase error", xlogger.Customer(req.CustomerID), xlogger.Error(err))
		return errorResponse(c, "Forecast failed", err)
	}
	data := make(map[string]float64, len(points))
	for _, p := range points {
		data[util.FormatDate(p.Date)] = p.Value
	}
	return xhttp.ResultResponse(c, models.ForecastResponse{
		Success: true,
		Data:    data,
		Message: "Forecast generated successfully",
	})
}

func (h *ForecastEchoHandler) Evaluate(c echo.Context) error {
	req := &models.EvaluateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationFailureResponse(c, verr)
	}
	if !h.allow(c, req.CustomerID) {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("Too many evaluation requests"))
	}
	apimetrics.PayloadRecords.WithLabelValues(c.Path()).Observe(float64(len(req.Data)))

	res, err := h.uc.Evaluate(c.Request().Context(), usecase.EvaluateParams{
		CustomerID: req.CustomerID,
		ModelType:  req.ModelType,
		TestSize:   req.TestSize,
		Records:    req.Data,
	})
	if err != nil {
		h.logger.Error("evaluate usecase error", xlogger.Customer(req.CustomerID), xlogger.Error(err))
		return errorResponse(c, "Evaluation failed", err)
	}
	return xhttp.ResultResponse(c, models.EvaluateResponse{
		Success:          true,
		ValidationMatrix: res.Record.Metrics,
		Message:          "Model evaluated successfully",
	})
}

func (h *ForecastEchoHandler) Evaluations(c echo.Context) error {
	req := &models.EvaluationsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationFailureResponse(c, verr)
	}
	rows, err := h.uc.ListEvaluations(c.Request().Context(), req.CustomerID)
	if err != nil {
		return errorResponse(c, "Evaluation history unavailable", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *ForecastEchoHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *ForecastEchoHandler) allow(c echo.Context, customerID string) bool {
	if h.limiter == nil || h.limiter.Allow(customerID) {
		return true
	}
	apimetrics.RateLimited.WithLabelValues(c.Path()).Inc()
	h.logger.Warn("rate limited", xlogger.Customer(customerID), xlogger.String("path", c.Path()))
	return false
}

// errorResponse maps core failures onto HTTP statuses: input-shaped errors are
// the caller's fault, missing state is a 404, the rest is ours.
func errorResponse(c echo.Context, message string, err error) error {
	var appErr *xhttp.AppError
	switch {
	case errors.Is(err, models.ErrSchema),
		errors.Is(err, models.ErrEmptyInput),
		errors.Is(err, models.ErrInvalidHorizon),
		errors.Is(err, models.ErrUnknownModelType):
		appErr = xhttp.BadRequestError(message)
	case errors.Is(err, models.ErrNotFound):
		appErr = xhttp.NotFoundError(message)
	default:
		appErr = xhttp.InternalError(message)
	}
	return xhttp.AppErrorResponse(c, appErr.WithError(err))
}
