package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// DataResponse writes API response with status and data.
func DataResponse(c echo.Context, statusCode int, data interface{}) error {
	return c.JSON(statusCode, APIResponse{
		Status:  statusCode,
		Message: http.StatusText(statusCode),
		Data:    data,
	})
}

// ListResponse writes paginated list response.
func ListResponse(c echo.Context, rows interface{}, total int64) error {
	return DataResponse(c, http.StatusOK, &ListDataResponse{
		Rows:  rows,
		Total: total,
	})
}

// SuccessResponse writes success response.
func SuccessResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusOK, data)
}

// ResultResponse writes body as-is with 200.
func ResultResponse(c echo.Context, body interface{}) error {
	return c.JSON(http.StatusOK, body)
}

// FailureResponse writes a {success:false} body with the given status.
func FailureResponse(c echo.Context, status int, message string, err error, errs []ValidationError) error {
	body := FailureBody{Message: message, Errors: errs}
	if err != nil {
		body.Exception = err.Error()
	}
	return c.JSON(status, body)
}

// ValidationFailureResponse writes the result of ReadAndValidateRequest as a 400.
func ValidationFailureResponse(c echo.Context, verr interface{}) error {
	errs, _ := verr.([]ValidationError)
	msg := "Invalid request"
	if len(errs) > 0 && errs[0].Message != "" {
		msg = errs[0].Message
	}
	return FailureResponse(c, http.StatusBadRequest, msg, nil, errs)
}

// AppErrorResponse writes application error response. Errors that are not
// *AppError become a 500.
func AppErrorResponse(c echo.Context, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return FailureResponse(c, appErr.Status, appErr.Message, appErr.Err, nil)
	}
	return FailureResponse(c, http.StatusInternalServerError, "Something went wrong", err, nil)
}
