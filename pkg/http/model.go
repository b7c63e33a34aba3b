package http

// APIResponse represents standard API response.
type APIResponse struct {
	Status  int         `json:"status" example:"200"`
	Message string      `json:"message" example:"OK"`
	Data    interface{} `json:"data,omitempty"`
}

// FailureBody is the error payload of the forecasting endpoints. Exception
// carries the error text, Errors the field-level validation failures.
type FailureBody struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message" example:"Invalid request"`
	Exception string            `json:"Exception,omitempty"`
	Errors    []ValidationError `json:"errors,omitempty"`
}

// ValidationError represents validation error detail.
type ValidationError struct {
	Code    string                 `json:"code,omitempty" example:"ERR_REQUIRED"`
	Field   string                 `json:"field,omitempty" example:"customerid"`
	Message string                 `json:"message,omitempty" example:"customerid is required"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// ListDataResponse represents paginated list response.
type ListDataResponse struct {
	Rows  interface{} `json:"rows"`
	Total int64       `json:"total"`
}
