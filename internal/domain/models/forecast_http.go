package models

// Requests and responses for the forecasting HTTP endpoints.

type TrainRequest struct {
	CustomerID string      `json:"customerid" validate:"required,max=64,slug"`
	ModelType  string      `json:"modeltype"`
	Horizon    int         `json:"horizon" validate:"omitempty,gte=1,lte=366"`
	Data       []RawRecord `json:"data" validate:"required,min=1"`
}

type ForecastRequest struct {
	CustomerID string `query:"customerid" json:"customerid" validate:"required,max=64,slug"`
	ModelType  string `query:"modeltype" json:"modeltype"`
	Horizon    int    `query:"horizon" json:"horizon" validate:"required,gte=1,lte=366"`
}

type EvaluateRequest struct {
	CustomerID string      `json:"customerid" validate:"required,max=64,slug"`
	ModelType  string      `json:"modeltype" validate:"required"`
	TestSize   int         `json:"test_size" validate:"gte=0"`
	Data       []RawRecord `json:"data" validate:"required,min=1"`
}

type EvaluationsRequest struct {
	CustomerID string `query:"customerid" json:"customerid" validate:"required,max=64,slug"`
}

type TrainResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type ForecastResponse struct {
	Success bool               `json:"success"`
	Data    map[string]float64 `json:"data"`
	Message string             `json:"message"`
}

type EvaluateResponse struct {
	Success          bool    `json:"success"`
	ValidationMatrix Metrics `json:"validation_matrix"`
	Message          string  `json:"message"`
}

type EvaluationsResponse struct {
	Success     bool               `json:"success"`
	Evaluations []EvaluationRecord `json:"evaluations"`
	Message     string             `json:"message"`
}
