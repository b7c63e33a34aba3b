package models

import "errors"

// Core failure taxonomy. Callers wrap these with context via fmt.Errorf("...: %w")
// and match them with errors.Is at the transport boundary.
var (
	ErrSchema               = errors.New("schema error")
	ErrEmptyInput           = errors.New("empty input")
	ErrInvalidHorizon       = errors.New("invalid horizon")
	ErrTraining             = errors.New("training error")
	ErrNotTrained           = errors.New("model not trained")
	ErrNotFound             = errors.New("not found")
	ErrUntrainedModel       = errors.New("untrained model")
	ErrDivisionByZeroMetric = errors.New("division by zero in metric")
	ErrUnknownModelType     = errors.New("unknown model type")
)
