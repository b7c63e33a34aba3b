package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RawRecord is one declaration event as posted by clients. The nested field
// names follow the customs assessment export the service was built against.
type RawRecord struct {
	Assessment *Assessment `json:"Abgabenbescheid"`
}

// Assessment carries the monetary amount and creation date of a declaration.
type Assessment struct {
	Amount  decimal.NullDecimal `json:"Gesamtabgabe"`
	Created string              `json:"Datum Erstellung"`
}

// DailyPoint is one calendar day of the resampled declaration series.
type DailyPoint struct {
	Date  time.Time
	Total decimal.Decimal
	Count int
}

const (
	// TargetColumn is the supervised target produced by the feature builder.
	TargetColumn = "smoothed_target"
	// SmoothingWindow is the trailing window of the moving-average target.
	SmoothingWindow = 7
)

// LagOffsets are the day offsets of the lagged target features.
var LagOffsets = []int{2, 4, 6}

// FeatureColumns is the fixed, ordered feature schema shared by the training
// table and the forecast horizon.
var FeatureColumns = []string{"lag_2", "lag_4", "lag_6", "declaration_count", "year", "month", "day"}

// Frame is a date-indexed, row-major feature matrix. Undefined cells are NaN.
type Frame struct {
	Dates   []time.Time
	Columns []string
	Rows    [][]float64
}

// Len returns the number of rows.
func (f Frame) Len() int { return len(f.Dates) }

// Slice returns rows [i, j). The result shares storage with f.
func (f Frame) Slice(i, j int) Frame {
	return Frame{Dates: f.Dates[i:j], Columns: f.Columns, Rows: f.Rows[i:j]}
}

// ColumnIndex returns the position of a named column or -1.
func (f Frame) ColumnIndex(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column copies one column out of the matrix.
func (f Frame) Column(name string) ([]float64, bool) {
	idx := f.ColumnIndex(name)
	if idx < 0 {
		return nil, false
	}
	out := make([]float64, len(f.Rows))
	for i, r := range f.Rows {
		out[i] = r[idx]
	}
	return out, true
}

// FeatureTable is the supervised-learning table: X plus the aligned target.
type FeatureTable struct {
	Frame
	Target []float64
}

// Slice returns rows [i, j) of both X and the target.
func (t FeatureTable) Slice(i, j int) FeatureTable {
	return FeatureTable{Frame: t.Frame.Slice(i, j), Target: t.Target[i:j]}
}

// Split divides the table chronologically, keeping the last testSize rows as
// the held-out set.
func (t FeatureTable) Split(testSize int) (FeatureTable, FeatureTable, error) {
	n := t.Len()
	if testSize <= 0 {
		return FeatureTable{}, FeatureTable{}, fmt.Errorf("test size %d: %w", testSize, ErrInvalidHorizon)
	}
	if n <= testSize {
		return FeatureTable{}, FeatureTable{}, fmt.Errorf("need more than %d rows to hold out %d, have %d: %w", testSize, testSize, n, ErrEmptyInput)
	}
	cut := n - testSize
	return t.Slice(0, cut), t.Slice(cut, n), nil
}
