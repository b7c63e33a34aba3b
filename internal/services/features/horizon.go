package features

import (
	"fmt"
	"math"
	"time"

	"DeclCast/internal/domain/models"
	"DeclCast/pkg/util"
)

var nan = math.NaN()

// Clock returns the current time. Injected so horizons are reproducible in tests.
type Clock func() time.Time

// HorizonOption configures a Horizon builder.
type HorizonOption func(*Horizon)

// WithClock overrides the wall clock used to anchor the horizon.
func WithClock(c Clock) HorizonOption {
	return func(h *Horizon) {
		if c != nil {
			h.now = c
		}
	}
}

// Horizon builds future feature skeletons starting the day after "now".
type Horizon struct {
	now Clock
}

// NewHorizon creates a horizon builder anchored on the wall clock by default.
func NewHorizon(opts ...HorizonOption) *Horizon {
	h := &Horizon{now: time.Now}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Build returns `days` consecutive dates starting tomorrow. Lag and count
// columns are NaN; calendar columns are filled.
func (h *Horizon) Build(days int) (models.Frame, error) {
	if days <= 0 {
		return models.Frame{}, fmt.Errorf("horizon %d days: %w", days, models.ErrInvalidHorizon)
	}
	start := util.Day(h.now().UTC()).AddDate(0, 0, 1)
	f := models.Frame{
		Dates:   make([]time.Time, days),
		Columns: append([]string(nil), models.FeatureColumns...),
		Rows:    make([][]float64, days),
	}
	for i := 0; i < days; i++ {
		d := start.AddDate(0, 0, i)
		row := make([]float64, 0, len(models.FeatureColumns))
		for range models.LagOffsets {
			row = append(row, nan)
		}
		row = append(row, nan)
		row = append(row, calendar(d)...)
		f.Dates[i] = d
		f.Rows[i] = row
	}
	return f, nil
}
