package features

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"DeclCast/internal/domain/models"
	"DeclCast/pkg/util"
)

// Builder converts raw declarations into the supervised feature table.
// It holds no state and is safe for concurrent use.
type Builder struct{}

// NewBuilder returns a feature builder.
func NewBuilder() *Builder { return &Builder{} }

// Build runs extraction, daily resampling, smoothing, lagging and calendar
// decoration. The result has one row per day from the seventh observed day on.
func (b *Builder) Build(records []models.RawRecord) (models.FeatureTable, error) {
	daily, err := DailySeries(records)
	if err != nil {
		return models.FeatureTable{}, err
	}
	smoothed := RollingMean(daily, models.SmoothingWindow)

	// first defined smoothed value
	start := models.SmoothingWindow - 1
	if len(daily) <= start {
		return models.FeatureTable{}, fmt.Errorf("%d days, need at least %d: %w", len(daily), models.SmoothingWindow, models.ErrEmptyInput)
	}
	kept := smoothed[start:]
	days := daily[start:]

	lags := make([][]float64, len(models.LagOffsets))
	for i, k := range models.LagOffsets {
		lags[i] = LagNearest(kept, k)
	}

	table := models.FeatureTable{
		Frame: models.Frame{
			Dates:   make([]time.Time, len(kept)),
			Columns: append([]string(nil), models.FeatureColumns...),
			Rows:    make([][]float64, len(kept)),
		},
		Target: make([]float64, len(kept)),
	}
	for i, p := range days {
		row := make([]float64, 0, len(models.FeatureColumns))
		for _, l := range lags {
			row = append(row, l[i])
		}
		row = append(row, float64(p.Count))
		row = append(row, calendar(p.Date)...)
		table.Dates[i] = p.Date
		table.Rows[i] = row
		table.Target[i] = kept[i]
	}
	return table, nil
}

// DailySeries extracts (amount, date) from every record, aggregates per
// calendar day and fills missing days with zero totals and counts.
func DailySeries(records []models.RawRecord) ([]models.DailyPoint, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no declaration records: %w", models.ErrEmptyInput)
	}
	byDay := make(map[time.Time]*models.DailyPoint, len(records))
	for i, r := range records {
		if r.Assessment == nil {
			return nil, fmt.Errorf("record %d: missing assessment: %w", i, models.ErrSchema)
		}
		if !r.Assessment.Amount.Valid {
			return nil, fmt.Errorf("record %d: missing amount: %w", i, models.ErrSchema)
		}
		day, ok := util.ParseDate(r.Assessment.Created)
		if !ok {
			return nil, fmt.Errorf("record %d: bad creation date %q: %w", i, r.Assessment.Created, models.ErrSchema)
		}
		p, found := byDay[day]
		if !found {
			p = &models.DailyPoint{Date: day, Total: decimal.Zero}
			byDay[day] = p
		}
		p.Total = p.Total.Add(r.Assessment.Amount.Decimal)
		p.Count++
	}

	observed := make([]time.Time, 0, len(byDay))
	for d := range byDay {
		observed = append(observed, d)
	}
	sort.Slice(observed, func(i, j int) bool { return observed[i].Before(observed[j]) })

	first, last := observed[0], observed[len(observed)-1]
	out := make([]models.DailyPoint, 0, util.DaysBetween(first, last)+1)
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		if p, ok := byDay[d]; ok {
			out = append(out, *p)
			continue
		}
		out = append(out, models.DailyPoint{Date: d, Total: decimal.Zero})
	}
	return out, nil
}

// RollingMean returns the trailing window mean of the daily totals. The first
// window-1 entries are undefined and left as NaN.
func RollingMean(daily []models.DailyPoint, window int) []float64 {
	out := make([]float64, len(daily))
	sum := decimal.Zero
	n := decimal.NewFromInt(int64(window))
	for i, p := range daily {
		sum = sum.Add(p.Total)
		if i >= window {
			sum = sum.Sub(daily[i-window].Total)
		}
		if i < window-1 {
			out[i] = nan
			continue
		}
		out[i] = sum.Div(n).InexactFloat64()
	}
	return out
}

// LagNearest shifts s by k positions. Positions before the start of the series
// take the nearest available value, the first element.
func LagNearest(s []float64, k int) []float64 {
	out := make([]float64, len(s))
	for i := range s {
		j := i - k
		if j < 0 {
			j = 0
		}
		out[i] = s[j]
	}
	return out
}

func calendar(d time.Time) []float64 {
	return []float64{float64(d.Year()), float64(d.Month()), float64(d.Day())}
}
