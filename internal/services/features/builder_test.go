package features

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DeclCast/internal/domain/models"
)

func record(day time.Time, amount float64) models.RawRecord {
	return models.RawRecord{Assessment: &models.Assessment{
		Amount:  decimal.NewNullDecimal(decimal.NewFromFloat(amount)),
		Created: day.Format("2006-01-02"),
	}}
}

func consecutive(n int, amount float64) []models.RawRecord {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.RawRecord, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, record(start.AddDate(0, 0, i), amount))
	}
	return out
}

func TestBuildRowCount(t *testing.T) {
	b := NewBuilder()
	for _, n := range []int{7, 13, 30, 100} {
		table, err := b.Build(consecutive(n, 10))
		require.NoError(t, err)
		assert.Equal(t, n-6, table.Len(), "n=%d", n)
		assert.Len(t, table.Target, n-6)
	}
}

func TestBuildThirteenDaysNoMissingLags(t *testing.T) {
	records := consecutive(13, 0)
	for i := range records {
		records[i].Assessment.Amount = decimal.NewNullDecimal(decimal.NewFromInt(int64(i + 1)))
	}
	table, err := NewBuilder().Build(records)
	require.NoError(t, err)
	require.Equal(t, 7, table.Len())
	assert.Equal(t, models.FeatureColumns, table.Columns)

	for _, name := range []string{"lag_2", "lag_4", "lag_6"} {
		col, ok := table.Column(name)
		require.True(t, ok)
		for i, v := range col {
			assert.False(t, math.IsNaN(v), "%s row %d", name, i)
		}
	}
	// mean(1..7) = 4, mean(7..13) = 10
	assert.InDelta(t, 4.0, table.Target[0], 1e-12)
	assert.InDelta(t, 10.0, table.Target[6], 1e-12)

	lag2, _ := table.Column("lag_2")
	assert.InDelta(t, table.Target[0], lag2[0], 1e-12)
	assert.InDelta(t, table.Target[0], lag2[1], 1e-12)
	assert.InDelta(t, table.Target[4], lag2[6], 1e-12)

	year, _ := table.Column("year")
	month, _ := table.Column("month")
	day, _ := table.Column("day")
	assert.Equal(t, 2024.0, year[0])
	assert.Equal(t, 1.0, month[0])
	assert.Equal(t, 7.0, day[0])
}

func TestDailySeriesFillsGaps(t *testing.T) {
	records := consecutive(10, 5)
	records = append(records[:2], records[3:]...)

	daily, err := DailySeries(records)
	require.NoError(t, err)
	require.Len(t, daily, 10)
	assert.True(t, daily[2].Total.IsZero())
	assert.Equal(t, 0, daily[2].Count)
	assert.Equal(t, 1, daily[3].Count)
	for i := 1; i < len(daily); i++ {
		assert.Equal(t, daily[i-1].Date.AddDate(0, 0, 1), daily[i].Date)
	}
}

func TestDailySeriesSumsExactly(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	records := []models.RawRecord{record(day, 0.1), record(day, 0.2), record(day.Add(5*time.Hour), 0.3)}
	records[2].Assessment.Created = day.Add(5 * time.Hour).Format(time.RFC3339)

	daily, err := DailySeries(records)
	require.NoError(t, err)
	require.Len(t, daily, 1)
	assert.True(t, daily[0].Total.Equal(decimal.RequireFromString("0.6")))
	assert.Equal(t, 3, daily[0].Count)
}

func TestBuildSchemaErrors(t *testing.T) {
	b := NewBuilder()
	cases := map[string]models.RawRecord{
		"no assessment": {},
		"no amount":     {Assessment: &models.Assessment{Created: "2024-01-01"}},
		"bad date": {Assessment: &models.Assessment{
			Amount:  decimal.NewNullDecimal(decimal.NewFromInt(1)),
			Created: "yesterday",
		}},
	}
	for name, rec := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := b.Build([]models.RawRecord{rec})
			assert.True(t, errors.Is(err, models.ErrSchema), "got %v", err)
		})
	}
}

func TestBuildEmptyInput(t *testing.T) {
	b := NewBuilder()
	_, err := b.Build(nil)
	assert.ErrorIs(t, err, models.ErrEmptyInput)

	_, err = b.Build(consecutive(6, 1))
	assert.ErrorIs(t, err, models.ErrEmptyInput)
}

func TestBuildDeterministic(t *testing.T) {
	b := NewBuilder()
	a, err := b.Build(consecutive(40, 3))
	require.NoError(t, err)
	c, err := b.Build(consecutive(40, 3))
	require.NoError(t, err)
	assert.Equal(t, a, c)
}
