package forecasting

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"DeclCast/internal/domain/models"
	"DeclCast/pkg/util"
)

// stateVersion is bumped whenever a persisted state layout changes.
const stateVersion = 1

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func checkTrainingInput(x models.Frame, y []float64) error {
	if x.Len() == 0 || len(y) == 0 {
		return fmt.Errorf("no training rows: %w", models.ErrEmptyInput)
	}
	if x.Len() != len(y) {
		return fmt.Errorf("%d feature rows vs %d targets: %w", x.Len(), len(y), models.ErrTraining)
	}
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("target row %d is not finite: %w", i, models.ErrTraining)
		}
	}
	return nil
}

func checkColumns(want []string, x models.Frame) error {
	if len(x.Columns) != len(want) {
		return fmt.Errorf("got %d feature columns, trained on %d: %w", len(x.Columns), len(want), models.ErrSchema)
	}
	for i := range want {
		if x.Columns[i] != want[i] {
			return fmt.Errorf("column %d is %q, trained on %q: %w", i, x.Columns[i], want[i], models.ErrSchema)
		}
	}
	return nil
}

// orderedDates verifies that the training index is strictly increasing.
func orderedDates(dates []time.Time) error {
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			return fmt.Errorf("dates not strictly increasing at row %d: %w", i, models.ErrTraining)
		}
	}
	return nil
}

// stepsAfter maps each date to its 1-based day offset after end. Dates on or
// before end cannot be forecast by a model that only extrapolates.
func stepsAfter(end time.Time, dates []time.Time) ([]int, int, error) {
	if len(dates) == 0 {
		return nil, 0, fmt.Errorf("empty forecast index: %w", models.ErrInvalidHorizon)
	}
	steps := make([]int, len(dates))
	maxStep := 0
	for i, d := range dates {
		s := util.DaysBetween(end, d)
		if s < 1 {
			return nil, 0, fmt.Errorf("date %s is not after training end %s: %w",
				util.FormatDate(d), util.FormatDate(end), models.ErrInvalidHorizon)
		}
		steps[i] = s
		if s > maxStep {
			maxStep = s
		}
	}
	return steps, maxStep, nil
}

func pick(path []float64, steps []int) []float64 {
	out := make([]float64, len(steps))
	for i, s := range steps {
		out[i] = path[s-1]
	}
	return out
}

func allFinite(vals []float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return stat.Mean(v, nil)
}

// median returns the median of v without modifying it.
func median(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	s := append([]float64(nil), v...)
	sort.Float64s(s)
	return quantileSorted(s, 0.5)
}

func isConstant(v []float64) bool {
	for i := 1; i < len(v); i++ {
		if v[i] != v[0] {
			return false
		}
	}
	return true
}

func cancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("training interrupted: %w", err)
	}
	return nil
}
