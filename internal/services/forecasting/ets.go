package forecasting

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/optimize"

	"DeclCast/internal/domain/models"
)

const etsMinPoints = 4

type etsForm struct {
	Trend    bool
	Seasonal bool
}

func (s etsForm) String() string {
	t, ss := "N", "N"
	if s.Trend {
		t = "A"
	}
	if s.Seasonal {
		ss = "A"
	}
	return "ETS(A," + t + "," + ss + ")"
}

type etsState struct {
	Version  int       `json:"version"`
	Model    string    `json:"model"`
	Trend    bool      `json:"trend"`
	Seasonal bool      `json:"seasonal"`
	Period   int       `json:"period"`
	Alpha    float64   `json:"alpha"`
	Beta     float64   `json:"beta"`
	Gamma    float64   `json:"gamma"`
	Level    float64   `json:"level"`
	Slope    float64   `json:"slope"`
	Season   []float64 `json:"season"`
	N        int       `json:"n"`
	AIC      float64   `json:"aic"`
	End      time.Time `json:"end"`
}

// ETS is an additive-error exponential smoothing model whose trend and
// seasonal components are selected automatically by AIC.
type ETS struct {
	period int
	st     *etsState
}

// NewETS returns an untrained ETS model with the given seasonal period.
func NewETS(period int) *ETS {
	if period <= 1 {
		period = 7
	}
	return &ETS{period: period}
}

func (m *ETS) Type() models.ModelType { return models.ModelETS }

func (m *ETS) Train(ctx context.Context, x models.Frame, y []float64, _ []time.Time) error {
	if err := checkTrainingInput(x, y); err != nil {
		return err
	}
	if err := orderedDates(x.Dates); err != nil {
		return err
	}
	if len(y) < etsMinPoints {
		return fmt.Errorf("ets needs %d points, have %d: %w", etsMinPoints, len(y), models.ErrTraining)
	}
	if isConstant(y) {
		return fmt.Errorf("ets: series has a single unique value: %w", models.ErrTraining)
	}

	forms := []etsForm{{}, {Trend: true}}
	if len(y) >= 2*m.period {
		forms = append(forms, etsForm{Seasonal: true}, etsForm{Trend: true, Seasonal: true})
	}

	var best *etsState
	for _, form := range forms {
		if err := cancelled(ctx); err != nil {
			return err
		}
		st, err := m.fit(y, form)
		if err != nil {
			continue
		}
		if best == nil || st.AIC < best.AIC {
			best = st
		}
	}
	if best == nil {
		return fmt.Errorf("ets: no candidate model converged: %w", models.ErrTraining)
	}
	best.Version = stateVersion
	best.End = x.Dates[len(x.Dates)-1]
	m.st = best
	return nil
}

func (m *ETS) fit(y []float64, form etsForm) (*etsState, error) {
	nParams := 1
	if form.Trend {
		nParams++
	}
	if form.Seasonal {
		nParams++
	}
	problem := optimize.Problem{
		Func: func(u []float64) float64 {
			st := m.decode(u, form)
			sse, ok := etsFilter(y, st)
			if !ok {
				return math.MaxFloat64
			}
			return sse
		},
	}
	init := make([]float64, nParams)
	init[0] = logit(0.3)
	for i := 1; i < nParams; i++ {
		init[i] = logit(0.1)
	}
	res, err := optimize.Minimize(problem, init, &optimize.Settings{FuncEvaluations: 2000}, &optimize.NelderMead{})
	if res == nil {
		return nil, fmt.Errorf("ets %s: %w", form, err)
	}
	st := m.decode(res.X, form)
	sse, ok := etsFilter(y, st)
	if !ok {
		return nil, fmt.Errorf("ets %s: diverged", form)
	}
	n := float64(len(y))
	k := nParams + 1
	if form.Trend {
		k++
	}
	if form.Seasonal {
		k += m.period - 1
	}
	st.AIC = n*math.Log(math.Max(sse/n, 1e-12)) + 2*float64(k)
	return st, nil
}

// decode maps unconstrained optimizer coordinates onto admissible smoothing
// parameters: 0 < alpha < 1, 0 < beta < alpha, 0 < gamma < 1-alpha.
func (m *ETS) decode(u []float64, form etsForm) *etsState {
	st := &etsState{Model: form.String(), Trend: form.Trend, Seasonal: form.Seasonal, Period: m.period}
	st.Alpha = sigmoid(u[0])
	i := 1
	if form.Trend {
		st.Beta = st.Alpha * sigmoid(u[i])
		i++
	}
	if form.Seasonal {
		st.Gamma = (1 - st.Alpha) * sigmoid(u[i])
	}
	return st
}

// etsFilter initialises the states heuristically, runs the smoothing
// recursions over y and leaves the final states in st. It returns the sum of
// squared one-step errors.
func etsFilter(y []float64, st *etsState) (float64, bool) {
	m := st.Period
	var level, slope float64
	season := make([]float64, m)
	if st.Seasonal {
		first := mean(y[:m])
		level = first
		if st.Trend {
			slope = (mean(y[m:2*m]) - first) / float64(m)
		}
		for i := 0; i < m; i++ {
			season[i] = y[i] - first
		}
		adj := mean(season)
		for i := range season {
			season[i] -= adj
		}
	} else {
		level = y[0]
		if st.Trend {
			slope = y[1] - y[0]
		}
	}

	sse := 0.0
	for t, v := range y {
		phase := t % m
		s := 0.0
		if st.Seasonal {
			s = season[phase]
		}
		e := v - (level + slope + s)
		sse += e * e
		level = level + slope + st.Alpha*e
		if st.Trend {
			slope += st.Beta * e
		}
		if st.Seasonal {
			season[phase] = s + st.Gamma*e
		}
	}
	if math.IsNaN(sse) || math.IsInf(sse, 0) {
		return 0, false
	}
	st.Level, st.Slope, st.Season, st.N = level, slope, season, len(y)
	return sse, true
}

func (m *ETS) Forecast(ctx context.Context, x models.Frame) ([]float64, error) {
	if m.st == nil {
		return nil, models.ErrNotTrained
	}
	steps, _, err := stepsAfter(m.st.End, x.Dates)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(steps))
	for i, h := range steps {
		v := m.st.Level + float64(h)*m.st.Slope
		if m.st.Seasonal {
			v += m.st.Season[(m.st.N-1+h)%m.st.Period]
		}
		out[i] = v
	}
	return out, nil
}

func (m *ETS) MarshalState() ([]byte, error) {
	if m.st == nil {
		return nil, models.ErrUntrainedModel
	}
	if !allFinite([]float64{m.st.Level, m.st.Slope, m.st.Alpha, m.st.Beta, m.st.Gamma, m.st.AIC}) || !allFinite(m.st.Season) {
		return nil, fmt.Errorf("ets: non-finite state: %w", models.ErrTraining)
	}
	return json.Marshal(m.st)
}

func (m *ETS) UnmarshalState(data []byte) error {
	var st etsState
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("decode ets state: %w", err)
	}
	if st.N == 0 || st.Period <= 1 || len(st.Season) != st.Period {
		return fmt.Errorf("ets state is incomplete: %w", models.ErrUntrainedModel)
	}
	m.st = &st
	return nil
}

func sigmoid(v float64) float64 { return 1 / (1 + math.Exp(-v)) }

func logit(p float64) float64 { return math.Log(p / (1 - p)) }
