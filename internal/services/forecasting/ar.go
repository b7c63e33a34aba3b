package forecasting

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"DeclCast/internal/domain/models"
)

const (
	arMinPoints = 16
	// adfCritical is the 5% Dickey-Fuller critical value for a regression
	// with a constant.
	adfCritical = -2.86
	arMaxDiff   = 2
)

type arState struct {
	Version   int       `json:"version"`
	D         int       `json:"d"`
	P         int       `json:"p"`
	Intercept float64   `json:"intercept"`
	Coefs     []float64 `json:"coefs"`
	AIC       float64   `json:"aic"`
	Series    []float64 `json:"series"`
	End       time.Time `json:"end"`
}

// AR is an automatically specified ARIMA(p, d, 0) model. The differencing
// order comes from repeated augmented Dickey-Fuller tests and the lag order
// from AIC over ordinary least squares fits.
type AR struct {
	maxLag int
	st     *arState
}

// NewAR returns an untrained AR model searching lags up to maxLag.
func NewAR(maxLag int) *AR {
	if maxLag <= 0 {
		maxLag = 3
	}
	return &AR{maxLag: maxLag}
}

func (m *AR) Type() models.ModelType { return models.ModelARIMA }

func (m *AR) Train(ctx context.Context, x models.Frame, y []float64, _ []time.Time) error {
	if err := checkTrainingInput(x, y); err != nil {
		return err
	}
	if err := orderedDates(x.Dates); err != nil {
		return err
	}
	if len(y) < arMinPoints {
		return fmt.Errorf("arima needs %d points, have %d: %w", arMinPoints, len(y), models.ErrTraining)
	}
	if isConstant(y) {
		return fmt.Errorf("arima: series has a single unique value: %w", models.ErrTraining)
	}

	z := append([]float64(nil), y...)
	d := 0
	for d < arMaxDiff && !adfStationary(z) {
		z = difference(z)
		d++
	}
	if err := cancelled(ctx); err != nil {
		return err
	}

	best := arState{AIC: math.Inf(1)}
	for p := 0; p <= m.maxLag; p++ {
		intercept, coefs, aic, err := fitAR(z, p, m.maxLag)
		if err != nil {
			continue
		}
		if aic < best.AIC {
			best = arState{P: p, Intercept: intercept, Coefs: coefs, AIC: aic}
		}
	}
	if math.IsInf(best.AIC, 1) {
		return fmt.Errorf("arima: no lag order could be fitted: %w", models.ErrTraining)
	}
	best.Version = stateVersion
	best.D = d
	best.Series = append([]float64(nil), y...)
	best.End = x.Dates[len(x.Dates)-1]
	m.st = &best
	return nil
}

func (m *AR) Forecast(ctx context.Context, x models.Frame) ([]float64, error) {
	if m.st == nil {
		return nil, models.ErrNotTrained
	}
	steps, h, err := stepsAfter(m.st.End, x.Dates)
	if err != nil {
		return nil, err
	}

	levels := [][]float64{m.st.Series}
	for i := 0; i < m.st.D; i++ {
		levels = append(levels, difference(levels[i]))
	}
	z := levels[m.st.D]

	hist := append([]float64(nil), z...)
	path := make([]float64, h)
	for i := 0; i < h; i++ {
		v := m.st.Intercept
		for k, c := range m.st.Coefs {
			v += c * hist[len(hist)-1-k]
		}
		hist = append(hist, v)
		path[i] = v
	}
	for lvl := m.st.D - 1; lvl >= 0; lvl-- {
		acc := levels[lvl][len(levels[lvl])-1]
		for i := range path {
			acc += path[i]
			path[i] = acc
		}
	}
	return pick(path, steps), nil
}

func (m *AR) MarshalState() ([]byte, error) {
	if m.st == nil {
		return nil, models.ErrUntrainedModel
	}
	if !allFinite(m.st.Coefs) || !allFinite([]float64{m.st.Intercept, m.st.AIC}) {
		return nil, fmt.Errorf("arima: non-finite coefficients: %w", models.ErrTraining)
	}
	return json.Marshal(m.st)
}

func (m *AR) UnmarshalState(data []byte) error {
	var st arState
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("decode arima state: %w", err)
	}
	if len(st.Series) == 0 || len(st.Coefs) != st.P {
		return fmt.Errorf("arima state is incomplete: %w", models.ErrUntrainedModel)
	}
	m.st = &st
	return nil
}

func difference(v []float64) []float64 {
	if len(v) < 2 {
		return nil
	}
	out := make([]float64, len(v)-1)
	for i := 1; i < len(v); i++ {
		out[i-1] = v[i] - v[i-1]
	}
	return out
}

// fitAR regresses z_t on a constant and p own lags. All orders share the
// sample starting at maxLag so their AIC values are comparable.
func fitAR(z []float64, p, maxLag int) (float64, []float64, float64, error) {
	n := len(z) - maxLag
	k := p + 1
	if n < k+2 {
		return 0, nil, 0, fmt.Errorf("too few observations for p=%d", p)
	}
	X := mat.NewDense(n, k, nil)
	yv := mat.NewVecDense(n, nil)
	for r := 0; r < n; r++ {
		t := r + maxLag
		X.Set(r, 0, 1)
		for j := 1; j <= p; j++ {
			X.Set(r, j, z[t-j])
		}
		yv.SetVec(r, z[t])
	}
	beta, rss, err := ols(X, yv)
	if err != nil {
		return 0, nil, 0, err
	}
	coefs := make([]float64, p)
	for j := 0; j < p; j++ {
		coefs[j] = beta.AtVec(j + 1)
	}
	sigma2 := math.Max(rss/float64(n), 1e-12)
	aic := float64(n)*math.Log(sigma2) + 2*float64(k+1)
	return beta.AtVec(0), coefs, aic, nil
}

func ols(X *mat.Dense, y *mat.VecDense) (*mat.VecDense, float64, error) {
	var beta mat.VecDense
	if err := beta.SolveVec(X, y); err != nil {
		return nil, 0, err
	}
	var fitted mat.VecDense
	fitted.MulVec(X, &beta)
	var resid mat.VecDense
	resid.SubVec(y, &fitted)
	rss := mat.Dot(&resid, &resid)
	if math.IsNaN(rss) {
		return nil, 0, fmt.Errorf("singular design")
	}
	return &beta, rss, nil
}

// adfStationary runs an augmented Dickey-Fuller regression with one lagged
// difference and reports whether the unit root is rejected at 5%.
func adfStationary(z []float64) bool {
	if isConstant(z) {
		return true
	}
	dz := difference(z)
	n := len(dz) - 1
	if n < 6 {
		return true
	}
	X := mat.NewDense(n, 3, nil)
	yv := mat.NewVecDense(n, nil)
	for r := 0; r < n; r++ {
		t := r + 1
		X.Set(r, 0, 1)
		X.Set(r, 1, z[t])
		X.Set(r, 2, dz[t-1])
		yv.SetVec(r, dz[t])
	}
	beta, rss, err := ols(X, yv)
	if err != nil {
		return true
	}
	var xtx, inv mat.Dense
	xtx.Mul(X.T(), X)
	if err := inv.Inverse(&xtx); err != nil {
		return true
	}
	sigma2 := rss / float64(n-3)
	se := math.Sqrt(sigma2 * inv.At(1, 1))
	if se == 0 || math.IsNaN(se) {
		return true
	}
	return beta.AtVec(1)/se < adfCritical
}
