package forecasting

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// scaler is an affine per-column transform: (v - Center) / Scale.
type scaler struct {
	Center float64 `json:"center"`
	Scale  float64 `json:"scale"`
}

func (s scaler) apply(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return (v - s.Center) / s.Scale
}

func (s scaler) invert(v float64) float64 { return v*s.Scale + s.Center }

func finiteValues(v []float64) []float64 {
	out := make([]float64, 0, len(v))
	for _, x := range v {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			out = append(out, x)
		}
	}
	return out
}

// standardScaler centres on the mean and scales by the standard deviation.
func standardScaler(v []float64) scaler {
	vals := finiteValues(v)
	if len(vals) == 0 {
		return scaler{Scale: 1}
	}
	m, sd := stat.PopMeanStdDev(vals, nil)
	if sd == 0 || math.IsNaN(sd) {
		sd = 1
	}
	return scaler{Center: m, Scale: sd}
}

// robustScaler centres on the median and scales by the interquartile range.
func robustScaler(v []float64) scaler {
	vals := finiteValues(v)
	if len(vals) == 0 {
		return scaler{Scale: 1}
	}
	sort.Float64s(vals)
	iqr := quantileSorted(vals, 0.75) - quantileSorted(vals, 0.25)
	if iqr == 0 {
		iqr = 1
	}
	return scaler{Center: quantileSorted(vals, 0.5), Scale: iqr}
}

// quantileSorted interpolates linearly between order statistics at position
// q*(n-1). stat.Quantile has no such mode: its LinInterp places the quantiles
// differently.
func quantileSorted(s []float64, q float64) float64 {
	if len(s) == 1 {
		return s[0]
	}
	pos := q * float64(len(s)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return s[lo] + (s[hi]-s[lo])*frac
}
