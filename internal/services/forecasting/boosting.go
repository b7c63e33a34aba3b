package forecasting

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"DeclCast/internal/domain/models"
)

// BoostingParams configures gradient boosting with absolute-error loss.
type BoostingParams struct {
	Iterations   int
	LearningRate float64
	MaxLeaves    int
	MinLeaf      int
	Seed         uint64
}

type boostingState struct {
	Version      int               `json:"version"`
	Seed         uint64            `json:"seed"`
	LearningRate float64           `json:"learning_rate"`
	Init         float64           `json:"init"`
	Columns      []string          `json:"columns"`
	Trees        []*regressionTree `json:"trees"`
}

// Boosting fits leaf-wise trees to the sign of the residuals and sets each
// leaf to the median residual it holds, which minimises absolute error.
type Boosting struct {
	p  BoostingParams
	st *boostingState
}

// NewBoosting returns an untrained boosting model.
func NewBoosting(p BoostingParams) *Boosting {
	return &Boosting{p: p}
}

func (m *Boosting) Type() models.ModelType { return models.ModelXGBoost }

func (m *Boosting) Train(ctx context.Context, x models.Frame, y []float64, _ []time.Time) error {
	if err := checkTrainingInput(x, y); err != nil {
		return err
	}
	n := len(y)
	if n < 2 {
		return fmt.Errorf("boosting needs at least 2 rows, have %d: %w", n, models.ErrTraining)
	}

	st := &boostingState{
		Version:      stateVersion,
		Seed:         m.p.Seed,
		LearningRate: m.p.LearningRate,
		Init:         median(y),
		Columns:      append([]string(nil), x.Columns...),
	}
	pred := make([]float64, n)
	for i := range pred {
		pred[i] = st.Init
	}
	resid := make([]float64, n)
	grad := make([]float64, n)
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}

	for it := 0; it < m.p.Iterations; it++ {
		if err := cancelled(ctx); err != nil {
			return err
		}
		done := true
		for i := range y {
			resid[i] = y[i] - pred[i]
			switch {
			case resid[i] > 0:
				grad[i] = 1
				done = false
			case resid[i] < 0:
				grad[i] = -1
				done = false
			default:
				grad[i] = 0
			}
		}
		if done {
			break
		}
		tree := growTree(x.Rows, grad, all, treeParams{
			MaxLeaves: m.p.MaxLeaves,
			MinLeaf:   m.p.MinLeaf,
			LeafValue: func(idx []int) float64 {
				vals := make([]float64, len(idx))
				for k, i := range idx {
					vals[k] = resid[i]
				}
				return median(vals)
			},
		})
		st.Trees = append(st.Trees, tree)
		for i, row := range x.Rows {
			pred[i] += m.p.LearningRate * tree.predict(row)
		}
	}
	m.st = st
	return nil
}

func (m *Boosting) Forecast(ctx context.Context, x models.Frame) ([]float64, error) {
	if m.st == nil {
		return nil, models.ErrNotTrained
	}
	if x.Len() == 0 {
		return nil, fmt.Errorf("empty forecast index: %w", models.ErrInvalidHorizon)
	}
	if err := checkColumns(m.st.Columns, x); err != nil {
		return nil, err
	}
	out := make([]float64, x.Len())
	for i, row := range x.Rows {
		v := m.st.Init
		for _, t := range m.st.Trees {
			v += m.st.LearningRate * t.predict(row)
		}
		out[i] = v
	}
	return out, nil
}

func (m *Boosting) MarshalState() ([]byte, error) {
	if m.st == nil {
		return nil, models.ErrUntrainedModel
	}
	return json.Marshal(m.st)
}

func (m *Boosting) UnmarshalState(data []byte) error {
	var st boostingState
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("decode boosting state: %w", err)
	}
	if len(st.Columns) == 0 {
		return fmt.Errorf("boosting state is incomplete: %w", models.ErrUntrainedModel)
	}
	for i, t := range st.Trees {
		if t == nil || !t.valid(len(st.Columns)) {
			return fmt.Errorf("boosting tree %d is malformed: %w", i, models.ErrUntrainedModel)
		}
	}
	m.st = &st
	return nil
}
