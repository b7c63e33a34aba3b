package forecasting

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"DeclCast/internal/domain/models"
)

type forestState struct {
	Version int               `json:"version"`
	Seed    uint64            `json:"seed"`
	Columns []string          `json:"columns"`
	Trees   []*regressionTree `json:"trees"`
}

// Forest is a bagged ensemble of fully grown regression trees. Dates and the
// horizon hint are ignored; only the feature matrix matters.
type Forest struct {
	trees int
	seed  uint64
	st    *forestState
}

// NewForest returns an untrained forest of n trees seeded with seed.
func NewForest(n int, seed uint64) *Forest {
	if n <= 0 {
		n = 120
	}
	return &Forest{trees: n, seed: seed}
}

func (m *Forest) Type() models.ModelType { return models.ModelForest }

func (m *Forest) Train(ctx context.Context, x models.Frame, y []float64, _ []time.Time) error {
	if err := checkTrainingInput(x, y); err != nil {
		return err
	}
	n := len(y)
	if n < 2 {
		return fmt.Errorf("forest needs at least 2 rows, have %d: %w", n, models.ErrTraining)
	}
	rng := newRand(m.seed)
	st := &forestState{
		Version: stateVersion,
		Seed:    m.seed,
		Columns: append([]string(nil), x.Columns...),
		Trees:   make([]*regressionTree, 0, m.trees),
	}
	for k := 0; k < m.trees; k++ {
		if err := cancelled(ctx); err != nil {
			return err
		}
		sample := make([]int, n)
		for i := range sample {
			sample[i] = rng.IntN(n)
		}
		st.Trees = append(st.Trees, growTree(x.Rows, y, sample, treeParams{MinLeaf: 1}))
	}
	m.st = st
	return nil
}

func (m *Forest) Forecast(ctx context.Context, x models.Frame) ([]float64, error) {
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
		s := 0.0
		for _, t := range m.st.Trees {
			s += t.predict(row)
		}
		out[i] = s / float64(len(m.st.Trees))
	}
	return out, nil
}

func (m *Forest) MarshalState() ([]byte, error) {
	if m.st == nil {
		return nil, models.ErrUntrainedModel
	}
	return json.Marshal(m.st)
}

func (m *Forest) UnmarshalState(data []byte) error {
	var st forestState
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("decode forest state: %w", err)
	}
	if len(st.Trees) == 0 || len(st.Columns) == 0 {
		return fmt.Errorf("forest state is incomplete: %w", models.ErrUntrainedModel)
	}
	for i, t := range st.Trees {
		if t == nil || !t.valid(len(st.Columns)) {
			return fmt.Errorf("forest tree %d is malformed: %w", i, models.ErrUntrainedModel)
		}
	}
	m.st = &st
	return nil
}
