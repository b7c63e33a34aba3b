package forecasting

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"DeclCast/internal/domain/models"
)

// RecurrentParams configures the recurrent forecasters.
type RecurrentParams struct {
	InputSize    int
	Hidden       int
	Steps        int
	Batch        int
	LearningRate float64
	Seed         uint64
}

type recurrentState struct {
	Version   int         `json:"version"`
	Kind      cellKind    `json:"kind"`
	InputSize int         `json:"input_size"`
	Horizon   int         `json:"horizon"`
	Seed      uint64      `json:"seed"`
	Columns   []string    `json:"columns"`
	Target    scaler      `json:"target_scaler"`
	Features  []scaler    `json:"feature_scalers"`
	Window    [][]float64 `json:"window"`
	Net       *network    `json:"net"`
	End       time.Time   `json:"end"`
}

// recurrent trains a direct multi-horizon network: the encoder reads the last
// InputSize days of target and features, the head emits one value per
// horizon day. The horizon length is fixed at training time.
type recurrent struct {
	kind  cellKind
	p     RecurrentParams
	scale func([]float64) scaler
	st    *recurrentState
}

// RNN is the Elman-cell variant with standard scaling.
type RNN struct{ recurrent }

// LSTM is the long short-term memory variant with robust scaling.
type LSTM struct{ recurrent }

// NewRNN returns an untrained simple recurrent forecaster.
func NewRNN(p RecurrentParams) *RNN {
	return &RNN{recurrent{kind: cellRNN, p: p, scale: standardScaler}}
}

// NewLSTM returns an untrained LSTM forecaster.
func NewLSTM(p RecurrentParams) *LSTM {
	return &LSTM{recurrent{kind: cellLSTM, p: p, scale: robustScaler}}
}

func (m *RNN) Type() models.ModelType  { return models.ModelRNN }
func (m *LSTM) Type() models.ModelType { return models.ModelLSTM }

func (m *recurrent) Train(ctx context.Context, x models.Frame, y []float64, horizon []time.Time) error {
	if err := checkTrainingInput(x, y); err != nil {
		return err
	}
	h := len(horizon)
	if h == 0 {
		return fmt.Errorf("%s requires the forecast horizon at training time: %w", m.kind, models.ErrInvalidHorizon)
	}
	L := m.p.InputSize
	n := len(y)
	windows := n - L - h + 1
	if windows < 1 {
		return fmt.Errorf("%s needs %d rows for input %d and horizon %d, have %d: %w",
			m.kind, L+h, L, h, n, models.ErrTraining)
	}

	nf := len(x.Columns)
	st := &recurrentState{
		Version:   stateVersion,
		Kind:      m.kind,
		InputSize: L,
		Horizon:   h,
		Seed:      m.p.Seed,
		Columns:   append([]string(nil), x.Columns...),
		Target:    m.scale(y),
		Features:  make([]scaler, nf),
		End:       x.Dates[len(x.Dates)-1],
	}
	for j := 0; j < nf; j++ {
		col := make([]float64, n)
		for i, row := range x.Rows {
			col[i] = row[j]
		}
		st.Features[j] = m.scale(col)
	}

	inputs := make([][]float64, n)
	futures := make([][]float64, n)
	ty := make([]float64, n)
	for i, row := range x.Rows {
		ty[i] = st.Target.apply(y[i])
		futures[i] = st.scaleFeatures(row)
		inputs[i] = append([]float64{ty[i]}, futures[i]...)
	}

	rng := newRand(m.p.Seed)
	net := newNetwork(m.kind, 1+nf, m.p.Hidden, h, h*nf, rng)
	opt := newAdam(len(net.Weights), m.p.LearningRate)
	grad := make([]float64, len(net.Weights))
	batch := m.p.Batch
	if batch > windows {
		batch = windows
	}
	dOut := make([]float64, h)
	fut := make([]float64, 0, h*nf)

	for step := 0; step < m.p.Steps; step++ {
		if err := cancelled(ctx); err != nil {
			return err
		}
		for i := range grad {
			grad[i] = 0
		}
		for b := 0; b < batch; b++ {
			s := rng.IntN(windows)
			fut = fut[:0]
			for k := 0; k < h; k++ {
				fut = append(fut, futures[s+L+k]...)
			}
			tr := net.forward(inputs[s:s+L], fut)
			for k := 0; k < h; k++ {
				diff := tr.out[k] - ty[s+L+k]
				switch {
				case diff > 0:
					dOut[k] = 1 / float64(batch*h)
				case diff < 0:
					dOut[k] = -1 / float64(batch*h)
				default:
					dOut[k] = 0
				}
			}
			net.backward(tr, dOut, grad)
		}
		opt.step(net.Weights, grad)
	}
	if !allFinite(net.Weights) {
		return fmt.Errorf("%s training diverged: %w", m.kind, models.ErrTraining)
	}

	st.Net = net
	st.Window = make([][]float64, L)
	for i := range st.Window {
		st.Window[i] = append([]float64(nil), inputs[n-L+i]...)
	}
	m.st = st
	return nil
}

func (st *recurrentState) scaleFeatures(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = st.Features[j].apply(v)
	}
	return out
}

func (m *recurrent) Forecast(ctx context.Context, x models.Frame) ([]float64, error) {
	if m.st == nil {
		return nil, models.ErrNotTrained
	}
	if x.Len() != m.st.Horizon {
		return nil, fmt.Errorf("%s was trained for %d days, asked for %d: %w",
			m.kind, m.st.Horizon, x.Len(), models.ErrInvalidHorizon)
	}
	if err := checkColumns(m.st.Columns, x); err != nil {
		return nil, err
	}
	fut := make([]float64, 0, m.st.Horizon*len(m.st.Columns))
	for _, row := range x.Rows {
		fut = append(fut, m.st.scaleFeatures(row)...)
	}
	tr := m.st.Net.forward(m.st.Window, fut)
	out := make([]float64, len(tr.out))
	for i, v := range tr.out {
		out[i] = m.st.Target.invert(v)
	}
	return out, nil
}

func (m *recurrent) MarshalState() ([]byte, error) {
	if m.st == nil {
		return nil, models.ErrUntrainedModel
	}
	return json.Marshal(m.st)
}

func (m *recurrent) UnmarshalState(data []byte) error {
	var st recurrentState
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("decode %s state: %w", m.kind, err)
	}
	if st.Kind != m.kind {
		return fmt.Errorf("state holds a %s network, want %s: %w", st.Kind, m.kind, models.ErrUntrainedModel)
	}
	if st.Net == nil || st.Horizon <= 0 || len(st.Window) != st.InputSize ||
		len(st.Features) != len(st.Columns) || len(st.Net.Weights) != st.Net.layout().size {
		return fmt.Errorf("%s state is incomplete: %w", m.kind, models.ErrUntrainedModel)
	}
	m.st = &st
	return nil
}
