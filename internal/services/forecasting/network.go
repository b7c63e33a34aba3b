package forecasting

import (
	"math"
	"math/rand/v2"
)

type cellKind string

const (
	cellRNN  cellKind = "rnn"
	cellLSTM cellKind = "lstm"
)

func (k cellKind) gates() int {
	if k == cellLSTM {
		return 4
	}
	return 1
}

// network is a single-layer recurrent encoder followed by a dense head that
// reads the final hidden state and the flattened future features. All
// parameters live in one flat slice; the offsets below index into it.
type network struct {
	Kind    cellKind  `json:"kind"`
	In      int       `json:"in"`
	Hidden  int       `json:"hidden"`
	Out     int       `json:"out"`
	FutDim  int       `json:"fut_dim"`
	Weights []float64 `json:"weights"`
}

type layout struct {
	wx, wh, b, wo, wf, bo, size int
}

func (n *network) layout() layout {
	g := n.Kind.gates() * n.Hidden
	var l layout
	l.wx = 0
	l.wh = l.wx + g*n.In
	l.b = l.wh + g*n.Hidden
	l.wo = l.b + g
	l.wf = l.wo + n.Out*n.Hidden
	l.bo = l.wf + n.Out*n.FutDim
	l.size = l.bo + n.Out
	return l
}

func newNetwork(kind cellKind, in, hidden, out, futDim int, rng *rand.Rand) *network {
	n := &network{Kind: kind, In: in, Hidden: hidden, Out: out, FutDim: futDim}
	l := n.layout()
	n.Weights = make([]float64, l.size)
	rec := 1 / math.Sqrt(float64(hidden))
	for i := 0; i < l.wo; i++ {
		n.Weights[i] = (rng.Float64()*2 - 1) * rec
	}
	head := 1 / math.Sqrt(float64(hidden+futDim))
	for i := l.wo; i < l.size; i++ {
		n.Weights[i] = (rng.Float64()*2 - 1) * head
	}
	return n
}

// trace keeps the activations of one forward pass for backpropagation.
type trace struct {
	xs    [][]float64
	fut   []float64
	h     [][]float64 // h[t+1] is the state after step t; h[0] is zero
	c     [][]float64
	gates [][]float64
	out   []float64
}

func (n *network) forward(xs [][]float64, fut []float64) *trace {
	l := n.layout()
	H, G := n.Hidden, n.Kind.gates()*n.Hidden
	w := n.Weights
	tr := &trace{xs: xs, fut: fut}
	tr.h = append(tr.h, make([]float64, H))
	tr.c = append(tr.c, make([]float64, H))

	for _, x := range xs {
		hPrev := tr.h[len(tr.h)-1]
		cPrev := tr.c[len(tr.c)-1]
		pre := make([]float64, G)
		for r := 0; r < G; r++ {
			s := w[l.b+r]
			row := w[l.wx+r*n.In : l.wx+(r+1)*n.In]
			for k, v := range x {
				s += row[k] * v
			}
			rowH := w[l.wh+r*H : l.wh+(r+1)*H]
			for k, v := range hPrev {
				s += rowH[k] * v
			}
			pre[r] = s
		}
		h := make([]float64, H)
		c := make([]float64, H)
		act := make([]float64, G)
		if n.Kind == cellLSTM {
			for k := 0; k < H; k++ {
				i := sigmoid(pre[k])
				f := sigmoid(pre[H+k])
				g := math.Tanh(pre[2*H+k])
				o := sigmoid(pre[3*H+k])
				act[k], act[H+k], act[2*H+k], act[3*H+k] = i, f, g, o
				c[k] = f*cPrev[k] + i*g
				h[k] = o * math.Tanh(c[k])
			}
		} else {
			for k := 0; k < H; k++ {
				h[k] = math.Tanh(pre[k])
				act[k] = h[k]
			}
		}
		tr.h = append(tr.h, h)
		tr.c = append(tr.c, c)
		tr.gates = append(tr.gates, act)
	}

	hT := tr.h[len(tr.h)-1]
	tr.out = make([]float64, n.Out)
	for j := 0; j < n.Out; j++ {
		s := w[l.bo+j]
		for k, v := range hT {
			s += w[l.wo+j*H+k] * v
		}
		for m, v := range fut {
			s += w[l.wf+j*n.FutDim+m] * v
		}
		tr.out[j] = s
	}
	return tr
}

// backward accumulates the gradient of the loss with respect to every
// parameter into grad, given dOut = dLoss/dOutput.
func (n *network) backward(tr *trace, dOut []float64, grad []float64) {
	l := n.layout()
	H := n.Hidden
	w := n.Weights
	hT := tr.h[len(tr.h)-1]

	dh := make([]float64, H)
	for j, d := range dOut {
		if d == 0 {
			continue
		}
		grad[l.bo+j] += d
		for k, v := range hT {
			grad[l.wo+j*H+k] += d * v
			dh[k] += d * w[l.wo+j*H+k]
		}
		for m, v := range tr.fut {
			grad[l.wf+j*n.FutDim+m] += d * v
		}
	}

	G := n.Kind.gates() * H
	dc := make([]float64, H)
	dpre := make([]float64, G)
	for t := len(tr.xs) - 1; t >= 0; t-- {
		act := tr.gates[t]
		if n.Kind == cellLSTM {
			c := tr.c[t+1]
			cPrev := tr.c[t]
			for k := 0; k < H; k++ {
				i, f, g, o := act[k], act[H+k], act[2*H+k], act[3*H+k]
				tc := math.Tanh(c[k])
				dcK := dc[k] + dh[k]*o*(1-tc*tc)
				dpre[k] = dcK * g * i * (1 - i)
				dpre[H+k] = dcK * cPrev[k] * f * (1 - f)
				dpre[2*H+k] = dcK * i * (1 - g*g)
				dpre[3*H+k] = dh[k] * tc * o * (1 - o)
				dc[k] = dcK * f
			}
		} else {
			for k := 0; k < H; k++ {
				h := act[k]
				dpre[k] = dh[k] * (1 - h*h)
			}
		}

		x := tr.xs[t]
		hPrev := tr.h[t]
		next := make([]float64, H)
		for r := 0; r < G; r++ {
			d := dpre[r]
			if d == 0 {
				continue
			}
			grad[l.b+r] += d
			for k, v := range x {
				grad[l.wx+r*n.In+k] += d * v
			}
			for k, v := range hPrev {
				grad[l.wh+r*H+k] += d * v
				next[k] += d * w[l.wh+r*H+k]
			}
		}
		dh = next
	}
}

// adam holds first and second moment estimates for the flat parameter slice.
type adam struct {
	lr, beta1, beta2, eps float64
	m, v                  []float64
	t                     int
}

func newAdam(size int, lr float64) *adam {
	return &adam{lr: lr, beta1: 0.9, beta2: 0.999, eps: 1e-8, m: make([]float64, size), v: make([]float64, size)}
}

func (a *adam) step(params, grad []float64) {
	a.t++
	c1 := 1 - math.Pow(a.beta1, float64(a.t))
	c2 := 1 - math.Pow(a.beta2, float64(a.t))
	for i, g := range grad {
		a.m[i] = a.beta1*a.m[i] + (1-a.beta1)*g
		a.v[i] = a.beta2*a.v[i] + (1-a.beta2)*g*g
		params[i] -= a.lr * (a.m[i] / c1) / (math.Sqrt(a.v[i]/c2) + a.eps)
	}
}
