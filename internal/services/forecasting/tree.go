package forecasting

import (
	"math"
	"sort"
)

// regressionTree is a CART tree stored as flat node arrays so it serialises
// directly. Node 0 is the root; Feature == -1 marks a leaf.
type regressionTree struct {
	Feature     []int     `json:"feature"`
	Threshold   []float64 `json:"threshold"`
	Left        []int     `json:"left"`
	Right       []int     `json:"right"`
	Value       []float64 `json:"value"`
	MissingLeft []bool    `json:"missing_left"`
}

func (t *regressionTree) predict(row []float64) float64 {
	n := 0
	for t.Feature[n] >= 0 {
		v := row[t.Feature[n]]
		switch {
		case math.IsNaN(v):
			if t.MissingLeft[n] {
				n = t.Left[n]
			} else {
				n = t.Right[n]
			}
		case v <= t.Threshold[n]:
			n = t.Left[n]
		default:
			n = t.Right[n]
		}
	}
	return t.Value[n]
}

func (t *regressionTree) addNode(value float64) int {
	t.Feature = append(t.Feature, -1)
	t.Threshold = append(t.Threshold, 0)
	t.Left = append(t.Left, -1)
	t.Right = append(t.Right, -1)
	t.Value = append(t.Value, value)
	t.MissingLeft = append(t.MissingLeft, false)
	return len(t.Feature) - 1
}

func (t *regressionTree) valid(features int) bool {
	n := len(t.Feature)
	if n == 0 || len(t.Threshold) != n || len(t.Left) != n || len(t.Right) != n ||
		len(t.Value) != n || len(t.MissingLeft) != n {
		return false
	}
	for i := 0; i < n; i++ {
		if t.Feature[i] < 0 {
			continue
		}
		if t.Feature[i] >= features || t.Left[i] <= i || t.Right[i] <= i || t.Left[i] >= n || t.Right[i] >= n {
			return false
		}
	}
	return allFinite(t.Value) && allFinite(t.Threshold)
}

// treeParams controls growth. MaxLeaves <= 0 grows until no split improves
// the squared error.
type treeParams struct {
	MaxLeaves int
	MinLeaf   int
	// LeafValue computes a leaf's output from the sample indices it holds.
	// Nil means the mean of the fitted targets.
	LeafValue func(idx []int) float64
}

type split struct {
	feature     int
	threshold   float64
	gain        float64
	left, right []int
	missingLeft bool
}

type frontier struct {
	node int
	idx  []int
	best *split
}

// growTree fits a regression tree to targets g over rows. Nodes are expanded
// best-first by squared-error reduction.
func growTree(rows [][]float64, g []float64, idx []int, p treeParams) *regressionTree {
	if p.MinLeaf < 1 {
		p.MinLeaf = 1
	}
	leafValue := p.LeafValue
	if leafValue == nil {
		leafValue = func(ix []int) float64 {
			s := 0.0
			for _, i := range ix {
				s += g[i]
			}
			return s / float64(len(ix))
		}
	}

	t := &regressionTree{}
	root := t.addNode(leafValue(idx))
	open := []*frontier{{node: root, idx: idx, best: bestSplit(rows, g, idx, p.MinLeaf)}}
	leaves := 1

	for len(open) > 0 {
		if p.MaxLeaves > 0 && leaves >= p.MaxLeaves {
			break
		}
		pos := -1
		for i, f := range open {
			if f.best == nil {
				continue
			}
			if pos < 0 || f.best.gain > open[pos].best.gain {
				pos = i
			}
		}
		if pos < 0 {
			break
		}
		f := open[pos]
		open = append(open[:pos], open[pos+1:]...)

		s := f.best
		l := t.addNode(leafValue(s.left))
		r := t.addNode(leafValue(s.right))
		t.Feature[f.node] = s.feature
		t.Threshold[f.node] = s.threshold
		t.Left[f.node] = l
		t.Right[f.node] = r
		t.MissingLeft[f.node] = s.missingLeft
		leaves++

		open = append(open,
			&frontier{node: l, idx: s.left, best: bestSplit(rows, g, s.left, p.MinLeaf)},
			&frontier{node: r, idx: s.right, best: bestSplit(rows, g, s.right, p.MinLeaf)},
		)
	}
	return t
}

// bestSplit scans every feature for the threshold with the largest
// squared-error reduction. Samples missing the feature follow the side that
// received more samples.
func bestSplit(rows [][]float64, g []float64, idx []int, minLeaf int) *split {
	if len(idx) < 2*minLeaf {
		return nil
	}
	var best *split
	nf := len(rows[idx[0]])
	order := make([]int, 0, len(idx))
	for f := 0; f < nf; f++ {
		order = order[:0]
		for _, i := range idx {
			if !math.IsNaN(rows[i][f]) {
				order = append(order, i)
			}
		}
		if len(order) < 2*minLeaf {
			continue
		}
		sort.SliceStable(order, func(a, b int) bool { return rows[order[a]][f] < rows[order[b]][f] })

		total, totalSq := 0.0, 0.0
		for _, i := range order {
			total += g[i]
			totalSq += g[i] * g[i]
		}
		n := float64(len(order))
		parent := totalSq - total*total/n

		left := 0.0
		for k := 0; k < len(order)-1; k++ {
			left += g[order[k]]
			nl := k + 1
			nr := len(order) - nl
			if nl < minLeaf {
				continue
			}
			if nr < minLeaf {
				break
			}
			lo, hi := rows[order[k]][f], rows[order[k+1]][f]
			if lo == hi {
				continue
			}
			right := total - left
			// parent SSE minus child SSEs; the squared sums cancel
			gain := left*left/float64(nl) + right*right/float64(nr) - total*total/n
			if gain <= 1e-12*(1+math.Abs(parent)) {
				continue
			}
			if best == nil || gain > best.gain {
				thr := lo + (hi-lo)/2
				if thr >= hi {
					thr = lo
				}
				best = &split{feature: f, threshold: thr, gain: gain, missingLeft: nl >= nr}
			}
		}
	}
	if best != nil {
		for _, i := range idx {
			v := rows[i][best.feature]
			goLeft := v <= best.threshold
			if math.IsNaN(v) {
				goLeft = best.missingLeft
			}
			if goLeft {
				best.left = append(best.left, i)
			} else {
				best.right = append(best.right, i)
			}
		}
	}
	return best
}
