package forecasting

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrowTreeSplitsStep(t *testing.T) {
	rows := [][]float64{{1}, {2}, {3}, {4}, {5}, {6}}
	g := []float64{0, 0, 0, 10, 10, 10}
	idx := []int{0, 1, 2, 3, 4, 5}

	tr := growTree(rows, g, idx, treeParams{MinLeaf: 1})
	require.True(t, tr.valid(1))
	assert.Equal(t, 0, tr.Feature[0])
	assert.InDelta(t, 3.5, tr.Threshold[0], 1e-12)
	assert.Equal(t, 0.0, tr.predict([]float64{2}))
	assert.Equal(t, 10.0, tr.predict([]float64{5}))
}

func TestGrowTreeRoutesMissingToLargerChild(t *testing.T) {
	rows := [][]float64{{1}, {2}, {3}, {4}, {5}}
	g := []float64{1, 1, 1, 1, 9}
	tr := growTree(rows, g, []int{0, 1, 2, 3, 4}, treeParams{MinLeaf: 1})
	assert.Equal(t, 1.0, tr.predict([]float64{math.NaN()}))
}

func TestGrowTreeRespectsMaxLeaves(t *testing.T) {
	rows := make([][]float64, 64)
	g := make([]float64, 64)
	idx := make([]int, 64)
	for i := range rows {
		rows[i] = []float64{float64(i)}
		g[i] = float64(i * i)
		idx[i] = i
	}
	tr := growTree(rows, g, idx, treeParams{MaxLeaves: 4, MinLeaf: 1})
	leaves := 0
	for _, f := range tr.Feature {
		if f < 0 {
			leaves++
		}
	}
	assert.Equal(t, 4, leaves)
}

func TestGrowTreeMinLeafBlocksSplit(t *testing.T) {
	rows := [][]float64{{1}, {2}, {3}}
	g := []float64{0, 5, 10}
	tr := growTree(rows, g, []int{0, 1, 2}, treeParams{MinLeaf: 2})
	assert.Len(t, tr.Feature, 1)
	assert.InDelta(t, 5, tr.Value[0], 1e-12)
}

func TestQuantileSorted(t *testing.T) {
	s := []float64{1, 2, 3, 4}
	assert.InDelta(t, 2.5, quantileSorted(s, 0.5), 1e-12)
	assert.InDelta(t, 1.75, quantileSorted(s, 0.25), 1e-12)
	assert.Equal(t, 1.0, robustScaler([]float64{3, 3, 3}).Scale)
}
