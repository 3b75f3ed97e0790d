package statistics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5}

	tests := []struct {
		q    float64
		want float64
	}{
		{0, 1},
		{0.25, 2},
		{0.5, 3},
		{0.75, 4},
		{1, 5},
		{0.1, 1.4},
		{-1, 1},
		{2, 5},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, quantile(sorted, tt.q), 1e-12, "q=%v", tt.q)
	}
}

func TestQuantile_EdgeCases(t *testing.T) {
	assert.True(t, math.IsNaN(quantile(nil, 0.5)))
	assert.Equal(t, 7.0, quantile([]float64{7}, 0.3))
	assert.Equal(t, 2.5, median([]float64{1, 2, 3, 4}))
}

func TestInterquartileRange(t *testing.T) {
	assert.Equal(t, 2.0, interquartileRange([]float64{1, 2, 3, 4, 5}))
	assert.Equal(t, 1.5, interquartileRange([]float64{1, 2, 3, 4}))
	assert.Equal(t, 0.0, interquartileRange([]float64{9}))
	assert.True(t, math.IsNaN(interquartileRange(nil)))
}

func TestSortedCopy(t *testing.T) {
	in := []float64{3, 1, 2}
	out := sortedCopy(in)
	assert.Equal(t, []float64{1, 2, 3}, out)
	assert.Equal(t, []float64{3, 1, 2}, in)
}

func TestMoments(t *testing.T) {
	m := accumulate([]float64{2, 4, 4, 4, 5, 5, 7, 9}, []float64{1, 1, 1, 1, 1, 1, 1, 1})
	assert.Equal(t, 8, m.n)
	assert.InDelta(t, 5.0, m.Mean(), 1e-12)
	assert.InDelta(t, 32.0/7.0, m.Variance(), 1e-12)
	assert.InDelta(t, 40.0, m.sum, 1e-12)

	var empty moments
	assert.True(t, math.IsNaN(empty.Mean()))
	assert.True(t, math.IsNaN(empty.Variance()))

	one := accumulate([]float64{3}, []float64{1})
	assert.Equal(t, 0.0, one.Variance())
}
