package analyzer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sum(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x)
	}
	return s
}

func TestSoftmaxSumsToOne(t *testing.T) {
	cases := [][]float32{
		{0},
		{1, 2, 3, 0, 0},
		{-10, 0, 10},
		{1000, 999, -1000},
		{-1000, -1001, -1002},
		{3.5, 3.5, 3.5, 3.5},
	}
	for _, logits := range cases {
		probs := Softmax(logits)
		require.Len(t, probs, len(logits))
		assert.InDelta(t, 1.0, sum(probs), 1e-5, "logits %v", logits)
		for _, p := range probs {
			assert.False(t, math.IsNaN(float64(p)))
			assert.GreaterOrEqual(t, p, float32(0))
		}
	}
}

func TestSoftmaxShiftInvariant(t *testing.T) {
	logits := []float32{0.3, -1.2, 4.0, 2.2, 0}
	base := Softmax(logits)
	for _, c := range []float32{-50, -1, 0.5, 7, 80} {
		shifted := make([]float32, len(logits))
		for i, v := range logits {
			shifted[i] = v + c
		}
		got := Softmax(shifted)
		for i := range base {
			assert.InDelta(t, base[i], got[i], 1e-4, "shift %v index %d", c, i)
		}
	}
}

func TestSoftmaxLargeLogitsDoNotOverflow(t *testing.T) {
	probs := Softmax([]float32{1e6, 1e6 - 1})
	assert.InDelta(t, 1/(1+math.Exp(-1)), probs[0], 1e-5)
	assert.InDelta(t, math.Exp(-1)/(1+math.Exp(-1)), probs[1], 1e-5)
}

func TestSoftmaxEmpty(t *testing.T) {
	assert.Empty(t, Softmax(nil))
}

func TestSoftmaxDoesNotModifyInput(t *testing.T) {
	logits := []float32{3, 1, 2}
	Softmax(logits)
	assert.Equal(t, []float32{3, 1, 2}, logits)
}

func TestSoftmaxAndTopKScenario(t *testing.T) {
	probs := Softmax([]float32{1, 2, 3, 0, 0})

	denom := math.E + math.Exp(2) + math.Exp(3) + 2
	want := []float64{math.E / denom, math.Exp(2) / denom, math.Exp(3) / denom, 1 / denom, 1 / denom}
	for i := range want {
		assert.InDelta(t, want[i], probs[i], 1e-5)
	}

	assert.Equal(t, []int{2, 1, 0}, SelectTopK(probs, TopK))
}

func TestTopKTiesPickLowestIndex(t *testing.T) {
	probs := Softmax([]float32{5, 5, 5})
	for _, p := range probs {
		assert.InDelta(t, 1.0/3, p, 1e-6)
	}
	assert.Equal(t, []int{0, 1, 2}, SelectTopK(probs, TopK))

	assert.Equal(t, []int{1, 3, 0}, SelectTopK([]float32{0.1, 0.4, 0.1, 0.4}, 3))
}

func TestTopKLength(t *testing.T) {
	assert.Empty(t, SelectTopK(nil, 3))
	assert.Len(t, SelectTopK([]float32{1}, 3), 1)
	assert.Len(t, SelectTopK([]float32{0.6, 0.4}, 3), 2)
	assert.Len(t, SelectTopK([]float32{0.1, 0.2, 0.3, 0.4}, 3), 3)
	assert.Empty(t, SelectTopK([]float32{0.1, 0.2}, 0))
}

func TestTopKIndicesInRange(t *testing.T) {
	probs := Softmax([]float32{0.5, -3, 8, 2, 2, 9, -1})
	got := SelectTopK(probs, TopK)
	assert.Equal(t, []int{5, 2, 3}, got)
	for _, idx := range got {
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, len(probs))
	}
}

// Rounds that find nothing above zero fall back to index 0, which can repeat.
func TestTopKDefaultIndexRepeats(t *testing.T) {
	assert.Equal(t, []int{0, 1, 0}, SelectTopK([]float32{0.5, 0.5, 0, 0}, 3))
	assert.Equal(t, []int{2, 0, 0}, SelectTopK([]float32{0, 0, 1}, 3))
	assert.Equal(t, []int{0, 0, 0}, SelectTopK([]float32{0, 0, 0}, 3))
	assert.Equal(t, []int{1, 0, 0}, SelectTopK([]float32{-1, 0.2, -0.5}, 3))
}
