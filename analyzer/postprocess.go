package analyzer

import (
	"math"
	"slices"
)

// Softmax normalizes logits after shifting them by their maximum.
// If every exponential underflows the unnormalized vector is returned.
func Softmax(logits []float32) []float32 {
	out := make([]float32, len(logits))
	if len(logits) == 0 {
		return out
	}

	m := logits[0]
	for _, v := range logits[1:] {
		if v > m {
			m = v
		}
	}

	var sum float32
	for i, v := range logits {
		out[i] = float32(math.Exp(float64(v - m)))
		sum += out[i]
	}

	if sum != 0 {
		for i := range out {
			out[i] /= sum
		}
	}
	return out
}

// SelectTopK picks min(k, len(probs)) indices by repeated linear scans.
//
// Each round starts from threshold 0 and index 0 and only moves on a strictly
// greater, not yet selected value. Ties therefore go to the lowest index, and
// when nothing left is above zero the round falls back to index 0 even if it
// was already picked.
func SelectTopK(probs []float32, k int) []int {
	n := min(k, len(probs))
	indices := make([]int, 0, max(n, 0))
	for range n {
		var best float32
		idx := 0
		for i, v := range probs {
			if v > best && !slices.Contains(indices, i) {
				best = v
				idx = i
			}
		}
		indices = append(indices, idx)
	}
	return indices
}
