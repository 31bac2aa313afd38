package anyctc

import "math"

// GreedyLabels performs best-path decoding: it picks the
// most likely class at every timestep, merges adjacent
// repeats, and then removes blanks.
//
// This is much cheaper than BeamSearch, but it only looks
// at one path, so it may miss labelings whose probability
// is spread over many paths.
func GreedyLabels(seq [][]float64, blank int) []int {
	res := []int{}
	prev := -1
	for _, x := range seq {
		idx := maxIndex(x)
		if idx != prev && idx != blank {
			res = append(res, idx)
		}
		prev = idx
	}
	return res
}

// maxIndex finds the index of the largest value, using
// the first one in case of a tie.
// NaN values are never selected unless every value is NaN.
func maxIndex(x []float64) int {
	best := -1
	for i, v := range x {
		if math.IsNaN(v) {
			continue
		}
		if best < 0 || v > x[best] {
			best = i
		}
	}
	if best < 0 && len(x) > 0 {
		return 0
	}
	return best
}
