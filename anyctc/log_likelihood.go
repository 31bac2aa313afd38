package anyctc

import "math"

// LogLikelihood computes the exact log probability that
// the sequence of log-probability vectors collapses to the
// given label (which must not contain blank).
//
// This is the CTC forward algorithm.
// It is useful for rescoring labelings, since BeamSearch
// only reports the probability mass of paths that survived
// pruning.
func LogLikelihood(seq [][]float64, label []int, blank int) float64 {
	if len(seq) == 0 {
		if len(label) == 0 {
			return 0
		}
		return math.Inf(-1)
	}

	// positionProbs stores the log probabilities of
	// being at every position in the blank-infused
	// label, where blanks are injected at the start
	// and end of the label, and between entries.
	positionProbs := make([]float64, len(label)*2+1)
	for i := 1; i < len(positionProbs); i++ {
		positionProbs[i] = math.Inf(-1)
	}

	// The first timestep may start on the first label as
	// well as the leading blank, so we begin one step
	// "before" the sequence with all mass on the blank.
	newProbs := make([]float64, len(positionProbs))
	for _, input := range seq {
		logLikelihoodStep(input, positionProbs, newProbs, label, blank)
		positionProbs, newProbs = newProbs, positionProbs
	}

	if len(positionProbs) == 1 {
		return positionProbs[0]
	}
	return addLogs(positionProbs[len(positionProbs)-1], positionProbs[len(positionProbs)-2])
}

func logLikelihoodStep(input, last, newProbs []float64, label []int, blank int) {
	newProbs[0] = last[0] + input[blank]
	for i := 2; i < len(label)*2+1; i += 2 {
		newProbs[i] = addLogs(last[i-1], last[i]) + input[blank]
	}
	for i := 1; i < len(label)*2+1; i += 2 {
		labelIdx := (i - 1) / 2
		positionSum := addLogs(last[i], last[i-1])
		if labelIdx > 0 && label[labelIdx-1] != label[labelIdx] {
			positionSum = addLogs(positionSum, last[i-2])
		}
		newProbs[i] = input[label[labelIdx]] + positionSum
	}
}

// addLogs adds two numbers in the log domain.
// NaN arguments propagate to the result.
func addLogs(a, b float64) float64 {
	if math.IsInf(a, -1) {
		return b
	} else if math.IsInf(b, -1) {
		return a
	}
	normalizer := math.Max(a, b)
	exp1 := math.Exp(a - normalizer)
	exp2 := math.Exp(b - normalizer)
	return math.Log(exp1+exp2) + normalizer
}
