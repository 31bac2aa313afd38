package anys2s

import (
	"math"
	"sort"
)

// A Hypothesis is a partial or complete output sequence
// under consideration by a search.
type Hypothesis struct {
	// Symbols starts with the start symbol.
	Symbols []int

	// Score is the total log probability of the symbols
	// after the start symbol.
	Score float64

	// State is owned exclusively by this hypothesis.
	State State

	// Attention has one row per symbol after the start
	// symbol.
	Attention [][]float64

	// Complete is set once the end symbol is emitted.
	Complete bool
}

func newHypothesis(start int, s State) *Hypothesis {
	return &Hypothesis{Symbols: []int{start}, State: s}
}

// Last returns the most recent symbol.
func (h *Hypothesis) Last() int {
	return h.Symbols[len(h.Symbols)-1]
}

// Labels returns the symbols between the start and end
// symbols.
func (h *Hypothesis) Labels() []int {
	end := len(h.Symbols)
	if h.Complete {
		end--
	}
	return append([]int{}, h.Symbols[1:end]...)
}

// AdjustedScore applies a length penalty to the score.
// The length includes the start and end symbols.
func (h *Hypothesis) AdjustedScore(lengthPenalty float64) float64 {
	return h.Score + float64(len(h.Symbols))*lengthPenalty
}

// extend creates a child hypothesis with one more symbol.
// The child takes ownership of s, and gets its own copy
// of the attention row.
func (h *Hypothesis) extend(symbol int, logProb float64, s State,
	attention []float64, end int) *Hypothesis {
	symbols := make([]int, len(h.Symbols), len(h.Symbols)+1)
	copy(symbols, h.Symbols)
	att := make([][]float64, len(h.Attention), len(h.Attention)+1)
	copy(att, h.Attention)
	return &Hypothesis{
		Symbols:   append(symbols, symbol),
		Score:     h.Score + logProb,
		State:     s,
		Attention: append(att, append([]float64{}, attention...)),
		Complete:  symbol == end,
	}
}

// prevAttention returns a copy of the attention of the
// last step, or zeros before the first step.
// A Stepper may modify the result without affecting the
// trace.
func (h *Hypothesis) prevAttention(inputLen int) []float64 {
	if len(h.Attention) == 0 {
		return make([]float64, inputLen)
	}
	return append([]float64{}, h.Attention[len(h.Attention)-1]...)
}

func (h *Hypothesis) output(lengthPenalty float64, interrupted bool) *Output {
	return &Output{
		Labels:      h.Labels(),
		Attention:   append([][]float64{}, h.Attention...),
		Score:       h.AdjustedScore(lengthPenalty),
		Interrupted: interrupted,
	}
}

// bestHypothesis finds the hypothesis with the highest
// adjusted score, preferring earlier ones in case of ties.
func bestHypothesis(hyps []*Hypothesis, lengthPenalty float64) *Hypothesis {
	scores := make([]float64, len(hyps))
	for i, h := range hyps {
		scores[i] = h.AdjustedScore(lengthPenalty)
	}
	order := descendingOrder(scores)
	return hyps[order[0]]
}

// descendingOrder returns the indices of the scores from
// highest to lowest.
// The sort is stable, and NaN scores come last.
func descendingOrder(scores []float64) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := scores[order[i]], scores[order[j]]
		return a > b || (math.IsNaN(b) && !math.IsNaN(a))
	})
	return order
}
