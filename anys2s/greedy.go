package anys2s

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/unixpickle/essentials"
)

// A GreedySearcher decodes a batch by picking the most
// likely symbol at every step.
//
// All utterances share one step loop, and each step is a
// single batched call covering the utterances which have
// not yet emitted the end symbol.
type GreedySearcher struct {
	Config    *Config
	Direction *Direction

	// Backward indicates that the direction produces its
	// output in reverse.
	// Labels are reversed back into reading order.
	Backward bool

	// StatusFunc, if non-nil, is called after every step
	// with a Status covering the entire batch.
	StatusFunc StatusFunc
}

// Decode runs greedy decoding on the batch.
//
// The outputs are in the same order as the utterances.
// If ctx is done before decoding finishes, the outputs
// so far are returned with Interrupted set.
//
// Since every step covers the whole batch, a step error
// aborts the entire batch.
func (g *GreedySearcher) Decode(ctx context.Context, b *Batch) ([]*Output, error) {
	if err := g.Config.Validate(); err != nil {
		return nil, err
	}
	if err := validateBatch(b); err != nil {
		return nil, err
	}
	stepper := Batched(g.Direction.Stepper)

	// Longer utterances come first, which keeps the live
	// part of the batch contiguous as in packed sequences.
	order := make([]int, len(b.Utterances))
	for i := range order {
		order[i] = i
	}
	sort.Stable(&lengthSorter{Order: order, Utterances: b.Utterances})

	hyps := make([]*Hypothesis, len(b.Utterances))
	for i, u := range b.Utterances {
		hyps[i] = newHypothesis(g.Direction.Start, u.Initial)
	}

	var interrupted bool
	for t := 0; t < g.Config.MaxDecodeLen; t++ {
		if ctx.Err() != nil {
			interrupted = true
			break
		}
		var live []int
		var reqs []*StepRequest
		for _, idx := range order {
			h := hyps[idx]
			if h.Complete {
				continue
			}
			live = append(live, idx)
			reqs = append(reqs, &StepRequest{
				Info: StepInfo{
					Context:    ctx,
					Utterance:  idx,
					Position:   t,
					GlobalStep: b.GlobalStep,
				},
				State:     h.State,
				Attention: h.prevAttention(b.Utterances[idx].InputLen),
				Prev:      h.Last(),
			})
		}
		if len(live) == 0 {
			break
		}

		results, err := stepper.StepBatch(ctx, reqs)
		if err != nil {
			if ctx.Err() != nil {
				interrupted = true
				break
			}
			return nil, fmt.Errorf("position %d: %w", t, err)
		} else if len(results) != len(reqs) {
			return nil, fmt.Errorf("position %d: expected %d step results but got %d",
				t, len(reqs), len(results))
		}
		for i, idx := range live {
			res := results[i]
			if len(res.LogProbs) == 0 {
				return nil, fmt.Errorf("utterance %d, position %d: %w", idx, t,
					errors.New("stepper produced an empty distribution"))
			}
			symbol := argmax(res.LogProbs)
			hyps[idx] = hyps[idx].extend(symbol, res.LogProbs[symbol], res.State,
				res.Attention, g.Direction.End)
		}

		if g.StatusFunc != nil {
			var complete int
			for _, h := range hyps {
				if h.Complete {
					complete++
				}
			}
			g.StatusFunc(&Status{
				Utterance: -1,
				Position:  t,
				Live:      len(hyps) - complete,
				Complete:  complete,
			})
		}
	}

	res := make([]*Output, len(hyps))
	for i, h := range hyps {
		res[i] = h.output(0, interrupted)
		if g.Backward {
			essentials.Reverse(res[i].Labels)
		}
	}
	return res, nil
}

// argmax finds the first index of the largest value,
// ignoring NaNs.
func argmax(x []float64) int {
	best := -1
	for i, v := range x {
		if math.IsNaN(v) {
			continue
		}
		if best < 0 || v > x[best] {
			best = i
		}
	}
	return essentials.MaxInt(best, 0)
}

type lengthSorter struct {
	Order      []int
	Utterances []*Utterance
}

func (l *lengthSorter) Len() int {
	return len(l.Order)
}

func (l *lengthSorter) Swap(i, j int) {
	l.Order[i], l.Order[j] = l.Order[j], l.Order[i]
}

func (l *lengthSorter) Less(i, j int) bool {
	return l.Utterances[l.Order[i]].InputLen > l.Utterances[l.Order[j]].InputLen
}
