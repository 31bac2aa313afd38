package anys2s

import (
	"context"
	"errors"
	"fmt"

	"github.com/unixpickle/essentials"
)

// A BeamSearcher decodes each utterance with an
// independent beam search.
type BeamSearcher struct {
	Config    *Config
	Direction *Direction

	// StatusFunc, if non-nil, is called after every step.
	StatusFunc StatusFunc
}

// Decode runs a beam search for every utterance.
//
// Up to s.Config.Workers utterances are decoded at once.
// The outputs are in the same order as the utterances.
//
// If ctx is done before decoding finishes, the best
// hypotheses found so far are returned with Interrupted
// set, and no error is reported.
//
// Utterances are decoded independently: if one fails, its
// output is nil, the others are still decoded, and a
// *BatchError describing the failures is returned.
func (s *BeamSearcher) Decode(ctx context.Context, b *Batch) ([]*Output, error) {
	if err := s.Config.Validate(); err != nil {
		return nil, err
	}
	if err := validateBatch(b); err != nil {
		return nil, err
	}
	res := make([]*Output, len(b.Utterances))
	errs := make([]error, len(b.Utterances))
	essentials.ConcurrentMap(s.Config.workers(), len(b.Utterances), func(i int) {
		res[i], errs[i] = s.decodeOne(ctx, b, i)
	})
	if err := newBatchError(errs); err != nil {
		return res, err
	}
	return res, nil
}

func (s *BeamSearcher) decodeOne(ctx context.Context, b *Batch, idx int) (*Output, error) {
	u := b.Utterances[idx]
	width := s.Config.BeamWidth
	beam := []*Hypothesis{newHypothesis(s.Direction.Start, u.Initial)}
	var complete []*Hypothesis
	var interrupted bool

	for t := 0; t < s.Config.MaxDecodeLen && len(beam) > 0; t++ {
		if ctx.Err() != nil {
			interrupted = true
			break
		}
		info := StepInfo{
			Context:    ctx,
			Utterance:  idx,
			Position:   t,
			GlobalStep: b.GlobalStep,
		}
		cands, err := s.expand(&info, beam, u.InputLen)
		if err != nil {
			if ctx.Err() != nil {
				interrupted = true
				break
			}
			return nil, fmt.Errorf("utterance %d, position %d: %w", idx, t, err)
		}

		var live []*Hypothesis
		for _, h := range cands.survivors(width) {
			if h.Complete {
				complete = append(complete, h)
			} else {
				live = append(live, h)
			}
		}
		beam = live
		if s.StatusFunc != nil {
			s.StatusFunc(&Status{
				Utterance: idx,
				Position:  t,
				Live:      len(beam),
				Complete:  len(complete),
			})
		}
		if len(complete) >= width {
			complete = complete[:width]
			break
		}
	}

	if len(complete) == 0 {
		complete = beam
	}
	best := bestHypothesis(complete, s.Config.LengthPenalty)
	return best.output(s.Config.LengthPenalty, interrupted), nil
}

// expand steps every hypothesis in the beam and proposes
// the top BeamWidth symbols of each one.
func (s *BeamSearcher) expand(info *StepInfo, beam []*Hypothesis,
	inputLen int) (*candidates, error) {
	res := &candidates{end: s.Direction.End}
	for _, h := range beam {
		out, err := s.Direction.Stepper.Step(info, h.State, h.prevAttention(inputLen), h.Last())
		if err != nil {
			return nil, err
		} else if len(out.LogProbs) == 0 {
			return nil, errors.New("stepper produced an empty distribution")
		}
		// The parent is never stepped again, so its state
		// now belongs to the step result.
		h.State = nil
		for _, symbol := range descendingOrder(out.LogProbs)[:essentials.MinInt(
			s.Config.BeamWidth, len(out.LogProbs))] {
			res.add(h, out, symbol)
		}
	}
	return res, nil
}

type candidate struct {
	parent *Hypothesis
	step   *StepResult
	symbol int
	score  float64
}

type candidates struct {
	end  int
	list []*candidate
}

func (c *candidates) add(parent *Hypothesis, step *StepResult, symbol int) {
	c.list = append(c.list, &candidate{
		parent: parent,
		step:   step,
		symbol: symbol,
		score:  parent.Score + step.LogProbs[symbol],
	})
}

// survivors creates hypotheses for the best width
// candidates.
// Each survivor gets its own copy of its parent's state,
// and pruned candidates are never copied.
func (c *candidates) survivors(width int) []*Hypothesis {
	scores := make([]float64, len(c.list))
	for i, x := range c.list {
		scores[i] = x.score
	}
	order := descendingOrder(scores)
	if len(order) > width {
		order = order[:width]
	}
	res := make([]*Hypothesis, len(order))
	for i, idx := range order {
		x := c.list[idx]
		res[i] = x.parent.extend(x.symbol, x.step.LogProbs[x.symbol],
			cloneState(x.step.State), x.step.Attention, c.end)
	}
	return res
}
