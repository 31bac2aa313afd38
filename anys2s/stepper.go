package anys2s

import "context"

// StepInfo describes the circumstances of a single call
// to a Stepper.
type StepInfo struct {
	// Context is the context of the Decode call.
	// Steppers which do long-running work should abort
	// when it is done.
	Context context.Context

	// Utterance is the index of the utterance in the
	// caller's Batch.
	Utterance int

	// Position is the 0-based index of the output symbol
	// being predicted.
	Position int

	// GlobalStep is copied from the Batch.
	GlobalStep int
}

// A StepResult is the output of a single decoding step.
type StepResult struct {
	// LogProbs is a normalized log-probability distribution
	// over output symbols.
	LogProbs []float64

	// State is the decoder state after the step.
	State State

	// Attention is the attention distribution over the
	// encoder frames used for this step.
	Attention []float64
}

// A Stepper performs one step of autoregressive decoding.
//
// Given the decoder state, the attention distribution from
// the previous step, and the previously emitted symbol, it
// produces a distribution over the next symbol.
//
// The Stepper owns s and attention for the duration of
// the call and may return them (modified or not) as the
// new state and attention.
type Stepper interface {
	Step(info *StepInfo, s State, attention []float64, prev int) (*StepResult, error)
}

// A StepRequest is one entry of a batched step.
type StepRequest struct {
	Info      StepInfo
	State     State
	Attention []float64
	Prev      int
}

// A BatchStepper performs a decoding step for a batch of
// utterances at once.
//
// It must return one result per request, in the same
// order as the requests.
type BatchStepper interface {
	StepBatch(ctx context.Context, reqs []*StepRequest) ([]*StepResult, error)
}

// Batched turns a Stepper into a BatchStepper.
//
// If s already implements BatchStepper, it is returned
// as-is. Otherwise, the requests are run one at a time.
func Batched(s Stepper) BatchStepper {
	if b, ok := s.(BatchStepper); ok {
		return b
	}
	return sequentialStepper{Stepper: s}
}

type sequentialStepper struct {
	Stepper Stepper
}

func (s sequentialStepper) StepBatch(ctx context.Context,
	reqs []*StepRequest) ([]*StepResult, error) {
	res := make([]*StepResult, len(reqs))
	for i, req := range reqs {
		info := req.Info
		info.Context = ctx
		out, err := s.Stepper.Step(&info, req.State, req.Attention, req.Prev)
		if err != nil {
			return nil, err
		}
		res[i] = out
	}
	return res, nil
}
