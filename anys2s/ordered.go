package anys2s

import (
	"fmt"

	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// A DecodingOrder determines how the parts of an attention
// decoder are sequenced within one step.
type DecodingOrder int

const (
	// AttendGenerateUpdate attends with the previous decoder
	// output, generates the next symbol's distribution, and
	// only then feeds the chosen symbol to the recurrent
	// decoder.
	AttendGenerateUpdate DecodingOrder = iota

	// AttendUpdateGenerate attends with the previous decoder
	// output, updates the recurrent decoder with the previous
	// symbol and the new context, and then generates.
	AttendUpdateGenerate

	// Conditional runs a first recurrent decoder on the
	// previous symbol, attends with its output, runs a second
	// recurrent decoder on the context, and then generates.
	Conditional
)

// String returns the configuration name of the order.
func (d DecodingOrder) String() string {
	switch d {
	case AttendGenerateUpdate:
		return "attend_generate_update"
	case AttendUpdateGenerate:
		return "attend_update_generate"
	case Conditional:
		return "conditional"
	default:
		return fmt.Sprintf("DecodingOrder(%d)", int(d))
	}
}

// ParseDecodingOrder parses the name of a DecodingOrder.
func ParseDecodingOrder(name string) (DecodingOrder, error) {
	for _, d := range []DecodingOrder{AttendGenerateUpdate, AttendUpdateGenerate, Conditional} {
		if d.String() == name {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown decoding order %q", ErrInvalidConfig, name)
}

// Layers are the trained parts of an attention decoder.
type Layers interface {
	// Embed produces the embedding of a symbol.
	Embed(symbol int) (anyvec.Vector, error)

	// Attend computes a context vector over the encoder
	// frames, given the decoder output and the attention
	// distribution from the previous step.
	Attend(decOut anyvec.Vector, attention []float64) (context anyvec.Vector,
		newAttention []float64, err error)

	// Update runs the recurrent decoder on an input vector.
	Update(s State, in anyvec.Vector) (newState State, decOut anyvec.Vector, err error)

	// Generate produces unnormalized logits for the next
	// symbol.
	Generate(decOut, context anyvec.Vector) (anyvec.Vector, error)
}

// ConditionalLayers are Layers with the extra recurrent
// decoder needed for the Conditional order.
type ConditionalLayers interface {
	Layers

	// UpdateFirst runs the first recurrent decoder on the
	// embedding of the previous symbol.
	// The regular Update is used as the second decoder.
	UpdateFirst(s State, embedded anyvec.Vector) (newState State,
		decOut anyvec.Vector, err error)
}

// A DecoderState is the State used by an OrderedStepper.
type DecoderState struct {
	// Recurrent is the state of the recurrent decoder.
	Recurrent State

	// Output is the most recent decoder output.
	Output anyvec.Vector

	// pending is the context vector of the last step for
	// the AttendGenerateUpdate order, whose recurrent update
	// waits until the chosen symbol is known.
	pending anyvec.Vector
}

// NewDecoderState creates the initial state for an
// OrderedStepper from the initial recurrent state and
// decoder output.
func NewDecoderState(recurrent State, output anyvec.Vector) *DecoderState {
	return &DecoderState{Recurrent: recurrent, Output: output}
}

// Clone deep-copies the state.
func (d *DecoderState) Clone() State {
	res := &DecoderState{Recurrent: cloneState(d.Recurrent)}
	if d.Output != nil {
		res.Output = d.Output.Copy()
	}
	if d.pending != nil {
		res.pending = d.pending.Copy()
	}
	return res
}

// An OrderedStepper is a Stepper which runs Layers in a
// fixed DecodingOrder.
//
// Its states must be *DecoderStates.
type OrderedStepper struct {
	order  DecodingOrder
	layers Layers
}

// NewOrderedStepper creates an OrderedStepper.
//
// The Conditional order requires ConditionalLayers.
func NewOrderedStepper(order DecodingOrder, layers Layers) (*OrderedStepper, error) {
	switch order {
	case AttendGenerateUpdate, AttendUpdateGenerate:
	case Conditional:
		if _, ok := layers.(ConditionalLayers); !ok {
			return nil, fmt.Errorf("%w: %s order requires ConditionalLayers",
				ErrInvalidConfig, order)
		}
	default:
		return nil, fmt.Errorf("%w: unknown decoding order %d", ErrInvalidConfig, int(order))
	}
	return &OrderedStepper{order: order, layers: layers}, nil
}

// Step runs the layers for one step.
func (o *OrderedStepper) Step(info *StepInfo, s State, attention []float64,
	prev int) (*StepResult, error) {
	state, ok := s.(*DecoderState)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected state type %T", ErrInvalidConfig, s)
	}
	var res *StepResult
	var err error
	switch o.order {
	case AttendGenerateUpdate:
		res, err = o.attendGenerateUpdate(state, attention, prev)
	case AttendUpdateGenerate:
		res, err = o.attendUpdateGenerate(state, attention, prev)
	case Conditional:
		res, err = o.conditional(state, attention, prev)
	}
	if err != nil {
		return nil, essentials.AddCtx(o.order.String(), err)
	}
	return res, nil
}

func (o *OrderedStepper) attendGenerateUpdate(s *DecoderState, attention []float64,
	prev int) (*StepResult, error) {
	recurrent, decOut := s.Recurrent, s.Output
	if s.pending != nil {
		emb, err := o.layers.Embed(prev)
		if err != nil {
			return nil, err
		}
		in := emb.Creator().Concat(emb, s.pending)
		recurrent, decOut, err = o.layers.Update(recurrent, in)
		if err != nil {
			return nil, err
		}
	}
	context, newAttention, err := o.layers.Attend(decOut, attention)
	if err != nil {
		return nil, err
	}
	logits, err := o.layers.Generate(decOut, context)
	if err != nil {
		return nil, err
	}
	newState := &DecoderState{Recurrent: recurrent, Output: decOut, pending: context}
	return o.result(logits, newState, newAttention), nil
}

func (o *OrderedStepper) attendUpdateGenerate(s *DecoderState, attention []float64,
	prev int) (*StepResult, error) {
	context, newAttention, err := o.layers.Attend(s.Output, attention)
	if err != nil {
		return nil, err
	}
	emb, err := o.layers.Embed(prev)
	if err != nil {
		return nil, err
	}
	recurrent, decOut, err := o.layers.Update(s.Recurrent, emb.Creator().Concat(emb, context))
	if err != nil {
		return nil, err
	}
	logits, err := o.layers.Generate(decOut, context)
	if err != nil {
		return nil, err
	}
	newState := &DecoderState{Recurrent: recurrent, Output: decOut}
	return o.result(logits, newState, newAttention), nil
}

func (o *OrderedStepper) conditional(s *DecoderState, attention []float64,
	prev int) (*StepResult, error) {
	layers := o.layers.(ConditionalLayers)
	emb, err := layers.Embed(prev)
	if err != nil {
		return nil, err
	}
	firstState, firstOut, err := layers.UpdateFirst(s.Recurrent, emb)
	if err != nil {
		return nil, err
	}
	context, newAttention, err := layers.Attend(firstOut, attention)
	if err != nil {
		return nil, err
	}
	recurrent, decOut, err := layers.Update(firstState, context)
	if err != nil {
		return nil, err
	}
	logits, err := layers.Generate(decOut, context)
	if err != nil {
		return nil, err
	}
	newState := &DecoderState{Recurrent: recurrent, Output: decOut}
	return o.result(logits, newState, newAttention), nil
}

func (o *OrderedStepper) result(logits anyvec.Vector, s State,
	attention []float64) *StepResult {
	logProbs := logits.Copy()
	anyvec.LogSoftmax(logProbs, logProbs.Len())
	return &StepResult{
		LogProbs:  vectorFloats(logProbs),
		State:     s,
		Attention: attention,
	}
}

func vectorFloats(v anyvec.Vector) []float64 {
	switch d := v.Data().(type) {
	case []float64:
		return d
	case []float32:
		res := make([]float64, len(d))
		for i, x := range d {
			res[i] = float64(x)
		}
		return res
	default:
		panic(fmt.Sprintf("unsupported numeric type: %T", d))
	}
}
