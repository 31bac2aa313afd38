package anys2s

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec64"
)

func TestOrderedStepperOrders(t *testing.T) {
	expected := map[DecodingOrder][]string{
		AttendGenerateUpdate: {
			"attend", "generate",
			"embed", "update(2)", "attend", "generate",
		},
		AttendUpdateGenerate: {
			"attend", "embed", "update(2)", "generate",
			"attend", "embed", "update(2)", "generate",
		},
		Conditional: {
			"embed", "update_first", "attend", "update(1)", "generate",
			"embed", "update_first", "attend", "update(1)", "generate",
		},
	}
	for order, calls := range expected {
		layers := &recordingLayers{}
		stepper, err := NewOrderedStepper(order, conditionalLayers{layers})
		if err != nil {
			t.Fatal(err)
		}
		var state State = NewDecoderState(&VecState{Vector: anyvec64.MakeVector(2)},
			anyvec64.MakeVector(1))
		attention := make([]float64, 3)
		prev := testStart
		for pos := 0; pos < 2; pos++ {
			res, err := stepper.Step(&StepInfo{Position: pos}, state, attention, prev)
			if err != nil {
				t.Fatal(err)
			}
			checkLogProbs(t, res.LogProbs)
			state, attention, prev = res.State, res.Attention, argmax(res.LogProbs)
		}
		if !reflect.DeepEqual(layers.Calls, calls) {
			t.Errorf("order %s: expected %v but got %v", order, calls, layers.Calls)
		}
		if expected := []float64{1, 0, 0}; !reflect.DeepEqual(attention, expected) {
			t.Errorf("order %s: expected attention %v but got %v", order, expected, attention)
		}
	}
}

func TestOrderedStepperConditional(t *testing.T) {
	_, err := NewOrderedStepper(Conditional, &recordingLayers{})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig but got %v", err)
	}
	if _, err := NewOrderedStepper(DecodingOrder(7), &recordingLayers{}); err == nil {
		t.Error("expected error for unknown order")
	}
}

func TestOrderedStepperDecode(t *testing.T) {
	stepper, err := NewOrderedStepper(AttendUpdateGenerate, &recordingLayers{})
	if err != nil {
		t.Fatal(err)
	}
	// The generated logits always favor symbol 2, and the
	// end symbol is never in the top two.
	c := &Config{BeamWidth: 2, MaxDecodeLen: 4}
	d, err := NewDecoder(c, &Direction{Stepper: stepper, Start: 1, End: 0}, nil)
	if err != nil {
		t.Fatal(err)
	}
	initial := NewDecoderState(nil, anyvec64.MakeVector(1))
	outs, err := d.Decode(context.Background(), &Batch{Utterances: []*Utterance{{Initial: initial, InputLen: 2}}})
	if err != nil {
		t.Fatal(err)
	}
	if expected := []int{2, 2, 2, 2}; !reflect.DeepEqual(outs[0].Labels, expected) {
		t.Errorf("expected %v but got %v", expected, outs[0].Labels)
	}
}

func TestParseDecodingOrder(t *testing.T) {
	for _, order := range []DecodingOrder{AttendGenerateUpdate, AttendUpdateGenerate, Conditional} {
		parsed, err := ParseDecodingOrder(order.String())
		if err != nil {
			t.Error(err)
		} else if parsed != order {
			t.Errorf("expected %v but got %v", order, parsed)
		}
	}
	if _, err := ParseDecodingOrder("generate_first"); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig but got %v", err)
	}
}

func TestDecoderStateClone(t *testing.T) {
	s := NewDecoderState(&VecState{Vector: anyvec64.MakeVectorData([]float64{1, 2})},
		anyvec64.MakeVectorData([]float64{3}))
	clone := s.Clone().(*DecoderState)
	clone.Output.Scale(float64(2))
	clone.Recurrent.(*VecState).Vector.Scale(float64(2))
	if actual := s.Output.Data().([]float64); !reflect.DeepEqual(actual, []float64{3}) {
		t.Errorf("output was modified: %v", actual)
	}
	actual := s.Recurrent.(*VecState).Vector.Data().([]float64)
	if !reflect.DeepEqual(actual, []float64{1, 2}) {
		t.Errorf("recurrent state was modified: %v", actual)
	}
}

func checkLogProbs(t *testing.T, logProbs []float64) {
	var sum float64
	for _, x := range logProbs {
		sum += math.Exp(x)
	}
	if math.Abs(sum-1) > 1e-8 {
		t.Errorf("probabilities sum to %f", sum)
	}
}

// recordingLayers are Layers which log every call.
type recordingLayers struct {
	Calls []string
}

func (r *recordingLayers) Embed(symbol int) (anyvec.Vector, error) {
	r.Calls = append(r.Calls, "embed")
	return anyvec64.MakeVectorData([]float64{float64(symbol)}), nil
}

func (r *recordingLayers) Attend(decOut anyvec.Vector, attention []float64) (anyvec.Vector,
	[]float64, error) {
	r.Calls = append(r.Calls, "attend")
	newAttention := make([]float64, len(attention))
	newAttention[0] = 1
	return anyvec64.MakeVectorData([]float64{0.5}), newAttention, nil
}

func (r *recordingLayers) Update(s State, in anyvec.Vector) (State, anyvec.Vector, error) {
	r.Calls = append(r.Calls, fmt.Sprintf("update(%d)", in.Len()))
	return s, anyvec64.MakeVectorData([]float64{1}), nil
}

func (r *recordingLayers) Generate(decOut, context anyvec.Vector) (anyvec.Vector, error) {
	r.Calls = append(r.Calls, "generate")
	return anyvec64.MakeVectorData([]float64{1, 2, 3}), nil
}

type conditionalLayers struct {
	*recordingLayers
}

func (c conditionalLayers) UpdateFirst(s State, embedded anyvec.Vector) (State,
	anyvec.Vector, error) {
	c.Calls = append(c.Calls, "update_first")
	return s, embedded.Copy(), nil
}
