package anys2s

import (
	"reflect"
	"testing"

	"github.com/unixpickle/anyvec/anyvec64"
)

func TestStackStateClone(t *testing.T) {
	s := StackState{
		&VecState{Vector: anyvec64.MakeVectorData([]float64{1, 2})},
		nil,
		StackState{&VecState{Vector: anyvec64.MakeVectorData([]float64{3})}},
	}
	clone := s.Clone().(StackState)
	if len(clone) != 3 || clone[1] != nil {
		t.Fatalf("unexpected clone: %v", clone)
	}
	clone[0].(*VecState).Vector.Scale(float64(-1))
	clone[2].(StackState)[0].(*VecState).Vector.Scale(float64(-1))

	if actual := s[0].(*VecState).Vector.Data(); !reflect.DeepEqual(actual, []float64{1, 2}) {
		t.Errorf("first layer was modified: %v", actual)
	}
	inner := s[2].(StackState)[0].(*VecState).Vector.Data()
	if !reflect.DeepEqual(inner, []float64{3}) {
		t.Errorf("nested layer was modified: %v", inner)
	}
}
