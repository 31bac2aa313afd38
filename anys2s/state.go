package anys2s

import "github.com/unixpickle/anyvec"

// A State is the decoder state carried by one hypothesis
// from one step to the next.
//
// A State is owned by exactly one hypothesis at a time.
// When a hypothesis branches, each branch gets its own
// copy via Clone, so a Stepper is free to reuse or modify
// the State it was given.
type State interface {
	// Clone creates a deep copy of the state.
	// Modifying the copy must never affect the original.
	Clone() State
}

// A VecState is a State made up of a single vector, such
// as the hidden state of a simple recurrent decoder.
type VecState struct {
	Vector anyvec.Vector
}

// Clone copies the vector.
func (v *VecState) Clone() State {
	return &VecState{Vector: v.Vector.Copy()}
}

// A StackState combines the states of several stacked
// layers into one State.
// Entries may be nil for stateless layers.
type StackState []State

// Clone clones every layer's state.
func (s StackState) Clone() State {
	res := make(StackState, len(s))
	for i, x := range s {
		res[i] = cloneState(x)
	}
	return res
}

func cloneState(s State) State {
	if s == nil {
		return nil
	}
	return s.Clone()
}
