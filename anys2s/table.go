package anys2s

import (
	"fmt"
	"math"
)

// A TableStepper is a Stepper whose distributions come
// from a fixed table indexed by position.
//
// It is useful for testing searches and for replaying
// the per-step outputs of a model.
type TableStepper struct {
	// LogProbs[t] is the distribution at position t.
	// Later positions reuse the last row.
	LogProbs [][]float64

	// If ForceEnd is true, every position at or after
	// EndAfter produces End with probability 1.
	ForceEnd bool
	EndAfter int
	End      int
}

// Step returns the table row for the position, leaving
// the state untouched.
// The attention is concentrated on the frame matching the
// position, wrapping around at the end of the input.
func (t *TableStepper) Step(info *StepInfo, s State, attention []float64,
	prev int) (*StepResult, error) {
	if len(t.LogProbs) == 0 {
		return nil, fmt.Errorf("%w: empty table", ErrInvalidConfig)
	}
	row := t.LogProbs[len(t.LogProbs)-1]
	if info.Position < len(t.LogProbs) {
		row = t.LogProbs[info.Position]
	}
	logProbs := append([]float64{}, row...)
	if t.ForceEnd && info.Position >= t.EndAfter {
		if t.End < 0 || t.End >= len(logProbs) {
			return nil, fmt.Errorf("%w: end symbol %d out of range", ErrInvalidConfig, t.End)
		}
		for i := range logProbs {
			logProbs[i] = math.Inf(-1)
		}
		logProbs[t.End] = 0
	}
	newAttention := make([]float64, len(attention))
	if len(newAttention) > 0 {
		newAttention[info.Position%len(newAttention)] = 1
	}
	return &StepResult{LogProbs: logProbs, State: s, Attention: newAttention}, nil
}
