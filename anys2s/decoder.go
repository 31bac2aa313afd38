package anys2s

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// A Direction is one of the decoders of a model, reading
// its output either left-to-right or right-to-left.
type Direction struct {
	Stepper Stepper

	// Weight is the direction's weight in the model.
	// The direction with the larger weight is used for
	// decoding.
	Weight float64

	// Start and End are the sentence start and end symbols.
	Start int
	End   int
}

// An Utterance is one input to decode.
type Utterance struct {
	// Initial is the decoder state before the first step.
	// It may be nil for stateless Steppers.
	Initial State

	// InputLen is the number of encoder frames, which is
	// the length of each attention distribution.
	InputLen int
}

// A Batch is a list of utterances to decode together.
type Batch struct {
	Utterances []*Utterance

	// GlobalStep is passed through to every StepInfo.
	GlobalStep int
}

// An Output is the decoded result for one utterance.
type Output struct {
	// Labels excludes the start and end symbols.
	Labels []int

	// Attention has one row per emitted symbol, including
	// the end symbol if it was emitted.
	Attention [][]float64

	// Score is the log probability of the hypothesis,
	// after any length penalty.
	Score float64

	// Interrupted is set if decoding was cut short by the
	// context, in which case this is the best hypothesis
	// found so far.
	Interrupted bool
}

// Status describes the progress of a search after one
// step.
type Status struct {
	// Utterance is the index of the utterance in the batch,
	// or -1 for steps which cover the entire batch.
	Utterance int

	Position int
	Live     int
	Complete int
}

// A StatusFunc is called after every step of a search.
// It may be called concurrently for different utterances.
type StatusFunc func(s *Status)

// A Decoder turns a batch of utterances into label
// sequences.
type Decoder interface {
	Decode(ctx context.Context, b *Batch) ([]*Output, error)
}

// NewDecoder creates a Decoder for the configuration.
//
// The forward direction is used unless backward is
// non-nil and has a larger weight.
// If c.BeamWidth is 1, a *GreedySearcher is returned.
// Otherwise, a *BeamSearcher is returned.
//
// Beam search is not supported for the backward
// direction, in which case ErrUnsupported is returned.
func NewDecoder(c *Config, forward, backward *Direction) (Decoder, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	dir, isBackward := chooseDirection(forward, backward)
	if dir == nil {
		return nil, fmt.Errorf("%w: no decoding direction", ErrInvalidConfig)
	}
	if err := dir.validate(); err != nil {
		return nil, err
	}
	if c.BeamWidth == 1 {
		return &GreedySearcher{
			Config:    c,
			Direction: dir,
			Backward:  isBackward,
		}, nil
	}
	if isBackward {
		return nil, fmt.Errorf("%w: beam search in the backward direction", ErrUnsupported)
	}
	return &BeamSearcher{Config: c, Direction: dir}, nil
}

func chooseDirection(forward, backward *Direction) (dir *Direction, isBackward bool) {
	if backward == nil {
		return forward, false
	}
	if forward == nil || backward.Weight > forward.Weight {
		return backward, true
	}
	return forward, false
}

func (d *Direction) validate() error {
	if d.Stepper == nil {
		return fmt.Errorf("%w: direction has no stepper", ErrInvalidConfig)
	}
	if d.Start < 0 || d.End < 0 {
		return fmt.Errorf("%w: negative start or end symbol (%d, %d)",
			ErrInvalidConfig, d.Start, d.End)
	}
	return nil
}

func validateBatch(b *Batch) error {
	for i, u := range b.Utterances {
		if u == nil || u.InputLen < 0 {
			return fmt.Errorf("%w: utterance %d has no valid input", ErrInvalidConfig, i)
		}
	}
	return nil
}

// A BatchError reports which utterances in a batch could
// not be decoded.
type BatchError struct {
	// Errors maps utterance indices to their errors.
	Errors map[int]error
}

// newBatchError creates a *BatchError for the non-nil
// entries of errs, or returns nil if there are none.
func newBatchError(errs []error) error {
	var res *BatchError
	for i, err := range errs {
		if err != nil {
			if res == nil {
				res = &BatchError{Errors: map[int]error{}}
			}
			res.Errors[i] = err
		}
	}
	if res == nil {
		return nil
	}
	return res
}

// Error lists the failed utterances in order.
func (b *BatchError) Error() string {
	var parts []string
	for _, idx := range b.indices() {
		parts = append(parts, b.Errors[idx].Error())
	}
	return "decode batch: " + strings.Join(parts, "; ")
}

// Unwrap returns the individual errors, allowing them to
// be matched with errors.Is and errors.As.
func (b *BatchError) Unwrap() []error {
	var res []error
	for _, idx := range b.indices() {
		res = append(res, b.Errors[idx])
	}
	return res
}

func (b *BatchError) indices() []int {
	var res []int
	for idx := range b.Errors {
		res = append(res, idx)
	}
	sort.Ints(res)
	return res
}
