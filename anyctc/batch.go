package anyctc

import (
	"fmt"
	"sort"
	"strings"

	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/essentials"
)

// BestLabels runs BeamSearch on every sequence in a
// packed batch and returns the resulting labels in batch
// order.
//
// The batch's present maps determine each sequence's
// length, so sequences may have different lengths.
// The anyvec.Creator must use an anyvec.NumericList type
// of []float32 or []float64.
//
// If some sequences fail to decode, their labels are nil
// and a *BatchError is returned alongside the rest.
func BestLabels(seqs anyseq.Seq, c *BeamConfig) ([][]int, error) {
	labelings, err := DecodeBatch(seqFloats(seqs), nil, c, 0)
	res := make([][]int, len(labelings))
	for i, l := range labelings {
		if l != nil {
			res[i] = l.Label
		}
	}
	return res, err
}

// DecodeBatch runs BeamSearch on every matrix in a batch.
//
// If lengths is non-nil, lengths[i] is the number of valid
// timesteps in seqs[i]; later timesteps are ignored.
// The lengths are checked before any decoding starts.
//
// Up to workers sequences are decoded concurrently.
// A workers value less than 1 is treated as 1.
// Results are always in the same order as seqs.
//
// Sequences are decoded independently: if one fails, its
// result is nil, the others are still decoded, and a
// *BatchError describing the failures is returned.
func DecodeBatch(seqs [][][]float64, lengths []int, c *BeamConfig,
	workers int) ([]*Labeling, error) {
	if err := c.Validate(0); err != nil {
		return nil, err
	}
	if lengths != nil && len(lengths) != len(seqs) {
		return nil, fmt.Errorf("%w: %d lengths for %d sequences",
			ErrInvalidConfig, len(lengths), len(seqs))
	}
	trimmed := make([][][]float64, len(seqs))
	for i, seq := range seqs {
		trimmed[i] = seq
		if lengths == nil {
			continue
		}
		if lengths[i] < 0 || lengths[i] > len(seq) {
			return nil, fmt.Errorf("%w: sequence %d has length %d but %d timesteps",
				ErrInvalidConfig, i, lengths[i], len(seq))
		}
		trimmed[i] = seq[:lengths[i]]
	}

	if workers < 1 {
		workers = 1
	}
	res := make([]*Labeling, len(seqs))
	errs := make([]error, len(seqs))
	essentials.ConcurrentMap(workers, len(trimmed), func(i int) {
		res[i], errs[i] = BeamSearch(trimmed[i], c)
	})

	batchErr := &BatchError{}
	for i, err := range errs {
		if err != nil {
			if batchErr.Errors == nil {
				batchErr.Errors = map[int]error{}
			}
			batchErr.Errors[i] = err
		}
	}
	if batchErr.Errors != nil {
		return res, batchErr
	}
	return res, nil
}

// A BatchError reports which sequences in a batch could
// not be decoded.
type BatchError struct {
	// Errors maps sequence indices to their errors.
	Errors map[int]error
}

// Error lists the failed sequences in order.
func (b *BatchError) Error() string {
	var parts []string
	for _, idx := range b.indices() {
		parts = append(parts, fmt.Sprintf("sequence %d: %v", idx, b.Errors[idx]))
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
