// Package anys2s decodes the outputs of attention-based
// sequence-to-sequence models.
//
// A model is driven one step at a time through a Stepper.
// A BeamSearcher keeps several hypotheses per utterance,
// while a GreedySearcher decodes a whole batch with one
// batched step per output symbol.
// Use NewDecoder to pick between the two.
package anys2s
