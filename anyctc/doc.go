// Package anyctc decodes the outputs of Connectionist
// Temporal Classification (CTC) models.
// For more information on CTC, see this paper:
// http://www.cs.toronto.edu/~graves/icml_2006.pdf.
//
// Inputs are sequences of log-probability vectors, one
// per timestep.
// The blank symbol may be any class index, as configured
// by BeamConfig.Blank.
//
// The main entry point is BeamSearch, which runs a prefix
// beam search that merges every path collapsing to the
// same labeling.
// GreedyLabels provides the cheaper best-path decoding,
// and LogLikelihood scores an arbitrary labeling exactly.
package anyctc
