package main

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/unixpickle/anydecode/anyctc"
)

// ctcInput is the YAML input of the ctc command.
type ctcInput struct {
	Beam    anyctc.BeamConfig `yaml:"beam"`
	Greedy  bool              `yaml:"greedy"`
	Workers int               `yaml:"workers"`

	Sequences []struct {
		// LogProbs holds one row per timestep.
		LogProbs [][]float64 `yaml:"log_probs"`

		// Length optionally limits the number of timesteps.
		Length *int `yaml:"length"`
	} `yaml:"sequences"`
}

var ctcCmd = &cobra.Command{
	Use:   "ctc",
	Short: "Run CTC prefix beam search",
	Long: `Run CTC prefix beam search on every sequence of the input file.

Input format:
  beam:
    beam_width: 10
    blank: 0
    insertion_bonus: 0
  greedy: false   # also report best-path decoding
  workers: 2
  sequences:
    - log_probs: [[-0.1, -2.4], [-2.4, -0.1]]
      length: 2   # optional`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var in ctcInput
		if err := loadInput(inputFile, &in); err != nil {
			return err
		}
		if err := saveConfig(&in.Beam); err != nil {
			return err
		}
		results, err := runCTC(&in)
		for i, res := range results {
			if res == nil {
				continue
			}
			seq := in.Sequences[i].LogProbs
			if l := in.Sequences[i].Length; l != nil {
				seq = seq[:*l]
			}
			log.Printf("sequence %d: labels=%v log_prob=%f exact=%f", i, res.Label,
				res.LogProb, anyctc.LogLikelihood(seq, res.Label, in.Beam.Blank))
			if in.Greedy {
				log.Printf("sequence %d: greedy=%v", i, anyctc.GreedyLabels(seq, in.Beam.Blank))
			}
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(ctcCmd)
}

func runCTC(in *ctcInput) ([]*anyctc.Labeling, error) {
	seqs := make([][][]float64, len(in.Sequences))
	var lengths []int
	for i, s := range in.Sequences {
		seqs[i] = s.LogProbs
		if s.Length != nil && lengths == nil {
			lengths = make([]int, len(seqs))
			for j := range lengths {
				lengths[j] = len(in.Sequences[j].LogProbs)
			}
		}
		if s.Length != nil {
			lengths[i] = *s.Length
		}
	}
	return anyctc.DecodeBatch(seqs, lengths, &in.Beam, in.Workers)
}
