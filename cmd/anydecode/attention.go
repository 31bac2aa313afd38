package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/unixpickle/anydecode/anys2s"
)

// attentionInput is the YAML input of the attention
// command.
type attentionInput struct {
	Config anys2s.Config `yaml:"config"`
	Start  int           `yaml:"start"`
	End    int           `yaml:"end"`

	// Backward decodes with the backward direction, which
	// produces labels in reverse.
	Backward bool `yaml:"backward"`

	Utterances []struct {
		InputLen int `yaml:"input_len"`

		// LogProbs[t] is the step output at position t.
		LogProbs [][]float64 `yaml:"log_probs"`

		// EndAfter forces the end symbol from this position
		// onward.
		EndAfter *int `yaml:"end_after"`
	} `yaml:"utterances"`
}

var attentionCmd = &cobra.Command{
	Use:   "attention",
	Short: "Run attention beam search or greedy decoding",
	Long: `Decode every utterance of the input file with a per-utterance table
of step outputs. A beam width of 1 selects greedy decoding.

Press ctrl+c to stop early and print the best hypotheses so far.

Input format:
  config:
    beam_width: 4
    max_decode_len: 20
    length_penalty: 0
    workers: 2
  start: 1
  end: 0
  backward: false
  utterances:
    - input_len: 10
      log_probs: [[-3.0, -3.0, -0.1], [-0.1, -3.0, -3.0]]
      end_after: 5   # optional`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var in attentionInput
		if err := loadInput(inputFile, &in); err != nil {
			return err
		}
		if err := saveConfig(&in.Config); err != nil {
			return err
		}
		decoder, batch, err := attentionDecoder(&in)
		if err != nil {
			return err
		}
		outs, err := decoder.Decode(interruptContext(), batch)
		if err != nil {
			return err
		}
		for i, out := range outs {
			log.Printf("utterance %d: labels=%v score=%f interrupted=%v", i, out.Labels,
				out.Score, out.Interrupted)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(attentionCmd)
}

func attentionDecoder(in *attentionInput) (anys2s.Decoder, *anys2s.Batch, error) {
	var steppers utteranceTables
	batch := &anys2s.Batch{}
	for _, u := range in.Utterances {
		table := &anys2s.TableStepper{LogProbs: u.LogProbs, End: in.End}
		if u.EndAfter != nil {
			table.ForceEnd = true
			table.EndAfter = *u.EndAfter
		}
		steppers = append(steppers, table)
		batch.Utterances = append(batch.Utterances, &anys2s.Utterance{InputLen: u.InputLen})
	}
	dir := &anys2s.Direction{Stepper: steppers, Weight: 1, Start: in.Start, End: in.End}
	var decoder anys2s.Decoder
	var err error
	if in.Backward {
		decoder, err = anys2s.NewDecoder(&in.Config, nil, dir)
	} else {
		decoder, err = anys2s.NewDecoder(&in.Config, dir, nil)
	}
	if err != nil {
		return nil, nil, err
	}
	if verbose {
		status := func(s *anys2s.Status) {
			log.Printf("utterance %d: position=%d live=%d complete=%d", s.Utterance,
				s.Position, s.Live, s.Complete)
		}
		switch d := decoder.(type) {
		case *anys2s.BeamSearcher:
			d.StatusFunc = status
		case *anys2s.GreedySearcher:
			d.StatusFunc = status
		}
	}
	return decoder, batch, nil
}

// utteranceTables dispatches each step to the table of
// its utterance.
type utteranceTables []*anys2s.TableStepper

func (u utteranceTables) Step(info *anys2s.StepInfo, s anys2s.State, attention []float64,
	prev int) (*anys2s.StepResult, error) {
	if info.Utterance < 0 || info.Utterance >= len(u) {
		return nil, fmt.Errorf("no table for utterance %d", info.Utterance)
	}
	return u[info.Utterance].Step(info, s, attention, prev)
}
