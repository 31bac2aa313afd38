package main

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/unixpickle/anydecode/anys2s"
	"github.com/unixpickle/serializer"
)

const testCTCInput = `
beam:
  beam_width: 4
  blank: 0
sequences:
  - log_probs:
      - [-2.3, -0.1, -4.6]
      - [-0.1, -2.3, -4.6]
      - [-4.6, -2.3, -0.1]
  - log_probs:
      - [-2.3, -0.1, -4.6]
      - [-4.6, -2.3, -0.1]
    length: 1
`

const testAttentionInput = `
config:
  beam_width: 2
  max_decode_len: 10
start: 1
end: 0
backward: true
utterances:
  - input_len: 3
    log_probs:
      - [-4.6, -4.6, -0.1]
      - [-4.6, -4.6, -4.6, -0.1]
    end_after: 2
`

func TestCTCCommand(t *testing.T) {
	var in ctcInput
	if err := loadInput(writeTestFile(t, "ctc.yaml", testCTCInput), &in); err != nil {
		t.Fatal(err)
	}
	results, err := runCTC(&in)
	if err != nil {
		t.Fatal(err)
	}
	expected := [][]int{{1, 2}, {1}}
	for i, res := range results {
		if !reflect.DeepEqual(res.Label, expected[i]) {
			t.Errorf("sequence %d: expected %v but got %v", i, expected[i], res.Label)
		}
	}
}

func TestAttentionCommand(t *testing.T) {
	var in attentionInput
	if err := loadInput(writeTestFile(t, "att.yml", testAttentionInput), &in); err != nil {
		t.Fatal(err)
	}

	// Backward beam search is not supported.
	if _, _, err := attentionDecoder(&in); err == nil {
		t.Fatal("expected error for backward beam search")
	}

	in.Config.BeamWidth = 1
	decoder, batch, err := attentionDecoder(&in)
	if err != nil {
		t.Fatal(err)
	}
	outs, err := decoder.Decode(context.Background(), batch)
	if err != nil {
		t.Fatal(err)
	}
	if expected := []int{3, 2}; !reflect.DeepEqual(outs[0].Labels, expected) {
		t.Errorf("expected %v but got %v", expected, outs[0].Labels)
	}
}

func TestSaveConfig(t *testing.T) {
	configFile = filepath.Join(t.TempDir(), "config")
	defer func() {
		configFile = ""
	}()
	c := &anys2s.Config{BeamWidth: 3, MaxDecodeLen: 7, LengthPenalty: 0.5}
	if err := saveConfig(c); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(configFile)
	if err != nil {
		t.Fatal(err)
	}
	var loaded *anys2s.Config
	if err := serializer.DeserializeAny(data, &loaded); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(c, loaded) {
		t.Errorf("expected %v but got %v", c, loaded)
	}
}

func writeTestFile(t *testing.T, name, contents string) string {
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}
