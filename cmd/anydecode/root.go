package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/rip"
	"github.com/unixpickle/serializer"
	"gopkg.in/yaml.v3"
)

var (
	inputFile  string
	configFile string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "anydecode",
	Short: "Decode CTC and attention model outputs",
	Long: `anydecode - search for the best label sequences given model outputs.

Inputs are YAML files holding per-step log probabilities.

Examples:
  # CTC prefix beam search
  anydecode ctc -f ctc.yaml

  # Attention decoding, saving the search parameters
  anydecode attention -f attention.yaml -s attention.config`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&inputFile, "file", "f", "", "input YAML file")
	rootCmd.PersistentFlags().StringVarP(&configFile, "save-config", "s", "",
		"write the serialized search parameters to this file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log search progress")
}

// loadInput reads a YAML input file.
func loadInput(path string, v any) error {
	if path == "" {
		return fmt.Errorf("input file is required, use -f flag")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return essentials.AddCtx("load input", err)
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("load input: unsupported extension %q", ext)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return essentials.AddCtx("parse input", err)
	}
	return nil
}

// saveConfig serializes search parameters if the
// save-config flag was given.
func saveConfig(obj serializer.Serializer) error {
	if configFile == "" {
		return nil
	}
	data, err := serializer.SerializeAny(obj)
	if err != nil {
		return essentials.AddCtx("save config", err)
	}
	if err := os.WriteFile(configFile, data, 0644); err != nil {
		return essentials.AddCtx("save config", err)
	}
	return nil
}

// interruptContext creates a context which is cancelled
// the first time the user presses ctrl+c.
func interruptContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	interrupt := rip.NewRIP().Chan()
	go func() {
		<-interrupt
		cancel()
	}()
	return ctx
}
