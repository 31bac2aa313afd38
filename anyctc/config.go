package anyctc

import (
	"errors"
	"fmt"

	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var b BeamConfig
	serializer.RegisterTypedDeserializer(b.SerializerType(), DeserializeBeamConfig)
}

var (
	// ErrInvalidConfig is returned (wrapped) when a
	// BeamConfig cannot be used for decoding.
	ErrInvalidConfig = errors.New("invalid beam configuration")

	// ErrBeamCollapsed is returned (wrapped) when no prefix
	// in the final beam has a finite probability.
	ErrBeamCollapsed = errors.New("beam collapsed")
)

// BeamConfig stores the parameters of a prefix beam
// search.
type BeamConfig struct {
	// BeamWidth is the maximum number of prefixes kept
	// between timesteps.
	// A BeamWidth of 1 yields greedy merge-decoding.
	BeamWidth int `yaml:"beam_width"`

	// Blank is the class index of the blank symbol.
	Blank int `yaml:"blank"`

	// InsertionBonus is added (in the log domain) every
	// time a label is appended to a prefix.
	// It is zero by default, which leaves scores as true
	// log probabilities.
	InsertionBonus float64 `yaml:"insertion_bonus"`
}

// DefaultBeamConfig creates a BeamConfig with a modest
// beam width for the given blank index.
func DefaultBeamConfig(blank int) *BeamConfig {
	return &BeamConfig{BeamWidth: 10, Blank: blank}
}

// DeserializeBeamConfig deserializes a BeamConfig.
func DeserializeBeamConfig(d []byte) (*BeamConfig, error) {
	var res BeamConfig
	err := serializer.DeserializeAny(d, &res.BeamWidth, &res.Blank, &res.InsertionBonus)
	if err != nil {
		return nil, essentials.AddCtx("deserialize BeamConfig", err)
	}
	return &res, nil
}

// Validate checks that the configuration can be used on
// inputs with numClasses classes per timestep.
//
// If numClasses is 0, the blank index is only checked for
// being non-negative.
func (b *BeamConfig) Validate(numClasses int) error {
	if b.BeamWidth < 1 {
		return fmt.Errorf("%w: beam width %d is less than 1", ErrInvalidConfig, b.BeamWidth)
	}
	if b.Blank < 0 || (numClasses > 0 && b.Blank >= numClasses) {
		return fmt.Errorf("%w: blank index %d out of range for %d classes",
			ErrInvalidConfig, b.Blank, numClasses)
	}
	return nil
}

// SerializerType returns the unique ID used to serialize
// a BeamConfig with the serializer package.
func (b *BeamConfig) SerializerType() string {
	return "github.com/unixpickle/anydecode/anyctc.BeamConfig"
}

// Serialize serializes the BeamConfig.
func (b *BeamConfig) Serialize() ([]byte, error) {
	return serializer.SerializeAny(b.BeamWidth, b.Blank, b.InsertionBonus)
}
