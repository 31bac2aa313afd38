package anys2s

import (
	"errors"
	"fmt"

	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	serializer.RegisterTypedDeserializer((&Config{}).SerializerType(), DeserializeConfig)
}

var (
	// ErrInvalidConfig is returned when a decoder is
	// configured with invalid settings.
	ErrInvalidConfig = errors.New("invalid decoder configuration")

	// ErrUnsupported is returned for decoder configurations
	// which are valid but cannot be decoded.
	ErrUnsupported = errors.New("unsupported decoder configuration")
)

// Config stores the search parameters of a Decoder.
type Config struct {
	// BeamWidth is the number of hypotheses kept after
	// every step.
	// A BeamWidth of 1 selects greedy decoding.
	BeamWidth int `yaml:"beam_width"`

	// MaxDecodeLen is the maximum number of steps to run
	// before giving up on an end symbol.
	MaxDecodeLen int `yaml:"max_decode_len"`

	// LengthPenalty is multiplied by a hypothesis's length
	// (including its start and end symbols) and added to its
	// score before final ranking.
	// Positive values favor longer outputs.
	LengthPenalty float64 `yaml:"length_penalty"`

	// Workers is the number of utterances a beam search
	// decodes concurrently.
	// Values less than 1 are treated as 1.
	Workers int `yaml:"workers"`
}

// DefaultConfig creates a Config for greedy decoding.
func DefaultConfig() *Config {
	return &Config{
		BeamWidth:    1,
		MaxDecodeLen: 100,
		Workers:      1,
	}
}

// DeserializeConfig deserializes a Config.
func DeserializeConfig(d []byte) (*Config, error) {
	var res Config
	err := serializer.DeserializeAny(d, &res.BeamWidth, &res.MaxDecodeLen,
		&res.LengthPenalty, &res.Workers)
	if err != nil {
		return nil, essentials.AddCtx("deserialize decoder config", err)
	}
	return &res, nil
}

// Validate checks that the search parameters are usable.
func (c *Config) Validate() error {
	if c.BeamWidth < 1 {
		return fmt.Errorf("%w: beam width %d", ErrInvalidConfig, c.BeamWidth)
	}
	if c.MaxDecodeLen < 1 {
		return fmt.Errorf("%w: max decode length %d", ErrInvalidConfig, c.MaxDecodeLen)
	}
	return nil
}

func (c *Config) workers() int {
	return essentials.MaxInt(1, c.Workers)
}

// SerializerType returns the unique ID used to serialize
// a Config with the serializer package.
func (c *Config) SerializerType() string {
	return "github.com/unixpickle/anydecode/anys2s.Config"
}

// Serialize serializes the Config.
func (c *Config) Serialize() ([]byte, error) {
	return serializer.SerializeAny(
		c.BeamWidth,
		c.MaxDecodeLen,
		c.LengthPenalty,
		c.Workers,
	)
}
