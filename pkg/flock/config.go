package flock

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig matches every *ConfigError through errors.Is.
var ErrInvalidConfig = errors.New("invalid flock configuration")

// ConfigError reports a configuration value the simulator cannot run with.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("flock: invalid config: %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidConfig) true for any *ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// UpdateMode selects which state the rule functions read during a Step.
type UpdateMode string

const (
	// Sequential reads the live agent slice: agent j sees agents 0..j-1
	// already moved during the same step, and its own partially summed velocity.
	Sequential UpdateMode = "sequential"
	// Snapshot reads a copy of the agents taken before the step begins.
	Snapshot UpdateMode = "snapshot"
)

// Config holds the flocking rule parameters.
type Config struct {
	// Rule toggles
	UseCohesion   bool `json:"useCohesion" yaml:"useCohesion" toml:"useCohesion"`
	UseSeparation bool `json:"useSeparation" yaml:"useSeparation" toml:"useSeparation"`
	UseAlignment  bool `json:"useAlignment" yaml:"useAlignment" toml:"useAlignment"`

	// Near-neighbour filter for cohesion and alignment
	NearNeighboursOnly bool    `json:"nearNeighboursOnly" yaml:"nearNeighboursOnly" toml:"nearNeighboursOnly"`
	NearDistance       float64 `json:"nearDistance" yaml:"nearDistance" toml:"nearDistance"`

	// Rule divisors. R2 doubles as the separation radius.
	R1 float64 `json:"r1" yaml:"r1" toml:"r1"`
	R2 float64 `json:"r2" yaml:"r2" toml:"r2"`
	R3 float64 `json:"r3" yaml:"r3" toml:"r3"`

	CohesionSpeed  float64 `json:"cohesionSpeed" yaml:"cohesionSpeed" toml:"cohesionSpeed"`
	AlignmentSpeed float64 `json:"alignmentSpeed" yaml:"alignmentSpeed" toml:"alignmentSpeed"`

	// Mode defaults to Sequential when empty.
	Mode UpdateMode `json:"updateMode,omitempty" yaml:"updateMode,omitempty" toml:"updateMode,omitempty"`
}

// DefaultConfig returns the stock flocking parameters.
func DefaultConfig() Config {
	return Config{
		UseCohesion:        true,
		UseSeparation:      true,
		UseAlignment:       true,
		NearNeighboursOnly: false,
		NearDistance:       10,
		R1:                 100,
		R2:                 100,
		R3:                 8,
		CohesionSpeed:      0.5,
		AlignmentSpeed:     0.5,
		Mode:               Sequential,
	}
}

// Validate returns a *ConfigError describing the first unusable value.
func (c Config) Validate() error {
	divisors := []struct {
		name  string
		value float64
	}{
		{"r1", c.R1},
		{"r2", c.R2},
		{"r3", c.R3},
	}
	for _, d := range divisors {
		if d.value == 0 {
			return &ConfigError{Field: d.name, Reason: "must be non-zero"}
		}
	}

	finite := []struct {
		name  string
		value float64
	}{
		{"r1", c.R1},
		{"r2", c.R2},
		{"r3", c.R3},
		{"nearDistance", c.NearDistance},
		{"cohesionSpeed", c.CohesionSpeed},
		{"alignmentSpeed", c.AlignmentSpeed},
	}
	for _, f := range finite {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return &ConfigError{Field: f.name, Reason: "must be finite"}
		}
	}

	if c.NearDistance < 0 {
		return &ConfigError{Field: "nearDistance", Reason: "must be >= 0"}
	}

	switch c.Mode {
	case "", Sequential, Snapshot:
	default:
		return &ConfigError{Field: "updateMode", Reason: fmt.Sprintf("unknown mode %q", c.Mode)}
	}
	return nil
}

func (c Config) mode() UpdateMode {
	if c.Mode == "" {
		return Sequential
	}
	return c.Mode
}
