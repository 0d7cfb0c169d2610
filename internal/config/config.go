// Package config loads and writes go-flock3d run files.
//
// A run file may be JSON, YAML or TOML. Whatever the format, the document is
// normalised to JSON, validated against a JSON schema and decoded over the
// defaults, so a file only needs the keys it changes.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/lao-tseu-is-alive/go-flock3d/pkg/flock"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed flock.schema.json
var embeddedSchema string

const embeddedSchemaURL = "flock.schema.json"

// Format is a run file encoding.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
	TOML Format = "toml"
)

// ErrUnknownFormat is returned for a file extension no decoder handles.
var ErrUnknownFormat = errors.New("unknown config format")

// Config is everything needed to start a run.
type Config struct {
	// World Dimensions
	Field flock.FieldBounds `json:"field" yaml:"field" toml:"field"`

	// Population
	BoidAmount int    `json:"boidAmount" yaml:"boidAmount" toml:"boidAmount"`
	Seed       uint64 `json:"seed" yaml:"seed" toml:"seed"`

	// Headless runs stop after Steps ticks
	Steps int `json:"steps" yaml:"steps" toml:"steps"`

	Rules flock.Config `json:"rules" yaml:"rules" toml:"rules"`
}

func DefaultConfig() *Config {
	return &Config{
		Field:      flock.DefaultBounds(),
		BoidAmount: 10,
		Seed:       1,
		Steps:      1000,
		Rules:      flock.DefaultConfig(),
	}
}

// Validate checks the parts the schema cannot express.
func (c *Config) Validate() error {
	if err := c.Field.Validate(); err != nil {
		return err
	}
	if c.BoidAmount < 0 {
		return &flock.ConfigError{Field: "boidAmount", Reason: "must be >= 0"}
	}
	if c.Steps < 0 {
		return &flock.ConfigError{Field: "steps", Reason: "must be >= 0"}
	}
	return c.Rules.Validate()
}

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSON, nil
	case ".yaml", ".yml":
		return YAML, nil
	case ".toml":
		return TOML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
}

// Load reads configFile and validates it against the embedded schema.
func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile, "")
}

// LoadConfig loads configuration from a file and validates it against the schema.
// An empty schemaFile selects the embedded schema.
func LoadConfig(configFile string, schemaFile string) (*Config, error) {
	// 1. Compile Schema
	sch, err := compileSchema(schemaFile)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	// 2. Read Config File
	format, err := FormatOf(configFile)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	return parse(data, format, sch)
}

// Parse decodes and validates a run file held in memory.
func Parse(data []byte, format Format) (*Config, error) {
	sch, err := compileSchema("")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return parse(data, format, sch)
}

func parse(data []byte, format Format, sch *jsonschema.Schema) (*Config, error) {
	raw, err := toJSON(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", format, err)
	}

	// 3. Validate
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("failed to decode config json: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// 4. Unmarshal into Struct, over the defaults
	cfg := DefaultConfig()
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func compileSchema(schemaFile string) (*jsonschema.Schema, error) {
	if schemaFile == "" {
		return jsonschema.CompileString(embeddedSchemaURL, embeddedSchema)
	}
	return jsonschema.Compile(schemaFile)
}

// toJSON re-encodes a YAML or TOML document as JSON so that one schema and
// one set of struct tags govern every format.
func toJSON(data []byte, format Format) ([]byte, error) {
	var doc interface{}
	switch format {
	case JSON:
		return data, nil
	case YAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	case TOML:
		m := map[string]interface{}{}
		if _, err := toml.Decode(string(data), &m); err != nil {
			return nil, err
		}
		doc = m
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if doc == nil {
		doc = map[string]interface{}{}
	}
	return json.Marshal(doc)
}

// Write encodes cfg in the given format.
func (c *Config) Write(w io.Writer, format Format) error {
	switch format {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return err
		}
		return enc.Close()
	case TOML:
		return toml.NewEncoder(w).Encode(c)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// Save writes cfg to path, choosing the format from the extension.
func (c *Config) Save(path string) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := c.Write(&buf, format); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
