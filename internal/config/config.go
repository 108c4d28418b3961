// Package config provides the generator configuration.
//
// Configuration is built in layers, higher layers overriding lower:
//
//  1. Built-in defaults (Default)
//  2. A TOML or YAML file (Load)
//  3. EVENTSYS_* environment variables (ApplyEnv)
//
// The debug section controls which artifact kinds are written to the debug
// directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config is the generator configuration.
type Config struct {
	// Workers is the number of workers running asynchronous requests.
	Workers int `toml:"workers" yaml:"workers" env:"EVENTSYS_WORKERS"`

	// QueueSize bounds the number of pending asynchronous requests.
	QueueSize int `toml:"queue_size" yaml:"queue_size" env:"EVENTSYS_QUEUE_SIZE"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level" yaml:"log_level" env:"EVENTSYS_LOG_LEVEL"`

	Debug Debug `toml:"debug" yaml:"debug"`
}

// Debug selects the artifacts saved for inspection.
type Debug struct {
	// Enabled saves every artifact kind.
	Enabled bool `toml:"enabled" yaml:"enabled" env:"EVENTSYS_DEBUG"`

	FactoryGen  bool `toml:"factorygen" yaml:"factorygen" env:"EVENTSYS_DEBUG_FACTORYGEN"`
	EventGen    bool `toml:"eventgen" yaml:"eventgen" env:"EVENTSYS_DEBUG_EVENTGEN"`
	ListenerGen bool `toml:"listenergen" yaml:"listenergen" env:"EVENTSYS_DEBUG_LISTENERGEN"`

	// Dir is the root directory of saved artifacts.
	Dir string `toml:"dir" yaml:"dir" env:"EVENTSYS_DEBUG_DIR"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Workers:   4,
		QueueSize: 256,
		LogLevel:  "info",
		Debug: Debug{
			Dir: "eventsys-debug",
		},
	}
}

// FactoryGenEnabled reports whether factory artifacts are saved.
func (c Config) FactoryGenEnabled() bool { return c.Debug.Enabled || c.Debug.FactoryGen }

// EventGenEnabled reports whether event artifacts are saved.
func (c Config) EventGenEnabled() bool { return c.Debug.Enabled || c.Debug.EventGen }

// ListenerGenEnabled reports whether listener artifacts are saved.
func (c Config) ListenerGenEnabled() bool { return c.Debug.Enabled || c.Debug.ListenerGen }

// AnyDebug reports whether any artifact kind is saved.
func (c Config) AnyDebug() bool {
	return c.FactoryGenEnabled() || c.EventGenEnabled() || c.ListenerGenEnabled()
}

// Validate checks the configuration.
func (c Config) Validate() error {
	var errs []error
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if c.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("queue_size must be positive, got %d", c.QueueSize))
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log_level %q", c.LogLevel))
	}
	if c.AnyDebug() && c.Debug.Dir == "" {
		errs = append(errs, errors.New("debug.dir is required when debug output is enabled"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrValidationFailed, errors.Join(errs...))
	}
	return nil
}

// Load reads path over the defaults. The format is chosen by extension:
// .toml, .yaml or .yml. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := Parse(path, data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Parse decodes data into cfg using the format implied by name.
func Parse(name string, data []byte, cfg *Config) error {
	var err error
	switch strings.ToLower(filepath.Ext(name)) {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, name)
	}
	if err != nil {
		return &ParseError{Path: name, Err: err}
	}
	return nil
}

// ApplyEnv overrides cfg with EVENTSYS_* environment variables. Unset
// variables leave the current values alone.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadAll loads path, applies the environment and validates the result.
func LoadAll(path string) (Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}
