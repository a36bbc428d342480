// Package config holds pdfmut's process-wide signing configuration: the
// fixed-width reservation capacities, the temp directory, and the producer
// string stamped into signed documents.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ConfigError represents a configuration error with context.
type ConfigError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// SignConfig is pdfmut's signing configuration: the enumerated recognized
// options for the reserved placeholder widths, the scratch directory, and
// the producer string, all of which the signature coordinator otherwise
// treats as constants.
type SignConfig struct {
	// SignatureHexCapacity is SIG_HEX_CAP, the number of hex characters
	// reserved for the signature's /Contents placeholder.
	SignatureHexCapacity int `yaml:"signature_hex_capacity"`

	// ByteRangeCapacity is BR_CAP, the number of bytes reserved for the
	// signature's /ByteRange placeholder.
	ByteRangeCapacity int `yaml:"byte_range_capacity"`

	// TempDir is where the coordinator writes the scratch file passed to
	// the detached signer. Defaults to the OS temp directory.
	TempDir string `yaml:"temp_dir"`

	// Producer is written to the Info dictionary's /Producer entry after
	// signing.
	Producer string `yaml:"producer"`

	// WidgetNameSeed seeds the widget name generator so identical inputs
	// produce identical output byte layouts (spec's determinism
	// requirement — the only allowed non-determinism is the signature
	// bytes and the widget name suffix).
	WidgetNameSeed int64 `yaml:"widget_name_seed"`
}

// Default returns pdfmut's built-in defaults.
func Default() *SignConfig {
	return &SignConfig{
		SignatureHexCapacity: 11742,
		ByteRangeCapacity:    68,
		TempDir:              os.TempDir(),
		Producer:             "Modificado con SAPP",
		WidgetNameSeed:       1,
	}
}

// Validate checks that the configuration can drive a signing session.
func (c *SignConfig) Validate() error {
	if c.SignatureHexCapacity <= 0 {
		return NewConfigError("signature_hex_capacity", "must be positive")
	}
	if c.SignatureHexCapacity%2 != 0 {
		return NewConfigError("signature_hex_capacity", "must be even (it holds whole hex-encoded bytes)")
	}
	if c.ByteRangeCapacity <= 0 {
		return NewConfigError("byte_range_capacity", "must be positive")
	}
	if c.TempDir == "" {
		return NewConfigError("temp_dir", "must not be empty")
	}
	if info, err := os.Stat(c.TempDir); err != nil || !info.IsDir() {
		return NewConfigError("temp_dir", fmt.Sprintf("%q is not an accessible directory", c.TempDir))
	}
	return nil
}

// Load reads and validates a SignConfig from a YAML file, applying
// Default's values to any field the file omits.
func Load(path string) (*SignConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses a SignConfig from YAML bytes, applying Default's values to
// any field the document omits.
func Parse(data []byte) (*SignConfig, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
