// Package config handles mmdtool configuration loading and management.
package config

import (
	"fmt"

	"github.com/Faultbox/pmxvmd/pkg/encoding"
)

// Config holds all tool settings.
type Config struct {
	Decode  DecodeConfig  `yaml:"decode"`
	Logging LoggingConfig `yaml:"logging"`
}

// DecodeConfig holds PMX/VMD decoder settings.
type DecodeConfig struct {
	NarrowEncoding    string `yaml:"narrow_encoding"`     // fixed-length name encoding
	Batch             bool   `yaml:"batch"`               // use the struct-of-arrays decoders
	KeepAdditionalUVs bool   `yaml:"keep_additional_uvs"` // keep PMX additional UV channels
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Decode: DecodeConfig{
			NarrowEncoding:    "shift_jis",
			Batch:             false,
			KeepAdditionalUVs: true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate checks values that cannot be caught by YAML decoding.
func (c *Config) Validate() error {
	if _, err := encoding.Lookup(c.Decode.NarrowEncoding); err != nil {
		return fmt.Errorf("decode.narrow_encoding: %w", err)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unknown level %q", c.Logging.Level)
	}
	return nil
}
