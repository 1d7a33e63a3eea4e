// Copyright 2025 Magnus Pierre
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config holds the widgetjson command configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all widgetjson configuration.
type Config struct {
	Export  ExportConfig  `yaml:"export"`
	Rows    RowsConfig    `yaml:"rows"`
	CSV     CSVConfig     `yaml:"csv"`
	Sharing SharingConfig `yaml:"sharing"`
	Logging LoggingConfig `yaml:"logging"`
}

// ExportConfig configures value and table serialization.
type ExportConfig struct {
	// Limit is the default row limit for exported tables.
	Limit int `yaml:"limit"`

	// MaxDepth bounds the nesting depth of serialized values.
	MaxDepth int `yaml:"max_depth"`

	// Strict rejects tables with empty or duplicate column names.
	Strict bool `yaml:"strict"`

	// Workers bounds how many files are exported at once.
	Workers int `yaml:"workers"`

	// Pretty indents the JSON output.
	Pretty bool `yaml:"pretty"`
}

// RowsConfig configures row shaping.
type RowsConfig struct {
	RowAsObject bool `yaml:"row_as_object"`
}

// CSVConfig configures CSV loading.
type CSVConfig struct {
	// Delimiter is a single character; empty means detect from the first line.
	Delimiter  string   `yaml:"delimiter"`
	HasHeaders bool     `yaml:"has_headers"`
	TrimSpace  bool     `yaml:"trim_space"`
	NullValues []string `yaml:"null_values"`
}

// SharingConfig configures Delta Sharing access.
type SharingConfig struct {
	// Profile is the path to a Delta Sharing profile file.
	Profile string `yaml:"profile"`
	Timeout string `yaml:"timeout"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Export: ExportConfig{
			Limit:    1000,
			MaxDepth: 64,
			Strict:   false,
			Workers:  4,
			Pretty:   false,
		},
		Rows: RowsConfig{
			RowAsObject: false,
		},
		CSV: CSVConfig{
			Delimiter:  "",
			HasHeaders: true,
			TrimSpace:  true,
			NullValues: []string{"NULL", "null", "NA"},
		},
		Sharing: SharingConfig{
			Timeout: "60s",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the configuration at path on top of the defaults and applies
// environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies WIDGETJSON_* environment variables.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("WIDGETJSON_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Export.Limit = n
		}
	}
	if v := os.Getenv("WIDGETJSON_ROW_AS_OBJECT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Rows.RowAsObject = b
		}
	}
	if v := os.Getenv("WIDGETJSON_SHARING_PROFILE"); v != "" {
		c.Sharing.Profile = v
	}
	if v := os.Getenv("WIDGETJSON_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// SharingTimeout returns the Delta Sharing request timeout, 60s when unset
// or unparsable.
func (c *Config) SharingTimeout() time.Duration {
	if d, err := time.ParseDuration(c.Sharing.Timeout); err == nil && d > 0 {
		return d
	}
	return 60 * time.Second
}

// Delimiter returns the configured CSV delimiter, or 0 for auto-detection.
func (c *Config) Delimiter() rune {
	if c.CSV.Delimiter == "" {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(c.CSV.Delimiter)
	return r
}

// Validate checks the configuration for values the exporter cannot use.
func (c *Config) Validate() error {
	if c.Export.Limit < 0 {
		return fmt.Errorf("%w: export.limit must not be negative, got %d", ErrInvalidConfig, c.Export.Limit)
	}
	if c.Export.MaxDepth < 1 {
		return fmt.Errorf("%w: export.max_depth must be positive, got %d", ErrInvalidConfig, c.Export.MaxDepth)
	}
	if c.Export.Workers < 1 {
		return fmt.Errorf("%w: export.workers must be positive, got %d", ErrInvalidConfig, c.Export.Workers)
	}
	if utf8.RuneCountInString(c.CSV.Delimiter) > 1 {
		return fmt.Errorf("%w: csv.delimiter must be a single character, got %q", ErrInvalidConfig, c.CSV.Delimiter)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown logging.level %q", ErrInvalidConfig, c.Logging.Level)
	}
	return nil
}
