// Package config provides configuration loading and validation for the cty
// command line tool.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/cty/cty"
)

// Config is the root configuration structure.
type Config struct {
	Validation ValidationConfig `yaml:"validation"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Store      StoreConfig      `yaml:"store"`
}

// ValidationConfig bounds a single validation call. A zero value disables
// the corresponding check.
type ValidationConfig struct {
	MaxDepth    int           `yaml:"max_depth"`
	MaxRevisits int           `yaml:"max_revisits"`
	TimeBudget  time.Duration `yaml:"time_budget"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// MetricsConfig configures the Prometheus collector.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// StoreConfig configures the snapshot store.
type StoreConfig struct {
	Path string `yaml:"path"` // SQLite file; empty disables the store commands
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	limits := cty.DefaultLimits()
	return &Config{
		Validation: ValidationConfig{
			MaxDepth:    limits.MaxDepth,
			MaxRevisits: limits.MaxRevisits,
			TimeBudget:  limits.TimeBudget,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Metrics: MetricsConfig{Namespace: "cty"},
	}
}

// Load reads configuration from a YAML file. Fields absent from the file
// keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration. Unknown fields are rejected. Environment
// variables in the document are expanded first, then CTY_* overrides apply.
func Parse(data []byte) (*Config, error) {
	data = []byte(os.ExpandEnv(string(data)))

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies CTY_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CTY_MAX_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Validation.MaxDepth = n
		}
	}
	if v := os.Getenv("CTY_MAX_REVISITS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Validation.MaxRevisits = n
		}
	}
	if v := os.Getenv("CTY_TIME_BUDGET"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Validation.TimeBudget = d
		}
	}
	if v := os.Getenv("CTY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CTY_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("CTY_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("CTY_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
}

func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

// Validate checks field ranges and enumerations.
func (c *Config) Validate() error {
	if c.Validation.MaxDepth < 0 {
		return fmt.Errorf("validation.max_depth must not be negative, got %d", c.Validation.MaxDepth)
	}
	if c.Validation.MaxRevisits < 0 {
		return fmt.Errorf("validation.max_revisits must not be negative, got %d", c.Validation.MaxRevisits)
	}
	if c.Validation.MaxDepth == 0 && c.Validation.MaxRevisits == 0 {
		return fmt.Errorf("validation.max_depth and validation.max_revisits cannot both be 0")
	}
	if c.Validation.TimeBudget < 0 {
		return fmt.Errorf("validation.time_budget must not be negative, got %s", c.Validation.TimeBudget)
	}

	if _, err := parseLevel(c.Logging.Level); err != nil {
		return err
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", c.Logging.Format)
	}

	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return fmt.Errorf("metrics.namespace is required when metrics are enabled")
	}
	return nil
}

// Limits converts the validation section to validator limits.
func (c *Config) Limits() cty.Limits {
	return cty.Limits{
		MaxDepth:    c.Validation.MaxDepth,
		MaxRevisits: c.Validation.MaxRevisits,
		TimeBudget:  c.Validation.TimeBudget,
	}
}

// NewLogger builds a logger writing to w according to the logging section.
func (c *Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Logging.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("logging.level must be one of: debug, info, warn, error; got %q", s)
}
