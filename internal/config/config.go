// Package config loads the tlsguard configuration file.
//
// TOML (.toml) and YAML (.yaml, .yml) are supported; the format is chosen
// by file extension. Values missing from the file keep their defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat is returned for config files with an unsupported extension.
var ErrUnknownFormat = errors.New("config: unsupported file format")

// Config is the complete tlsguard configuration.
type Config struct {
	Security SecurityConfig `toml:"security" yaml:"security"`
	Library  LibraryConfig  `toml:"library" yaml:"library"`
	Log      LogConfig      `toml:"log" yaml:"log"`
	Audit    AuditConfig    `toml:"audit" yaml:"audit"`
	Metrics  MetricsConfig  `toml:"metrics" yaml:"metrics"`
}

// SecurityConfig holds the operator acknowledgment for the version gate.
type SecurityConfig struct {
	// AllowVulnerableOpenSSL is "yes" to skip the version check, or the ID
	// of the newest defect the operator has verified as patched. Anything
	// else, including the default "no", runs the full check.
	AllowVulnerableOpenSSL string `toml:"allow_vulnerable_openssl" yaml:"allow_vulnerable_openssl"`
}

// LibraryConfig selects the OpenSSL shared libraries.
type LibraryConfig struct {
	CryptoPath string `toml:"crypto_path" yaml:"crypto_path"`
	SSLPath    string `toml:"ssl_path" yaml:"ssl_path"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level string `toml:"level" yaml:"level"`
	JSON  bool   `toml:"json" yaml:"json"`
}

// AuditConfig enables the startup audit database when Path is set.
type AuditConfig struct {
	Path string `toml:"path" yaml:"path"`
}

// MetricsConfig is the listen address for the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `toml:"addr" yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Security: SecurityConfig{AllowVulnerableOpenSSL: "no"},
		Log:      LogConfig{Level: "info"},
		Metrics:  MetricsConfig{Addr: "127.0.0.1:9464"},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that have a fixed set of choices.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("config: log.level %q must be debug, info, warn or error", c.Log.Level)
	}
	return nil
}
