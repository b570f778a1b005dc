// Package config loads bindery configuration from defaults, an optional
// config file, BINDERY_* environment variables, and bound flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds every knob for a merge run. It is built once at startup and
// passed explicitly through the pipeline; nothing reads ambient state later.
type Config struct {
	// InputDir is scanned for PDFs when no manifest is given.
	InputDir string `mapstructure:"input_dir"`

	// OutputDir receives the output units. Created if absent.
	OutputDir string `mapstructure:"output_dir"`

	// Output is the base output filename; later units insert a numeric
	// suffix before the extension.
	Output string `mapstructure:"output"`

	// Manifest is a newline-delimited file of paths/URLs to merge instead
	// of scanning InputDir.
	Manifest string `mapstructure:"manifest"`

	// MaxSizeMB is the size ceiling in megabytes that triggers splitting
	// into sequential output files. Zero disables splitting.
	MaxSizeMB float64 `mapstructure:"max_size_mb"`

	// Markdown selects the transcript output mode instead of PDF merging.
	Markdown bool `mapstructure:"markdown"`

	// HTTPTimeout is the request-level ceiling for each remote fetch.
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`

	// UserAgent is sent with remote requests.
	UserAgent string `mapstructure:"user_agent"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`

	// LogFile, when set, receives a copy of the log stream in addition to
	// stderr.
	LogFile string `mapstructure:"log_file"`
}

// MaxSizeBytes converts the configured ceiling to bytes. Zero means no limit.
func (c *Config) MaxSizeBytes() int64 {
	if c.MaxSizeMB <= 0 {
		return 0
	}
	return int64(c.MaxSizeMB * 1024 * 1024)
}

// Validate checks that the configuration describes a runnable merge.
func (c *Config) Validate() error {
	if c.Output == "" {
		return fmt.Errorf("output filename is required")
	}
	if c.MaxSizeMB < 0 {
		return fmt.Errorf("size limit must not be negative, got %v", c.MaxSizeMB)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be positive, got %v", c.HTTPTimeout)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}

// Load builds the configuration. Precedence, lowest to highest: defaults,
// config file, environment, flags bound by the caller onto v.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	defaults := DefaultConfig()
	v.SetDefault("input_dir", defaults.InputDir)
	v.SetDefault("output_dir", defaults.OutputDir)
	v.SetDefault("output", defaults.Output)
	v.SetDefault("manifest", defaults.Manifest)
	v.SetDefault("max_size_mb", defaults.MaxSizeMB)
	v.SetDefault("markdown", defaults.Markdown)
	v.SetDefault("http_timeout", defaults.HTTPTimeout)
	v.SetDefault("user_agent", defaults.UserAgent)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("log_file", defaults.LogFile)

	// Environment variables with BINDERY_ prefix
	v.SetEnvPrefix("BINDERY")
	v.AutomaticEnv()

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("bindery")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.bindery")
	}

	// Try to read config file (not required unless explicitly given)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			if cfgFile != "" || !os.IsNotExist(err) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	cfg := DefaultConfig()

	// Durations render as human-readable strings, not nanosecond counts.
	out := map[string]any{
		"input_dir":    cfg.InputDir,
		"output_dir":   cfg.OutputDir,
		"output":       cfg.Output,
		"manifest":     cfg.Manifest,
		"max_size_mb":  cfg.MaxSizeMB,
		"markdown":     cfg.Markdown,
		"http_timeout": cfg.HTTPTimeout.String(),
		"user_agent":   cfg.UserAgent,
		"log_level":    cfg.LogLevel,
		"log_file":     cfg.LogFile,
	}
	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Bindery configuration
# Values here are overridden by BINDERY_* environment variables and flags.

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
