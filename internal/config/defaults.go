package config

import "time"

// DefaultConfig returns the built-in configuration: merge every PDF in the
// current directory into merged.pdf, no size limit, no transcript.
func DefaultConfig() *Config {
	return &Config{
		InputDir:    ".",
		OutputDir:   ".",
		Output:      "merged.pdf",
		MaxSizeMB:   0,
		Markdown:    false,
		HTTPTimeout: 60 * time.Second,
		UserAgent:   "bindery/1.0 (+https://github.com/cmaloney/bindery)",
		LogLevel:    "info",
	}
}
