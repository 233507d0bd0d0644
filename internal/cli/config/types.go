// Package config loads leapml settings.
//
// Values are layered with koanf: built-in defaults, then leapml.yaml, then
// LEAPML_* environment variables, then explicitly set command-line flags.
package config

import (
	"time"
)

// Defaults.
const (
	DefaultAddr            = ":8000"
	DefaultAPIKey          = "default-insecure-key"
	DefaultMaxUploadBytes  = 100 * 1024 * 1024
	DefaultStatePath       = ":memory:"
	DefaultShutdownTimeout = 5 * time.Second
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"

	// EnvPrefix namespaces environment overrides, e.g. LEAPML_API_KEY.
	EnvPrefix = "LEAPML_"
)

// Config holds all settings of the serve command.
type Config struct {
	Addr            string        `koanf:"addr"`
	APIKey          string        `koanf:"api_key"`
	MaxUploadBytes  int64         `koanf:"max_upload_bytes"`
	Workers         int           `koanf:"workers"`
	StatePath       string        `koanf:"state_path"`
	SeedsDir        string        `koanf:"seeds_dir"`
	WatchSeeds      bool          `koanf:"watch_seeds"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	LogLevel        string        `koanf:"log_level"`
	LogFormat       string        `koanf:"log_format"`
}

func defaults() map[string]any {
	return map[string]any{
		"addr":             DefaultAddr,
		"api_key":          DefaultAPIKey,
		"max_upload_bytes": DefaultMaxUploadBytes,
		"workers":          0,
		"state_path":       DefaultStatePath,
		"seeds_dir":        "",
		"watch_seeds":      false,
		"shutdown_timeout": DefaultShutdownTimeout.String(),
		"log_level":        DefaultLogLevel,
		"log_format":       DefaultLogFormat,
	}
}
