// Package config loads circuitpatch configuration.
//
// Configuration comes from a single YAML file named by the --config flag
// or the CIRCUITPATCH_CONFIG environment variable. Without either, the
// defaults apply. Values the file omits keep their defaults.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable holding the config path.
const EnvVar = "CIRCUITPATCH_CONFIG"

// Config is the complete configuration
type Config struct {
	// OutputDir receives converted patches.
	OutputDir string `yaml:"output_dir"`

	Throttle ThrottleConfig `yaml:"throttle"`
	Server   ServerConfig   `yaml:"server"`
	MIDI     MIDIConfig     `yaml:"midi"`
	Log      LogConfig      `yaml:"log"`
}

// ThrottleConfig controls the pause between batches of emitted files.
type ThrottleConfig struct {
	// BatchSize is how many artifacts are emitted before each pause.
	BatchSize int `yaml:"batch_size"`
	// PauseMillis is the pause length in milliseconds.
	PauseMillis int `yaml:"pause_ms"`
}

// Pause returns the pause as a duration.
func (t ThrottleConfig) Pause() time.Duration {
	return time.Duration(t.PauseMillis) * time.Millisecond
}

// ServerConfig configures the API server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// MIDIConfig selects the output port used by send.
type MIDIConfig struct {
	// Port is matched case-insensitively against output port names.
	Port string `yaml:"port"`
}

// LogConfig configures the logger
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is text or json.
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		OutputDir: ".",
		Throttle: ThrottleConfig{
			BatchSize:   10,
			PauseMillis: 1000,
		},
		Server: ServerConfig{Port: 8080},
		MIDI:   MIDIConfig{Port: "Circuit"},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path, or the file named by CIRCUITPATCH_CONFIG when path is
// empty. With neither set it returns Default.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Throttle.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("throttle.batch_size must be at least 1, got %d", c.Throttle.BatchSize))
	}
	if c.Throttle.PauseMillis < 0 {
		errs = append(errs, fmt.Errorf("throttle.pause_ms must not be negative, got %d", c.Throttle.PauseMillis))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// NewLogger builds a logger writing to w.
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(l.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.ToLower(l.Format) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
