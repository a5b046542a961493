// Package config loads the YAML configuration of the epubfetch command.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-epubfetch/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// appDir is the directory under the user config dir searched for configs.
const appDir = "go-epubfetch"

// Limits for config values.
const (
	MaxConcurrency     = 64
	MaxDirLength       = 4096 // PATH_MAX
	MaxDurationLength  = 20   // "2m30s"
	MaxPageSizeLength  = 10   // "letter", "a4", "legal"
	MaxLogLevelLength  = 10
	MaxLogFormatLength = 10
)

// Defaults applied by DefaultConfig and for zero values.
const (
	DefaultConcurrency   = 8
	DefaultLogLevel      = "warn"
	DefaultLogFormat     = "console"
	DefaultRenderTimeout = 30 * time.Second
	DefaultPageSize      = "letter"
)

// Config holds the configuration of the epubfetch command.
type Config struct {
	Fetch  FetchConfig  `yaml:"fetch"`
	Log    LogConfig    `yaml:"log"`
	Output OutputConfig `yaml:"output"`
	Render RenderConfig `yaml:"render"`
}

// FetchConfig defines resource fetching options.
type FetchConfig struct {
	Concurrency int `yaml:"concurrency"` // Simultaneous fetches per publication (1-64, default 8)
}

// LogConfig defines logging options.
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error" (default: "warn")
	Format string `yaml:"format"` // "console", "json" (default: "console")
}

// OutputConfig defines output destination options.
type OutputConfig struct {
	DefaultDir string `yaml:"defaultDir"` // Default export directory (empty = <publication>-resolved)
}

// RenderConfig defines PDF rendering options.
type RenderConfig struct {
	Timeout   string `yaml:"timeout"`   // Go duration, e.g. "45s" (default: 30s)
	PageSize  string `yaml:"pageSize"`  // "letter", "a4", "legal" (default: "letter")
	Landscape bool   `yaml:"landscape"` // default: portrait
}

// TimeoutDuration returns the render timeout, the default when unset.
// Validate guarantees the value parses.
func (r RenderConfig) TimeoutDuration() time.Duration {
	if r.Timeout == "" {
		return DefaultRenderTimeout
	}
	d, err := time.ParseDuration(r.Timeout)
	if err != nil || d <= 0 {
		return DefaultRenderTimeout
	}
	return d
}

// Validate checks field lengths and value ranges.
// Called automatically by LoadConfig, but available for consumers
// who construct Config manually.
func (c *Config) Validate() error {
	if c.Fetch.Concurrency < 0 || c.Fetch.Concurrency > MaxConcurrency {
		return fmt.Errorf("%w: fetch.concurrency: must be between 0 and %d, got %d",
			ErrInvalidValue, MaxConcurrency, c.Fetch.Concurrency)
	}

	if err := validateFieldLength("log.level", c.Log.Level, MaxLogLevelLength); err != nil {
		return err
	}
	if c.Log.Level != "" {
		switch strings.ToLower(c.Log.Level) {
		case "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("%w: log.level: %q (must be debug, info, warn, or error)", ErrInvalidValue, c.Log.Level)
		}
	}
	if err := validateFieldLength("log.format", c.Log.Format, MaxLogFormatLength); err != nil {
		return err
	}
	if c.Log.Format != "" {
		switch strings.ToLower(c.Log.Format) {
		case "console", "json":
		default:
			return fmt.Errorf("%w: log.format: %q (must be console or json)", ErrInvalidValue, c.Log.Format)
		}
	}

	if err := validateFieldLength("output.defaultDir", c.Output.DefaultDir, MaxDirLength); err != nil {
		return err
	}

	if err := validateFieldLength("render.timeout", c.Render.Timeout, MaxDurationLength); err != nil {
		return err
	}
	if c.Render.Timeout != "" {
		d, err := time.ParseDuration(c.Render.Timeout)
		if err != nil {
			return fmt.Errorf("%w: render.timeout: %v", ErrInvalidValue, err)
		}
		if d <= 0 {
			return fmt.Errorf("%w: render.timeout: must be positive, got %s", ErrInvalidValue, d)
		}
	}
	if err := validateFieldLength("render.pageSize", c.Render.PageSize, MaxPageSizeLength); err != nil {
		return err
	}
	if c.Render.PageSize != "" {
		switch strings.ToLower(c.Render.PageSize) {
		case "letter", "a4", "legal":
		default:
			return fmt.Errorf("%w: render.pageSize: %q (must be letter, a4, or legal)", ErrInvalidValue, c.Render.PageSize)
		}
	}

	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Fetch:  FetchConfig{Concurrency: DefaultConcurrency},
		Log:    LogConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
		Output: OutputConfig{DefaultDir: ""},
		Render: RenderConfig{Timeout: DefaultRenderTimeout.String(), PageSize: DefaultPageSize},
	}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Unset fields keep their DefaultConfig values.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if isFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	f, err := os.Open(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	cfg := DefaultConfig()
	if err := yamlutil.DecodeStrict(f, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, ~/.config/go-epubfetch/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2) // 2 locations

	for _, ext := range extensions {
		localPath := name + ext
		if fileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, appDir, name+ext)
			if fileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}

// fileExists returns true if the path exists and is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
