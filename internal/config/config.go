// Package config loads configuration from an optional YAML file and
// environment variables. Environment variables override file values.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fruitsalade/mediagen/internal/filter"
	"github.com/fruitsalade/mediagen/internal/generator"
	"github.com/fruitsalade/mediagen/internal/storage"
)

// Config holds all mediagen configuration.
type Config struct {
	// Generator
	Settings    generator.Settings
	Filters     filter.Config
	FiltersFile string

	// Logging
	LogLevel  string
	LogFormat string

	// Watch mode
	MetricsAddr   string
	Workers       int
	QueueSize     int
	WatchInterval time.Duration

	// Adapters
	FFmpegTimeout string
	ImageQuality  int

	// Mirror backend ("local", "s3" or empty to disable)
	MirrorBackend string
	MirrorConfig  json.RawMessage

	// Manifest
	DatabaseURL string
}

func defaults() *Config {
	return &Config{
		Settings: generator.Settings{
			FilterDirectory:     "filters",
			CreateDirectoryMode: generator.DefaultDirectoryMode,
		},
		Filters:       filter.Config{},
		LogLevel:      "info",
		LogFormat:     "console",
		MetricsAddr:   ":9090",
		Workers:       2,
		QueueSize:     1000,
		WatchInterval: 5 * time.Second,
		ImageQuality:  85,
	}
}

// Load reads the YAML file at path, when path is not empty, then applies
// environment overrides and loads the filter file they name.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if cfg.FiltersFile != "" {
		filters, err := filter.LoadFile(cfg.FiltersFile)
		if err != nil {
			return nil, err
		}
		cfg.Filters = filters
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	if c.Settings.FilterDirectory == "" {
		return fmt.Errorf("filter directory is required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.ImageQuality < 1 || c.ImageQuality > 100 {
		return fmt.Errorf("image quality must be in [1, 100], got %d", c.ImageQuality)
	}
	if c.MirrorBackend != "" && !storage.Known(c.MirrorBackend) {
		return fmt.Errorf("%w: %s", storage.ErrUnknownBackend, c.MirrorBackend)
	}
	return c.Filters.Validate()
}

func (c *Config) applyEnv() error {
	c.Settings.BaseDirectory = envOr("MEDIAGEN_BASE_DIR", c.Settings.BaseDirectory)
	c.Settings.FilterDirectory = envOr("MEDIAGEN_FILTER_DIR", c.Settings.FilterDirectory)
	c.FiltersFile = envOr("MEDIAGEN_FILTERS", c.FiltersFile)
	c.LogLevel = envOr("LOG_LEVEL", c.LogLevel)
	c.LogFormat = envOr("LOG_FORMAT", c.LogFormat)
	c.MetricsAddr = envOr("METRICS_ADDR", c.MetricsAddr)
	c.FFmpegTimeout = envOr("MEDIAGEN_FFMPEG_TIMEOUT", c.FFmpegTimeout)
	c.MirrorBackend = envOr("MEDIAGEN_MIRROR_BACKEND", c.MirrorBackend)
	c.DatabaseURL = envOr("DATABASE_URL", c.DatabaseURL)

	var err error
	if c.Settings.CreateDirectory, err = envBool("MEDIAGEN_CREATE_DIR", c.Settings.CreateDirectory); err != nil {
		return err
	}
	if v := os.Getenv("MEDIAGEN_CREATE_DIR_MODE"); v != "" {
		mode, err := ParseMode(v)
		if err != nil {
			return fmt.Errorf("MEDIAGEN_CREATE_DIR_MODE: %w", err)
		}
		c.Settings.CreateDirectoryMode = mode
	}
	if c.Workers, err = envInt("MEDIAGEN_WORKERS", c.Workers); err != nil {
		return err
	}
	if c.QueueSize, err = envInt("MEDIAGEN_QUEUE_SIZE", c.QueueSize); err != nil {
		return err
	}
	if c.ImageQuality, err = envInt("MEDIAGEN_IMAGE_QUALITY", c.ImageQuality); err != nil {
		return err
	}
	if v := os.Getenv("MEDIAGEN_WATCH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("MEDIAGEN_WATCH_INTERVAL: %w", err)
		}
		c.WatchInterval = d
	}
	if v := os.Getenv("MEDIAGEN_MIRROR_CONFIG"); v != "" {
		if !json.Valid([]byte(v)) {
			return fmt.Errorf("MEDIAGEN_MIRROR_CONFIG is not valid JSON")
		}
		c.MirrorConfig = json.RawMessage(v)
	}
	return nil
}

// ParseMode parses an octal permission such as "0755", "755" or "0o755".
func ParseMode(s string) (os.FileMode, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0o"), "0O")
	m, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid octal mode %q", s)
	}
	if m > 0o777 {
		return 0, fmt.Errorf("mode %#o out of range", m)
	}
	return os.FileMode(m), nil
}

// relativeTo resolves path against the directory of file.
func relativeTo(file, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(filepath.Dir(file), path)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: invalid boolean %q", key, v)
	}
	return b, nil
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return i, nil
}
