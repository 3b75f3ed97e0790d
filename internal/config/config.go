// Package config loads the server and CLI configuration.
//
// Values are resolved in three layers: DefaultConfig, then an optional YAML
// (or JSON) file, then IMAGE_STATS_* environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/image-stats-mcp/internal/imaging"
	"github.com/ironsheep/image-stats-mcp/internal/statistics"
)

// Environment variables read by Load.
const (
	EnvConfigPath   = "IMAGE_STATS_CONFIG"
	EnvNumSigmaClip = "IMAGE_STATS_NUM_SIGMA_CLIP"
	EnvNumIter      = "IMAGE_STATS_NUM_ITER"
	EnvAndMask      = "IMAGE_STATS_AND_MASK"
	EnvChannel      = "IMAGE_STATS_CHANNEL"
	EnvMetricsAddr  = "IMAGE_STATS_METRICS_ADDR"
	EnvLogLevel     = "IMAGE_STATS_LOG_LEVEL"
	EnvCacheEntries = "IMAGE_STATS_CACHE_MAX_ENTRIES"
)

// Config is the full configuration.
type Config struct {
	// Statistics is the default Control for every request. Per-request
	// arguments override it field by field.
	Statistics statistics.ControlOptions `yaml:"statistics" json:"statistics"`

	Defaults DefaultsConfig `yaml:"defaults" json:"defaults"`
	Metrics  MetricsConfig  `yaml:"metrics" json:"metrics"`
	Cache    CacheConfig    `yaml:"cache" json:"cache"`

	// LogLevel is "info" or "debug".
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// DefaultsConfig holds request defaults that are not part of a Control.
type DefaultsConfig struct {
	Channel    string   `yaml:"channel" json:"channel"`
	Properties []string `yaml:"properties" json:"properties"`

	// Format is the CLI output format, "yaml" or "json".
	Format string `yaml:"format" json:"format"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address of /metrics, e.g. ":9464". Empty disables
	// the endpoint.
	Addr string `yaml:"addr" json:"addr"`
}

// CacheConfig bounds the decoded-image cache of a long-running server.
type CacheConfig struct {
	// MaxEntries is the number of decoded images (frames, masks and variance
	// images together) kept in memory.
	MaxEntries int `yaml:"max_entries" json:"max_entries"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		Defaults: DefaultsConfig{
			Channel:    string(imaging.ChannelLuminance),
			Properties: []string{"NPOINT", "MEAN", "STDEV", "MEDIAN", "MIN", "MAX"},
			Format:     "yaml",
		},
		Cache:    CacheConfig{MaxEntries: imaging.DefaultCacheEntries},
		LogLevel: "info",
	}
}

// Load builds the configuration from defaults, the file at path (or at
// $IMAGE_STATS_CONFIG when path is empty) and the environment.
//
// A named file that does not exist is an error; with no file named, the
// defaults are used.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := loadFromEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("load config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// Try YAML first, then JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return nil
}

func loadFromEnv(cfg *Config) error {
	if v := os.Getenv(EnvNumSigmaClip); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvNumSigmaClip, err)
		}
		cfg.Statistics.NumSigmaClip = &f
	}
	if v := os.Getenv(EnvNumIter); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvNumIter, err)
		}
		cfg.Statistics.NumIter = &i
	}
	if v := os.Getenv(EnvAndMask); v != "" {
		cfg.Statistics.AndMask = splitMaskNames(v)
	}
	if v := os.Getenv(EnvChannel); v != "" {
		cfg.Defaults.Channel = v
	}
	if v := os.Getenv(EnvMetricsAddr); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvCacheEntries); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvCacheEntries, err)
		}
		cfg.Cache.MaxEntries = n
	}
	return nil
}

// Validate checks every field, including that mask plane, statistic and
// channel names are known.
func (c Config) Validate() error {
	if _, err := c.Control(); err != nil {
		return fmt.Errorf("statistics: %w", err)
	}
	if _, err := c.DefaultProperties(); err != nil {
		return fmt.Errorf("defaults.properties: %w", err)
	}
	if _, err := imaging.ParseChannel(c.Defaults.Channel); err != nil {
		return fmt.Errorf("defaults.channel: %w", err)
	}
	switch c.Defaults.Format {
	case "", "yaml", "json":
	default:
		return fmt.Errorf("defaults.format must be yaml or json, got %q", c.Defaults.Format)
	}
	if c.Cache.MaxEntries < 1 {
		return fmt.Errorf("cache.max_entries must be at least 1, got %d", c.Cache.MaxEntries)
	}
	switch c.LogLevel {
	case "", "info", "debug":
	default:
		return fmt.Errorf("log_level must be info or debug, got %q", c.LogLevel)
	}
	return nil
}

// splitMaskNames accepts "BAD|SAT" as on the command line as well as
// "BAD,SAT".
func splitMaskNames(v string) []string {
	return strings.FieldsFunc(v, func(r rune) bool {
		return r == '|' || r == ',' || r == ' '
	})
}

// Control returns the default statistics Control.
func (c Config) Control() (statistics.Control, error) {
	return c.Statistics.ToControl()
}

// DefaultProperties returns the statistics computed when a request names
// none.
func (c Config) DefaultProperties() (statistics.Property, error) {
	p, err := statistics.ParseProperties(c.Defaults.Properties)
	if err != nil {
		return 0, err
	}
	if len(p.Stats()) == 0 {
		return 0, fmt.Errorf("%w: no statistic in %v", statistics.ErrInvalidRequest, c.Defaults.Properties)
	}
	return p, nil
}

// Debug reports whether debug logging is enabled.
func (c Config) Debug() bool {
	return c.LogLevel == "debug"
}
