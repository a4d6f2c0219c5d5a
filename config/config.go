// Package config holds the settings a host supplies when constructing a cache.
//
// A Config can be built in code, starting from New, or loaded from a CUE,
// YAML or JSON file with a Loader. Every loaded file is checked against the
// embedded CUE schema before it is decoded, and the result is always passed
// through SetDefaults and Validate.
package config

import (
	"fmt"

	"github.com/jmgilman/go/cache/logging"
)

// Default values used by New and the schema. SetDefaults applies all of
// them except the capacity and TTL, where zero is meaningful.
const (
	DefaultCapacity       int64 = 128 << 20
	DefaultEvictionPolicy       = "lfru"
	DefaultAdjusterPolicy       = "default"
	DefaultTTLHours             = 1
	DefaultLogLevel             = "info"
)

// Config holds configuration for a cache instance.
type Config struct {
	// Capacity is the byte budget of the cache.
	Capacity int64 `json:"capacity" yaml:"capacity"`

	// EvictionPolicy selects the eviction policy by registry name.
	EvictionPolicy string `json:"eviction_policy" yaml:"eviction_policy"`

	// AdjusterPolicy selects the TTL adjuster by registry name.
	AdjusterPolicy string `json:"adjuster_policy" yaml:"adjuster_policy"`

	// DefaultTTLHours is used by inserts that do not set a TTL. Zero makes
	// such entries expire immediately.
	DefaultTTLHours int `json:"default_ttl_hours" yaml:"default_ttl_hours"`

	// ForcePinnedInsertEviction lets inserts of pinned entries evict other
	// pinned entries when nothing else can make room.
	ForcePinnedInsertEviction bool `json:"force_pinned_insert_eviction" yaml:"force_pinned_insert_eviction"`

	// Logging configures the logger built by hosts from this file.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// LoggingConfig selects log output settings.
type LoggingConfig struct {
	Level string `json:"level" yaml:"level"`
	JSON  bool   `json:"json" yaml:"json"`
}

// New returns a Config populated with defaults.
func New() Config {
	c := Config{Capacity: DefaultCapacity, DefaultTTLHours: DefaultTTLHours}
	c.SetDefaults()
	return c
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Capacity < 0 {
		return fmt.Errorf("capacity must not be negative, got %d", c.Capacity)
	}
	if c.DefaultTTLHours < 0 {
		return fmt.Errorf("default TTL must not be negative, got %d", c.DefaultTTLHours)
	}
	if _, err := logging.ParseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

// SetDefaults fills in policy names and the log level when they are unset.
// Capacity and DefaultTTLHours are left alone so that an explicit zero stays zero.
func (c *Config) SetDefaults() {
	if c.EvictionPolicy == "" {
		c.EvictionPolicy = DefaultEvictionPolicy
	}
	if c.AdjusterPolicy == "" {
		c.AdjusterPolicy = DefaultAdjusterPolicy
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
}

// LogConfig converts the logging section into a logging.LogConfig.
func (c *Config) LogConfig() logging.LogConfig {
	cfg := logging.DefaultLogConfig()
	if level, err := logging.ParseLogLevel(c.Logging.Level); err == nil {
		cfg.Level = level
	}
	cfg.JSON = c.Logging.JSON
	return cfg
}
