// Package config loads dashlens settings from YAML.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds all dashlens configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Cache   CacheConfig   `yaml:"cache"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// Dashboard is an exported dashboard file loaded at startup.
	Dashboard string `yaml:"dashboard"`
	// ShutdownTimeout bounds graceful shutdown, e.g. "10s".
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// Cache backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// CacheConfig selects and configures the fetch cache.
type CacheConfig struct {
	Backend string `yaml:"backend"` // memory, sqlite, redis, none
	TTL     string `yaml:"ttl"`

	// SQLite
	Path string `yaml:"path"`

	// Redis
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

// FetchConfig configures outbound API requests.
type FetchConfig struct {
	Timeout      string `yaml:"timeout"`
	MaxBodyBytes int64  `yaml:"max_body_bytes"`
	UserAgent    string `yaml:"user_agent"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: "10s",
		},
		Cache: CacheConfig{
			Backend: BackendMemory,
			TTL:     "30s",
			Path:    "dashlens-cache.db",
		},
		Fetch: FetchConfig{
			Timeout:      "15s",
			MaxBodyBytes: 10 << 20,
			UserAgent:    "dashlens/1.0",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from a YAML file over the defaults. A missing file
// yields the defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DASHLENS_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("DASHLENS_CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}
	if v := os.Getenv("DASHLENS_CACHE_TTL"); v != "" {
		c.Cache.TTL = v
	}
	if v := os.Getenv("DASHLENS_REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := os.Getenv("DASHLENS_REDIS_PASSWORD"); v != "" {
		c.Cache.RedisPassword = v
	}
	if v := os.Getenv("DASHLENS_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.Cache.RedisDB = db
		}
	}
	if v := os.Getenv("DASHLENS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server addr is empty")
	}
	switch c.Cache.Backend {
	case BackendMemory, BackendNone:
	case BackendSQLite:
		if c.Cache.Path == "" {
			return fmt.Errorf("cache backend sqlite needs a path")
		}
	case BackendRedis:
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache backend redis needs redis_addr")
		}
	default:
		return fmt.Errorf("invalid cache backend: %s (valid: memory, sqlite, redis, none)", c.Cache.Backend)
	}
	for name, d := range map[string]string{
		"cache ttl":        c.Cache.TTL,
		"fetch timeout":    c.Fetch.Timeout,
		"shutdown timeout": c.Server.ShutdownTimeout,
	} {
		if d == "" {
			continue
		}
		if v, err := time.ParseDuration(d); err != nil || v < 0 {
			return fmt.Errorf("invalid %s: %q", name, d)
		}
	}
	if c.Fetch.MaxBodyBytes < 0 {
		return fmt.Errorf("invalid fetch max_body_bytes: %d", c.Fetch.MaxBodyBytes)
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	return nil
}

// GetCacheTTL returns the cache TTL as a duration.
func (c *Config) GetCacheTTL() time.Duration {
	return duration(c.Cache.TTL, 30*time.Second)
}

// GetFetchTimeout returns the fetch timeout as a duration.
func (c *Config) GetFetchTimeout() time.Duration {
	return duration(c.Fetch.Timeout, 15*time.Second)
}

// GetShutdownTimeout returns the graceful shutdown timeout as a duration.
func (c *Config) GetShutdownTimeout() time.Duration {
	return duration(c.Server.ShutdownTimeout, 10*time.Second)
}

func duration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// NewLogger builds a zap logger for the logging settings.
func (l LoggingConfig) NewLogger() (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if l.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if l.Level != "" {
		lvl, err := zapcore.ParseLevel(l.Level)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
