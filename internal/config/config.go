// Package config reads process configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/comalice/formchart/internal/logging"
)

// Store kinds accepted by FORMCHART_STORE.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreYAML   = "yaml"
	StoreRedis  = "redis"
)

// Config is the runtime configuration of the CLI and HTTP server.
type Config struct {
	HTTPAddr    string
	LogLevel    slog.Level
	Store       string
	StoreDir    string
	RedisAddr   string
	RedisPrefix string
	SessionTTL  time.Duration
}

// Default returns the configuration used when no variables are set.
func Default() Config {
	return Config{
		HTTPAddr:    ":8080",
		LogLevel:    slog.LevelInfo,
		Store:       StoreMemory,
		StoreDir:    "sessions",
		RedisAddr:   "localhost:6379",
		RedisPrefix: "formchart:session:",
	}
}

// Load reads FORMCHART_* variables over Default.
func Load() (Config, error) {
	return FromLookup(os.LookupEnv)
}

// FromLookup is Load with an explicit variable source.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	c := Default()
	if v, ok := lookup("FORMCHART_HTTP_ADDR"); ok && v != "" {
		c.HTTPAddr = v
	}
	if v, ok := lookup("FORMCHART_LOG_LEVEL"); ok && v != "" {
		level, err := logging.ParseLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("FORMCHART_LOG_LEVEL: %w", err)
		}
		c.LogLevel = level
	}
	if v, ok := lookup("FORMCHART_STORE"); ok && v != "" {
		c.Store = v
	}
	if v, ok := lookup("FORMCHART_STORE_DIR"); ok && v != "" {
		c.StoreDir = v
	}
	if v, ok := lookup("FORMCHART_REDIS_ADDR"); ok && v != "" {
		c.RedisAddr = v
	}
	if v, ok := lookup("FORMCHART_REDIS_PREFIX"); ok && v != "" {
		c.RedisPrefix = v
	}
	if v, ok := lookup("FORMCHART_SESSION_TTL"); ok && v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("FORMCHART_SESSION_TTL: %w", err)
		}
		c.SessionTTL = ttl
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the store kind and TTL.
func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreFile, StoreYAML, StoreRedis:
	default:
		return fmt.Errorf("unknown store %q (want memory, file, yaml or redis)", c.Store)
	}
	if c.SessionTTL < 0 {
		return fmt.Errorf("session TTL must not be negative, got %s", c.SessionTTL)
	}
	return nil
}
