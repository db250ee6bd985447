// Package config holds the keysmith.yaml configuration file structures.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level keysmith configuration file.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Auth    AuthConfig    `yaml:"auth"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig controls the HTTP server behavior.
type ServerConfig struct {
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port"`
	ShutdownTimeout string   `yaml:"shutdown_timeout"`
	CORSOrigins     []string `yaml:"cors_origins"`
	RateLimitPerMin int      `yaml:"rate_limit_per_minute"`
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Driver  string `yaml:"driver"`   // sqlite (default), mysql, postgres
	DSN     string `yaml:"dsn"`      // ignored for sqlite
	DataDir string `yaml:"data_dir"` // sqlite database location
}

// AuthConfig controls admin session settings.
type AuthConfig struct {
	JWTSecret  string `yaml:"jwt_secret"`
	SessionTTL string `yaml:"session_ttl"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3000,
			ShutdownTimeout: "30s",
			CORSOrigins:     []string{"*"},
			RateLimitPerMin: 120,
		},
		Store: StoreConfig{
			Driver: "sqlite",
		},
		Auth: AuthConfig{
			SessionTTL: "24h",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML configuration file, layering it over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// Duration parses s as a duration, falling back to fallback on empty or
// invalid input.
func Duration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
