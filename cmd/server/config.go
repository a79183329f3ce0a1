// Package main provides the FlowPulse server CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Cache      CacheConfig      `yaml:"cache"`
	Rules      RulesConfig      `yaml:"rules"`
	LogLevel   string           `yaml:"log_level"` // debug, info, warn, error
	Verbose    bool             `yaml:"-"`         // set via CLI flag
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Address        string `yaml:"address"`           // HTTP listen address (default: :8080)
	RateLimitPerIP int    `yaml:"rate_limit_per_ip"` // requests per minute per client IP
}

// ClickHouseConfig contains event store connection settings.
type ClickHouseConfig struct {
	Addresses    []string `yaml:"addresses"` // host:port list (default: localhost:9000)
	Database     string   `yaml:"database"`
	Username     string   `yaml:"username"`
	Password     string   `yaml:"password"` // FLOWPULSE_CLICKHOUSE_PASSWORD overrides
	MaxOpenConns int      `yaml:"max_open_conns"`
	MaxIdleConns int      `yaml:"max_idle_conns"`
	DialTimeout  string   `yaml:"dial_timeout"`
	QueryTimeout string   `yaml:"query_timeout"`
	Compression  bool     `yaml:"compression"`
	Migrate      bool     `yaml:"migrate"` // create the events table on startup
}

// CacheConfig controls the query result cache. The cache is on by
// default; set disabled to turn it off.
type CacheConfig struct {
	Disabled bool   `yaml:"disabled"`
	TTL      string `yaml:"ttl"` // default: 60s
}

// RulesConfig points at the health threshold overrides.
type RulesConfig struct {
	File string `yaml:"file"` // optional YAML rules file, hot-reloaded
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.RateLimitPerIP == 0 {
		c.Server.RateLimitPerIP = 300
	}
	if len(c.ClickHouse.Addresses) == 0 {
		c.ClickHouse.Addresses = []string{"localhost:9000"}
	}
	if c.ClickHouse.Database == "" {
		c.ClickHouse.Database = "telemetry"
	}
	if c.ClickHouse.Username == "" {
		c.ClickHouse.Username = "default"
	}
	if c.Cache.TTL == "" {
		c.Cache.TTL = "60s"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address is required")
	}
	if len(c.ClickHouse.Addresses) == 0 {
		return fmt.Errorf("clickhouse.addresses is required")
	}
	for _, field := range []struct {
		name  string
		value string
	}{
		{"clickhouse.dial_timeout", c.ClickHouse.DialTimeout},
		{"clickhouse.query_timeout", c.ClickHouse.QueryTimeout},
		{"cache.ttl", c.Cache.TTL},
	} {
		if field.value == "" {
			continue
		}
		if _, err := time.ParseDuration(field.value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", field.name, field.value, err)
		}
	}
	return nil
}

// duration parses a validated duration string, returning zero when
// unset so downstream defaults apply.
func duration(value string) time.Duration {
	if value == "" {
		return 0
	}
	d, _ := time.ParseDuration(value)
	return d
}
