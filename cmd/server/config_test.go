package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Address != ":8080" {
		t.Errorf("address = %q, want :8080", cfg.Server.Address)
	}
	if len(cfg.ClickHouse.Addresses) != 1 || cfg.ClickHouse.Addresses[0] != "localhost:9000" {
		t.Errorf("clickhouse addresses = %v", cfg.ClickHouse.Addresses)
	}
	if cfg.Cache.Disabled {
		t.Error("cache should be enabled by default")
	}
	if cfg.Cache.TTL != "60s" {
		t.Errorf("cache ttl = %q, want 60s", cfg.Cache.TTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  address: ":9090"
clickhouse:
  addresses: ["ch-1:9000", "ch-2:9000"]
  database: events
  query_timeout: 15s
cache:
  ttl: 2m
log_level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Server.Address != ":9090" {
		t.Errorf("address = %q", cfg.Server.Address)
	}
	if len(cfg.ClickHouse.Addresses) != 2 {
		t.Errorf("addresses = %v", cfg.ClickHouse.Addresses)
	}
	if cfg.Cache.TTL != "2m" {
		t.Errorf("cache ttl = %q", cfg.Cache.TTL)
	}
	// Defaults still fill the unset fields.
	if cfg.ClickHouse.Username != "default" {
		t.Errorf("username = %q", cfg.ClickHouse.Username)
	}
}

func TestConfigValidateRejectsBadDurations(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.TTL = "not-a-duration"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for invalid cache.ttl")
	}
}
