// CourtVision - Live College Basketball Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courtvision

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing feed url", func(c *Config) { c.Feed.BaseURL = "" }},
		{"zero feed timeout", func(c *Config) { c.Feed.Timeout = 0 }},
		{"sub-second poll interval", func(c *Config) { c.Ingest.Enabled = true; c.Ingest.Interval = 100 * time.Millisecond }},
		{"zero dedupe size", func(c *Config) { c.Ingest.DedupeSize = 0 }},
		{"no nats url without embedded", func(c *Config) { c.EventLog.EmbeddedServer = false; c.EventLog.URL = "" }},
		{"no store path on disk", func(c *Config) { c.Store.Path = "" }},
		{"ai enabled without endpoint", func(c *Config) { c.AI.Enabled = true; c.AI.Model = "m" }},
		{"breaker ratio out of range", func(c *Config) {
			c.AI.Enabled = true
			c.AI.Endpoint = "http://localhost"
			c.AI.Model = "m"
			c.AI.BreakerFailureRatio = 1.5
		}},
		{"ping not shorter than pong", func(c *Config) { c.Gateway.PingInterval = c.Gateway.PongTimeout }},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"COURTVISION_SERVER_PORT", "server.port"},
		{"COURTVISION_FEED_BASE_URL", "feed.base_url"},
		{"COURTVISION_INGEST_ENABLED", "ingest.enabled"},
		{"COURTVISION_EVENTLOG_STREAM_RETENTION_DAYS", "eventlog.stream_retention_days"},
		{"COURTVISION_LOGGING_LEVEL", "logging.level"},
	}
	for _, tt := range tests {
		if got := envTransform(tt.in); got != tt.want {
			t.Errorf("envTransform(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadLayering(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9999
ingest:
  interval: 15s
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("COURTVISION_SERVER_PORT", "7777")
	t.Setenv("COURTVISION_INGEST_GAME_IDS", "401746037, 401746038")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// env beats file
	if cfg.Server.Port != 7777 {
		t.Errorf("server port = %d, want env override 7777", cfg.Server.Port)
	}
	// file beats defaults
	if cfg.Ingest.Interval != 15*time.Second {
		t.Errorf("ingest interval = %v, want 15s from file", cfg.Ingest.Interval)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q, want debug from file", cfg.Logging.Level)
	}
	// defaults survive where nothing overrides
	if cfg.EventLog.DurableName != "play-processor" {
		t.Errorf("durable name = %q, want default", cfg.EventLog.DurableName)
	}
	// comma-separated env slice
	want := []string{"401746037", "401746038"}
	if len(cfg.Ingest.GameIDs) != 2 || cfg.Ingest.GameIDs[0] != want[0] || cfg.Ingest.GameIDs[1] != want[1] {
		t.Errorf("game ids = %v, want %v", cfg.Ingest.GameIDs, want)
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: -5\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	if _, err := Load(); err == nil {
		t.Error("expected validation failure for negative port")
	}
}

func TestServerAddr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 8090}
	if got := s.Addr(); got != "127.0.0.1:8090" {
		t.Errorf("Addr = %q", got)
	}
}
