// CourtVision - Live College Basketball Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courtvision

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where a config file is searched, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/courtvision/config.yaml",
	"/etc/courtvision/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CONFIG_PATH"

// envPrefix scopes which environment variables are read.
const envPrefix = "COURTVISION_"

// Default returns the built-in configuration defaults. A server started
// with no config file and no environment variables runs with these,
// except that feed.base_url has no usable default in tests.
func Default() *Config {
	return &Config{
		Feed: FeedConfig{
			BaseURL:       "https://site.api.espn.com/apis/site/v2/sports/basketball/womens-college-basketball",
			Timeout:       10 * time.Second,
			RetryAttempts: 3,
			RetryDelay:    500 * time.Millisecond,
			UserAgent:     "courtvision/1.0",
		},
		Ingest: IngestConfig{
			Enabled:      false, // opt-in, the /api/v1/ingest endpoint works regardless
			Interval:     30 * time.Second,
			Date:         "", // empty means today
			GameIDs:      nil,
			DedupeSize:   10000,
			CycleTimeout: 60 * time.Second,
		},
		Snapshot: SnapshotConfig{
			Enabled: false,
			Dir:     "/data/snapshots",
		},
		EventLog: EventLogConfig{
			URL:                 "nats://127.0.0.1:4222",
			EmbeddedServer:      true,
			StoreDir:            "/data/nats/jetstream",
			MaxMemory:           1 << 30,
			MaxStore:            10 << 30,
			StreamRetentionDays: 7,
			DurableName:         "play-processor",
			QueueGroup:          "processors",
			AckWaitTimeout:      30 * time.Second,
			PoisonTopic:         "plays.poison",
			CloseTimeout:        30 * time.Second,
		},
		Store: StoreConfig{
			Path:           "/data/courtvision",
			InMemory:       false,
			GCInterval:     10 * time.Minute,
			ChangeFeedSize: 1024,
		},
		AI: AIConfig{
			Enabled:             false, // reactors degrade to deterministic fallbacks
			Endpoint:            "",
			APIKey:              "",
			Model:               "",
			Timeout:             20 * time.Second,
			MaxTokens:           1000,
			BreakerMaxRequests:  3,
			BreakerInterval:     60 * time.Second,
			BreakerTimeout:      30 * time.Second,
			BreakerFailureRatio: 0.6,
			RateLimitPerSecond:  2,
		},
		Gateway: GatewayConfig{
			SendBufferSize:  64,
			WriteTimeout:    10 * time.Second,
			PongTimeout:     60 * time.Second,
			PingInterval:    54 * time.Second,
			MaxMessageSize:  4096,
			PushConcurrency: 8,
			AllowedOrigins:  []string{"*"},
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8090,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			CORSOrigins:     []string{"*"},
			APIRateLimit:    60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load builds the configuration from layered sources:
//  1. Built-in defaults
//  2. Optional YAML config file
//  3. COURTVISION_* environment variables (highest priority)
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// COURTVISION_SERVER_PORT -> server.port
	// COURTVISION_FEED_BASE_URL -> feed.base_url
	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransform maps COURTVISION_SECTION_FIELD_NAME to section.field_name.
// The first underscore separates the section; the rest of the name keeps
// its underscores.
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	parts := strings.SplitN(key, "_", 2)
	if len(parts) != 2 {
		return key
	}
	return parts[0] + "." + parts[1]
}

// sliceConfigPaths lists fields parsed from comma-separated env values.
var sliceConfigPaths = []string{
	"ingest.game_ids",
	"gateway.allowed_origins",
	"server.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}
