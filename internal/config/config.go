// CourtVision - Live College Basketball Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courtvision

// Package config defines the application configuration and its layered
// loading: built-in defaults, an optional YAML file, then environment
// variables, in increasing order of precedence.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the CourtVision server.
type Config struct {
	Feed     FeedConfig     `koanf:"feed"`
	Ingest   IngestConfig   `koanf:"ingest"`
	Snapshot SnapshotConfig `koanf:"snapshot"`
	EventLog EventLogConfig `koanf:"eventlog"`
	Store    StoreConfig    `koanf:"store"`
	AI       AIConfig       `koanf:"ai"`
	Gateway  GatewayConfig  `koanf:"gateway"`
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// FeedConfig configures the upstream scoreboard and play-by-play feed.
type FeedConfig struct {
	BaseURL       string        `koanf:"base_url"`
	Timeout       time.Duration `koanf:"timeout"`
	RetryAttempts int           `koanf:"retry_attempts"`
	RetryDelay    time.Duration `koanf:"retry_delay"`
	UserAgent     string        `koanf:"user_agent"`
}

// IngestConfig configures the polling loop that drives ingestion.
type IngestConfig struct {
	Enabled      bool          `koanf:"enabled"`
	Interval     time.Duration `koanf:"interval"`
	Date         string        `koanf:"date"`     // scoreboard date override, 2006-01-02
	GameIDs      []string      `koanf:"game_ids"` // restrict to specific upstream game ids
	DedupeSize   int           `koanf:"dedupe_size"`
	CycleTimeout time.Duration `koanf:"cycle_timeout"`
}

// SnapshotConfig configures raw feed snapshot archival.
type SnapshotConfig struct {
	Enabled bool   `koanf:"enabled"`
	Dir     string `koanf:"dir"`
}

// EventLogConfig configures the NATS JetStream event log.
type EventLogConfig struct {
	URL                 string        `koanf:"url"`
	EmbeddedServer      bool          `koanf:"embedded_server"`
	StoreDir            string        `koanf:"store_dir"`
	MaxMemory           int64         `koanf:"max_memory"`
	MaxStore            int64         `koanf:"max_store"`
	StreamRetentionDays int           `koanf:"stream_retention_days"`
	DurableName         string        `koanf:"durable_name"`
	QueueGroup          string        `koanf:"queue_group"`
	AckWaitTimeout      time.Duration `koanf:"ack_wait_timeout"`
	PoisonTopic         string        `koanf:"poison_topic"`
	CloseTimeout        time.Duration `koanf:"close_timeout"`
}

// StoreConfig configures the Badger-backed state store.
type StoreConfig struct {
	Path           string        `koanf:"path"`
	InMemory       bool          `koanf:"in_memory"`
	GCInterval     time.Duration `koanf:"gc_interval"`
	ChangeFeedSize int           `koanf:"change_feed_size"`
}

// AIConfig configures the model inference client used by the
// win-probability and commentary reactors.
type AIConfig struct {
	Enabled             bool          `koanf:"enabled"`
	Endpoint            string        `koanf:"endpoint"`
	APIKey              string        `koanf:"api_key"`
	Model               string        `koanf:"model"`
	Timeout             time.Duration `koanf:"timeout"`
	MaxTokens           int           `koanf:"max_tokens"`
	BreakerMaxRequests  uint32        `koanf:"breaker_max_requests"`
	BreakerInterval     time.Duration `koanf:"breaker_interval"`
	BreakerTimeout      time.Duration `koanf:"breaker_timeout"`
	BreakerFailureRatio float64       `koanf:"breaker_failure_ratio"`
	RateLimitPerSecond  float64       `koanf:"rate_limit_per_second"`
}

// GatewayConfig configures the WebSocket push gateway.
type GatewayConfig struct {
	SendBufferSize  int           `koanf:"send_buffer_size"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	PongTimeout     time.Duration `koanf:"pong_timeout"`
	PingInterval    time.Duration `koanf:"ping_interval"`
	MaxMessageSize  int64         `koanf:"max_message_size"`
	PushConcurrency int           `koanf:"push_concurrency"`
	AllowedOrigins  []string      `koanf:"allowed_origins"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	APIRateLimit    int           `koanf:"api_rate_limit"` // requests per minute per client IP
}

// LoggingConfig configures structured logging output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Addr returns the host:port the HTTP server binds to.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Validate checks the configuration for values that would break the
// pipeline at runtime. Called after loading, before any component
// starts.
func (c *Config) Validate() error {
	if c.Feed.BaseURL == "" {
		return fmt.Errorf("feed.base_url is required")
	}
	if c.Feed.Timeout <= 0 {
		return fmt.Errorf("feed.timeout must be positive, got %v", c.Feed.Timeout)
	}
	if c.Feed.RetryAttempts < 1 {
		return fmt.Errorf("feed.retry_attempts must be at least 1, got %d", c.Feed.RetryAttempts)
	}
	if c.Ingest.Enabled && c.Ingest.Interval < time.Second {
		return fmt.Errorf("ingest.interval must be at least 1s when polling is enabled, got %v", c.Ingest.Interval)
	}
	if c.Ingest.DedupeSize < 1 {
		return fmt.Errorf("ingest.dedupe_size must be positive, got %d", c.Ingest.DedupeSize)
	}
	if c.EventLog.URL == "" && !c.EventLog.EmbeddedServer {
		return fmt.Errorf("eventlog.url is required when the embedded server is disabled")
	}
	if c.EventLog.StreamRetentionDays < 1 {
		return fmt.Errorf("eventlog.stream_retention_days must be at least 1, got %d", c.EventLog.StreamRetentionDays)
	}
	if !c.Store.InMemory && c.Store.Path == "" {
		return fmt.Errorf("store.path is required for on-disk storage")
	}
	if c.Store.ChangeFeedSize < 1 {
		return fmt.Errorf("store.change_feed_size must be positive, got %d", c.Store.ChangeFeedSize)
	}
	if c.AI.Enabled {
		if c.AI.Endpoint == "" {
			return fmt.Errorf("ai.endpoint is required when ai is enabled")
		}
		if c.AI.Model == "" {
			return fmt.Errorf("ai.model is required when ai is enabled")
		}
		if c.AI.BreakerFailureRatio <= 0 || c.AI.BreakerFailureRatio > 1 {
			return fmt.Errorf("ai.breaker_failure_ratio must be in (0, 1], got %v", c.AI.BreakerFailureRatio)
		}
	}
	if c.Gateway.SendBufferSize < 1 {
		return fmt.Errorf("gateway.send_buffer_size must be positive, got %d", c.Gateway.SendBufferSize)
	}
	if c.Gateway.PushConcurrency < 1 {
		return fmt.Errorf("gateway.push_concurrency must be positive, got %d", c.Gateway.PushConcurrency)
	}
	if c.Gateway.PingInterval >= c.Gateway.PongTimeout {
		return fmt.Errorf("gateway.ping_interval (%v) must be shorter than gateway.pong_timeout (%v)",
			c.Gateway.PingInterval, c.Gateway.PongTimeout)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1-65535, got %d", c.Server.Port)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
