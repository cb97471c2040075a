// CourtVision - Live College Basketball Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courtvision

package eventlog

import (
	"context"
	"errors"
	"fmt"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/courtvision/internal/config"
)

// dedupWindow is how long JetStream remembers Nats-Msg-Ids. Re-polled
// plays republished within this window are dropped by the broker.
const dedupWindow = 2 * time.Minute

// StreamManager owns the PLAYS stream lifecycle. The stream must exist
// with the right subjects before publishers or subscribers connect;
// stream names cannot contain wildcards, so AutoProvision cannot create
// it from the plays.> subscription.
type StreamManager struct {
	js  jetstream.JetStream
	cfg config.EventLogConfig
}

// NewStreamManager connects to NATS and prepares stream management.
func NewStreamManager(url string, cfg config.EventLogConfig) (*StreamManager, error) {
	nc, err := natsgo.Connect(url,
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS %s: %w", url, err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}
	return &StreamManager{js: js, cfg: cfg}, nil
}

// EnsureStream creates or updates the PLAYS stream. Idempotent.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	streamCfg := jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{WildcardTopic},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      time.Duration(m.cfg.StreamRetentionDays) * 24 * time.Hour,
		Duplicates:  dedupWindow,
		Storage:     jetstream.FileStorage,
		Discard:     jetstream.DiscardOld,
		AllowDirect: true,
	}

	_, err := m.js.Stream(ctx, StreamName)
	if err == nil {
		if _, err := m.js.UpdateStream(ctx, streamCfg); err != nil {
			return fmt.Errorf("update stream %s: %w", StreamName, err)
		}
		return nil
	}
	if errors.Is(err, jetstream.ErrStreamNotFound) {
		if _, err := m.js.CreateStream(ctx, streamCfg); err != nil {
			return fmt.Errorf("create stream %s: %w", StreamName, err)
		}
		return nil
	}
	return fmt.Errorf("check stream %s: %w", StreamName, err)
}

// IsHealthy reports whether the stream is reachable.
func (m *StreamManager) IsHealthy(ctx context.Context) bool {
	_, err := m.js.Stream(ctx, StreamName)
	return err == nil
}

// Close drops the NATS connection.
func (m *StreamManager) Close() {
	m.js.Conn().Close()
}
