// CourtVision - Live College Basketball Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courtvision

// Package main is the entry point for the CourtVision server.
//
// CourtVision ingests live college basketball play-by-play from the
// upstream scoreboard feed, materializes per-game state, and pushes
// patterns, win probabilities, and generated commentary to WebSocket
// subscribers in real time.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered loading via Koanf v2 (defaults, YAML, env)
//  2. State store: BadgerDB with a bounded change feed
//  3. Event log: embedded NATS JetStream (or an external NATS URL)
//     with a Watermill publisher and durable queue-group subscriber
//  4. Feed client: retrying upstream HTTP client, optional raw snapshots
//  5. Reactors: pattern detector, win-probability estimator, commentary
//     generator, and the WebSocket push worker, fanned out by the
//     change-feed dispatcher
//  6. Gateway: WebSocket hub for per-game subscriptions
//  7. HTTP server: health, metrics, /ws upgrade, operational ingest API
//
// All long-running services are arranged into a four-layer suture
// supervision tree (ingest, pipeline, gateway, api) so a crash in one
// layer restarts locally without dropping the others.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (COURTVISION_ prefix, see config package)
//   - Config file (config.yaml, or COURTVISION_CONFIG)
//   - Built-in defaults
//
// The AI reactors are optional: with ai.enabled=false the pipeline
// still ingests, materializes, detects patterns, and pushes updates.
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - The supervision tree stops its services leaf-first
//   - The HTTP listener drains in-flight requests (configurable timeout)
//   - The event log publisher, stream manager, embedded NATS server,
//     and state store close in reverse initialization order
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/courtvision/internal/ai"
	"github.com/tomtom215/courtvision/internal/config"
	"github.com/tomtom215/courtvision/internal/eventlog"
	"github.com/tomtom215/courtvision/internal/feed"
	"github.com/tomtom215/courtvision/internal/feed/snapshot"
	"github.com/tomtom215/courtvision/internal/gateway"
	"github.com/tomtom215/courtvision/internal/ingest"
	"github.com/tomtom215/courtvision/internal/logging"
	"github.com/tomtom215/courtvision/internal/processor"
	"github.com/tomtom215/courtvision/internal/reactors"
	"github.com/tomtom215/courtvision/internal/server"
	"github.com/tomtom215/courtvision/internal/store"
	"github.com/tomtom215/courtvision/internal/supervisor"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "courtvision: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
		Output: os.Stdout,
	})
	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Bool("ingest_enabled", cfg.Ingest.Enabled).
		Bool("ai_enabled", cfg.AI.Enabled).
		Bool("embedded_eventlog", cfg.EventLog.EmbeddedServer).
		Msg("courtvision starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// State store first: everything downstream hangs off its change feed.
	st, err := store.New(store.Options{
		Path:           cfg.Store.Path,
		InMemory:       cfg.Store.InMemory,
		ChangeFeedSize: cfg.Store.ChangeFeedSize,
		GCInterval:     cfg.Store.GCInterval,
	})
	if err != nil {
		return fmt.Errorf("opening state store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("state store close failed")
		}
	}()

	// Event log: embedded JetStream unless an external URL is configured.
	wmLogger := eventlog.NewLoggerAdapter()
	natsURL := cfg.EventLog.URL
	if cfg.EventLog.EmbeddedServer {
		embedded, err := eventlog.NewEmbeddedServer(cfg.EventLog)
		if err != nil {
			return fmt.Errorf("starting embedded event log server: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.EventLog.CloseTimeout)
			defer cancel()
			if err := embedded.Shutdown(shutdownCtx); err != nil {
				logging.Error().Err(err).Msg("embedded event log shutdown failed")
			}
		}()
		natsURL = embedded.ClientURL()
	}

	streams, err := eventlog.NewStreamManager(natsURL, cfg.EventLog)
	if err != nil {
		return fmt.Errorf("connecting stream manager: %w", err)
	}
	defer streams.Close()
	if err := streams.EnsureStream(ctx); err != nil {
		return fmt.Errorf("ensuring event log stream: %w", err)
	}

	pub, err := eventlog.NewNATSPublisher(natsURL, wmLogger)
	if err != nil {
		return fmt.Errorf("creating event log publisher: %w", err)
	}
	log := eventlog.NewLog(pub)
	defer func() {
		if err := log.Close(); err != nil {
			logging.Error().Err(err).Msg("event log close failed")
		}
	}()

	sub, err := eventlog.NewNATSSubscriber(eventlog.SubscriberOptions{
		URL:            natsURL,
		DurableName:    cfg.EventLog.DurableName,
		QueueGroup:     cfg.EventLog.QueueGroup,
		AckWaitTimeout: cfg.EventLog.AckWaitTimeout,
		CloseTimeout:   cfg.EventLog.CloseTimeout,
	}, wmLogger)
	if err != nil {
		return fmt.Errorf("creating event log subscriber: %w", err)
	}

	proc := processor.New(sub, eventlog.WildcardTopic, st,
		processor.WithPoisonQueue(pub, cfg.EventLog.PoisonTopic))

	// Upstream feed and the polling ingester.
	feedClient := feed.NewClient(cfg.Feed)
	var snaps ingest.Snapshots
	if cfg.Snapshot.Enabled {
		snaps = snapshot.New(cfg.Snapshot.Dir)
	}
	poller := ingest.New(feedClient, log, snaps, cfg.Ingest)

	// Gateway and the change reactors. The push worker is a reactor
	// like the others, so dispatcher isolation covers it too.
	hub := gateway.NewHub(st, cfg.Gateway)
	pushWorker := gateway.NewPushWorker(hub)

	reactorList := []reactors.Reactor{reactors.NewDetector(st)}
	if cfg.AI.Enabled {
		inference := ai.NewHTTPClient(cfg.AI)
		reactorList = append(reactorList,
			reactors.NewEstimator(st, inference, 0),
			reactors.NewGenerator(st, inference))
	}
	reactorList = append(reactorList, pushWorker)
	dispatcher := reactors.NewDispatcher(st.Changes(), reactorList...)

	httpServer := server.New(cfg.Server, poller, hub)

	// Supervision tree. sutureslog wants slog, the rest of the app logs
	// through zerolog; supervision events are rare enough that a plain
	// JSON handler on stdout keeps the streams mergeable.
	tree := supervisor.NewTree(
		slog.New(slog.NewJSONHandler(os.Stdout, nil)),
		supervisor.DefaultTreeConfig(),
	)
	tree.AddIngestService(poller)
	tree.AddPipelineService(st)
	tree.AddPipelineService(proc)
	tree.AddPipelineService(dispatcher)
	tree.AddGatewayService(hub)
	tree.AddAPIService(httpServer)

	err = tree.Serve(ctx)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("supervision tree: %w", err)
	}
	if unstopped, reportErr := tree.UnstoppedServiceReport(); reportErr == nil {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("service ignored shutdown")
		}
	}
	logging.Info().Msg("courtvision stopped")
	return nil
}
