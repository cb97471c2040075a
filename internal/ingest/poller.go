// CourtVision - Live College Basketball Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courtvision

// Package ingest drives the fetch side of the pipeline: poll the
// upstream scoreboard, fetch play-by-play for live games, and append
// new plays to the event log. The poller never writes the state store;
// materialization belongs to the stream processor.
package ingest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/courtvision/internal/cache"
	"github.com/tomtom215/courtvision/internal/config"
	"github.com/tomtom215/courtvision/internal/feed"
	"github.com/tomtom215/courtvision/internal/feed/snapshot"
	"github.com/tomtom215/courtvision/internal/logging"
	"github.com/tomtom215/courtvision/internal/metrics"
	"github.com/tomtom215/courtvision/internal/models"
)

// seenTTL bounds how long a play id is remembered. Longer than any
// game, shorter than a scoreboard date rollover.
const seenTTL = 6 * time.Hour

// summaryConcurrency bounds parallel summary fetches within one cycle.
const summaryConcurrency = 4

// Feed is the upstream client surface the poller consumes.
type Feed interface {
	Scoreboard(ctx context.Context, date string) ([]byte, error)
	Summary(ctx context.Context, espnGameID string) ([]byte, error)
}

// Appender is the event-log surface the poller writes to.
type Appender interface {
	Append(ctx context.Context, espnGameID string, play *models.Play) error
	AppendGame(ctx context.Context, espnGameID string, game *models.Game) error
}

// Snapshots archives raw upstream payloads. Optional.
type Snapshots interface {
	Write(game *models.Game, dataType string, payload []byte) (string, error)
}

// CycleStats summarizes one ingestion cycle.
type CycleStats struct {
	Date         string `json:"date"`
	Games        int    `json:"games"`
	LiveGames    int    `json:"liveGames"`
	Appended     int    `json:"playsAppended"`
	Deduplicated int    `json:"playsDeduplicated"`
}

// Poller runs ingestion cycles on a ticker and on demand.
type Poller struct {
	feed      Feed
	log       Appender
	snapshots Snapshots
	cfg       config.IngestConfig

	seen    *cache.SeenCache
	enabled atomic.Bool

	// cycleMu serializes cycles so a manual trigger cannot overlap a
	// ticker cycle.
	cycleMu sync.Mutex
}

// New builds a poller. snapshots may be nil to disable raw archival.
func New(f Feed, log Appender, snapshots Snapshots, cfg config.IngestConfig) *Poller {
	p := &Poller{
		feed:      f,
		log:       log,
		snapshots: snapshots,
		cfg:       cfg,
		seen:      cache.NewSeenCache(cfg.DedupeSize, seenTTL),
	}
	p.enabled.Store(cfg.Enabled)
	return p
}

// Enable turns the polling loop on. Manual ingestion works regardless.
func (p *Poller) Enable() { p.enabled.Store(true) }

// Disable turns the polling loop off.
func (p *Poller) Disable() { p.enabled.Store(false) }

// Enabled reports whether the polling loop is active.
func (p *Poller) Enabled() bool { return p.enabled.Load() }

func (p *Poller) String() string { return "ingest-poller" }

// Serve runs the polling loop until the context ends. Designed for
// suture supervision.
func (p *Poller) Serve(ctx context.Context) error {
	interval := p.cfg.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	logging.Info().
		Dur("interval", interval).
		Bool("enabled", p.Enabled()).
		Msg("ingest poller started")

	if p.Enabled() {
		p.cycle(ctx)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	sweep := time.NewTicker(seenTTL / 2)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("ingest poller stopped")
			return ctx.Err()
		case <-ticker.C:
			if p.Enabled() {
				p.cycle(ctx)
			}
		case <-sweep.C:
			p.seen.Sweep()
		}
	}
}

// cycle runs one timed ingestion pass; failures are logged and the
// next tick retries from scratch.
func (p *Poller) cycle(ctx context.Context) {
	timeout := p.cfg.CycleTimeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	cycleCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := p.IngestOnce(cycleCtx, ""); err != nil {
		logging.Warn().Err(err).Msg("ingestion cycle failed")
	}
}

// IngestOnce fetches one scoreboard and the summaries of every live
// tracked game, appending unseen plays to the event log. An empty date
// means the configured date, falling back to today (UTC).
func (p *Poller) IngestOnce(ctx context.Context, date string) (*CycleStats, error) {
	p.cycleMu.Lock()
	defer p.cycleMu.Unlock()

	start := time.Now()
	stats, err := p.ingest(ctx, date)
	metrics.IngestCycleDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.IngestCycles.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.IngestCycles.WithLabelValues("success").Inc()
	logging.Info().
		Str("date", stats.Date).
		Int("games", stats.Games).
		Int("live", stats.LiveGames).
		Int("appended", stats.Appended).
		Int("deduplicated", stats.Deduplicated).
		Dur("took", time.Since(start)).
		Msg("ingestion cycle complete")
	return stats, nil
}

func (p *Poller) ingest(ctx context.Context, date string) (*CycleStats, error) {
	if date == "" {
		date = p.cfg.Date
	}
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}

	raw, err := p.feed.Scoreboard(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("fetch scoreboard: %w", err)
	}
	games, err := feed.ParseScoreboard(raw)
	if err != nil {
		return nil, fmt.Errorf("parse scoreboard: %w", err)
	}

	stats := &CycleStats{Date: date, Games: len(games)}

	var appended, deduplicated, live int64
	var wg sync.WaitGroup
	sem := make(chan struct{}, summaryConcurrency)

	for i := range games {
		g := &games[i]
		if !p.tracked(g) {
			continue
		}

		// Metadata rides the same per-game partition as plays so
		// status transitions materialize in order.
		if err := p.log.AppendGame(ctx, g.Game.ESPNID, &g.Game); err != nil {
			logging.Warn().Err(err).Str("game", g.Game.Key).Msg("failed to append game metadata")
			continue
		}

		if !g.Live() {
			continue
		}
		atomic.AddInt64(&live, 1)
		p.snapshot(&g.Game, snapshot.TypeScoreboard, raw)

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return nil, ctx.Err()
		}
		wg.Add(1)
		go func(g *feed.ScoreboardGame) {
			defer func() {
				<-sem
				wg.Done()
			}()
			a, d := p.ingestGame(ctx, g)
			atomic.AddInt64(&appended, int64(a))
			atomic.AddInt64(&deduplicated, int64(d))
		}(g)
	}
	wg.Wait()

	stats.LiveGames = int(live)
	stats.Appended = int(appended)
	stats.Deduplicated = int(deduplicated)
	return stats, ctx.Err()
}

// tracked applies the optional game-id allowlist.
func (p *Poller) tracked(g *feed.ScoreboardGame) bool {
	if len(p.cfg.GameIDs) == 0 {
		return true
	}
	for _, id := range p.cfg.GameIDs {
		if id == g.Game.ESPNID {
			return true
		}
	}
	return false
}

// ingestGame fetches one game's play-by-play and appends unseen plays
// in arrival order. Failures skip the game for this cycle only.
func (p *Poller) ingestGame(ctx context.Context, g *feed.ScoreboardGame) (appended, deduplicated int) {
	raw, err := p.feed.Summary(ctx, g.Game.ESPNID)
	if err != nil {
		logging.Warn().Err(err).Str("game", g.Game.Key).Msg("failed to fetch summary")
		return 0, 0
	}
	p.snapshot(&g.Game, snapshot.TypeSummary, raw)

	plays, err := feed.ParseSummary(raw, &g.Game)
	if err != nil {
		logging.Warn().Err(err).Str("game", g.Game.Key).Msg("failed to parse summary")
		return 0, 0
	}

	for i := range plays {
		play := &plays[i]
		key := g.Game.ESPNID + "#" + play.PlayID
		if p.seen.Contains(key) {
			metrics.PlaysDeduplicated.Inc()
			deduplicated++
			continue
		}
		if err := p.log.Append(ctx, g.Game.ESPNID, play); err != nil {
			// Not marked seen, so the next cycle retries it.
			logging.Warn().
				Err(err).
				Str("game", g.Game.Key).
				Str("play", play.PlayID).
				Msg("failed to append play")
			continue
		}
		p.seen.Seen(key)
		appended++
	}
	return appended, deduplicated
}

func (p *Poller) snapshot(game *models.Game, dataType string, payload []byte) {
	if p.snapshots == nil {
		return
	}
	if _, err := p.snapshots.Write(game, dataType, payload); err != nil {
		logging.Warn().Err(err).Str("game", game.Key).Str("type", dataType).Msg("failed to write snapshot")
	}
}
