// CourtVision - Live College Basketball Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courtvision

package reactors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/courtvision/internal/ai"
	"github.com/tomtom215/courtvision/internal/logging"
	"github.com/tomtom215/courtvision/internal/metrics"
	"github.com/tomtom215/courtvision/internal/models"
	"github.com/tomtom215/courtvision/internal/store"
)

// defaultMinShots is the shooting-play floor below which estimation is
// deferred: early-game samples produce junk percentages.
const defaultMinShots = 10

// inferenceTimeout bounds one model call from a reactor.
const inferenceTimeout = 20 * time.Second

// Estimator derives win-probability estimates on score changes.
//
// Inference failure is a degraded feature: the previous estimate
// simply stays current, and nothing is written. One estimate is
// produced per game-clock minute; further score changes within the
// same minute are absorbed without a model call.
type Estimator struct {
	store     store.Store
	inference ai.Inference
	minShots  int
}

// NewEstimator builds the estimator. minShots <= 0 selects the default
// floor.
func NewEstimator(st store.Store, inference ai.Inference, minShots int) *Estimator {
	if minShots <= 0 {
		minShots = defaultMinShots
	}
	return &Estimator{store: st, inference: inference, minShots: minShots}
}

// Name implements Reactor.
func (e *Estimator) Name() string { return "winprob-estimator" }

// React implements Reactor. Only SCORE#CURRENT mutations trigger an
// estimate.
func (e *Estimator) React(ctx context.Context, change store.Change) error {
	if change.After == nil || change.After.SK != models.SortScoreCurrent {
		return nil
	}
	pk := change.After.PK

	var snap models.ScoreSnapshot
	if err := change.After.Unmarshal(&snap); err != nil {
		return fmt.Errorf("decode score change: %w", err)
	}

	// One estimate per game-clock minute.
	timelineKey := models.WinProbSort(clockMinute(snap.Period, snap.Clock))
	if _, err := e.store.Get(ctx, pk, timelineKey); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	game, err := loadGame(ctx, e.store, pk)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	plays, err := loadPlays(ctx, e.store, pk)
	if err != nil {
		return err
	}

	home, away, total := shootingByTeam(plays, game)
	if total < e.minShots {
		// Not enough signal yet. Defer without noise.
		return nil
	}

	req := &ai.WinProbRequest{
		HomeTeam:   game.HomeTeam,
		AwayTeam:   game.AwayTeam,
		HomeScore:  snap.HomeScore,
		AwayScore:  snap.AwayScore,
		Period:     snap.Period,
		Clock:      snap.Clock,
		Trend:      recentTrend(plays, game),
		HomeFGPct:  home.fgPct(),
		Home3PTPct: home.threePct(),
		AwayFGPct:  away.fgPct(),
		Away3PTPct: away.threePct(),
	}

	inferCtx, cancel := context.WithTimeout(ctx, inferenceTimeout)
	defer cancel()
	result, err := e.inference.EstimateWinProbability(inferCtx, req)
	if err != nil {
		metrics.InferenceCalls.WithLabelValues("degraded").Inc()
		logging.Warn().
			Err(err).
			Str("game", pk).
			Msg("win probability degraded, keeping prior estimate")
		return nil
	}

	estimate := models.WinProbability{
		GameKey:    pk,
		Home:       result.Home,
		Away:       result.Away,
		Rationale:  result.Rationale,
		HomeScore:  snap.HomeScore,
		AwayScore:  snap.AwayScore,
		Period:     snap.Period,
		ComputedAt: time.Now().UTC(),
	}

	timeline, err := store.NewRecord(pk, timelineKey, 0, &estimate)
	if err != nil {
		return err
	}
	err = e.store.Put(ctx, timeline, store.IfNotExists)
	if err != nil && !errors.Is(err, store.ErrConditionFailed) {
		return fmt.Errorf("write estimate timeline: %w", err)
	}

	current, err := store.NewRecord(pk, models.SortWinProbCurrent, snap.Sequence, &estimate)
	if err != nil {
		return err
	}
	if err := e.store.Put(ctx, current, store.ConditionNone); err != nil {
		return fmt.Errorf("write current estimate: %w", err)
	}

	metrics.EstimatesWritten.Inc()
	return nil
}

// clockMinute buckets a game clock into its minute within the period,
// e.g. period 3 at 4:31 becomes "3#04".
func clockMinute(period int, clock string) string {
	minute := "00"
	if idx := strings.Index(clock, ":"); idx > 0 {
		m := clock[:idx]
		if len(m) == 1 {
			m = "0" + m
		}
		minute = m
	}
	return fmt.Sprintf("%d#%s", period, minute)
}

// recentTrend summarizes the last stretch of scoring for the prompt.
func recentTrend(plays []models.Play, game *models.Game) string {
	const lookback = 10
	start := len(plays) - lookback
	if start < 0 {
		start = 0
	}
	var homePts, awayPts int
	for i := start; i < len(plays); i++ {
		p := &plays[i]
		if !p.ScoringPlay {
			continue
		}
		switch p.TeamID {
		case game.HomeTeamID:
			homePts += p.ScoreValue
		case game.AwayTeamID:
			awayPts += p.ScoreValue
		}
	}
	switch {
	case homePts >= awayPts+5:
		return fmt.Sprintf("%s outscoring %s %d-%d over the last stretch", game.HomeTeam, game.AwayTeam, homePts, awayPts)
	case awayPts >= homePts+5:
		return fmt.Sprintf("%s outscoring %s %d-%d over the last stretch", game.AwayTeam, game.HomeTeam, awayPts, homePts)
	default:
		return "Teams trading baskets"
	}
}
