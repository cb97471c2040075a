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

// forbiddenFacts are roster details the model is never given; their
// appearance in generated text means the model invented them.
var forbiddenFacts = []string{
	"freshman", "sophomore", "junior", "senior",
	"guard", "forward", "center",
}

// Generator derives short commentary for scoring plays. Keyed by play
// id, written once; failures are logged and skipped so commentary
// never holds up the pipeline.
type Generator struct {
	store     store.Store
	inference ai.Inference
}

// NewGenerator builds the commentary generator.
func NewGenerator(st store.Store, inference ai.Inference) *Generator {
	return &Generator{store: st, inference: inference}
}

// Name implements Reactor.
func (g *Generator) Name() string { return "commentary-generator" }

// React implements Reactor. Only scoring-play inserts produce
// commentary.
func (g *Generator) React(ctx context.Context, change store.Change) error {
	if change.Kind != store.ChangeInsert || change.After == nil {
		return nil
	}
	if !models.IsPlaySort(change.After.SK) {
		return nil
	}

	var play models.Play
	if err := change.After.Unmarshal(&play); err != nil {
		return fmt.Errorf("decode play change: %w", err)
	}
	if !play.ScoringPlay {
		return nil
	}
	pk := change.After.PK

	// Idempotency gate before the model call: replayed changes must
	// not spend tokens.
	commentaryKey := models.CommentarySort(play.PlayID)
	if _, err := g.store.Get(ctx, pk, commentaryKey); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	game, err := loadGame(ctx, g.store, pk)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}

	req := &ai.CommentaryRequest{
		PlayerName:   play.PlayerName,
		Team:         play.Team,
		Action:       play.Action,
		Points:       play.ScoreValue,
		PlayerPoints: g.playerPoints(ctx, pk, &play),
		HomeTeam:     game.HomeTeam,
		HomeScore:    play.HomeScore,
		AwayTeam:     game.AwayTeam,
		AwayScore:    play.AwayScore,
		Period:       play.Period,
		Clock:        play.Clock,
	}

	inferCtx, cancel := context.WithTimeout(ctx, inferenceTimeout)
	defer cancel()
	result, err := g.inference.GenerateCommentary(inferCtx, req)
	if err != nil {
		metrics.InferenceCalls.WithLabelValues("degraded").Inc()
		logging.Warn().
			Err(err).
			Str("game", pk).
			Str("play", play.PlayID).
			Msg("commentary degraded, skipping play")
		return nil
	}

	if !ValidateCommentary(result.Text) {
		logging.Warn().
			Str("game", pk).
			Str("play", play.PlayID).
			Str("text", result.Text).
			Msg("rejecting commentary with fabricated roster facts")
		return nil
	}

	commentary := models.Commentary{
		GameKey:     pk,
		PlayID:      play.PlayID,
		Text:        result.Text,
		Excitement:  clamp01(result.Excitement),
		GeneratedAt: time.Now().UTC(),
	}
	rec, err := store.NewRecord(pk, commentaryKey, 0, &commentary)
	if err != nil {
		return err
	}
	err = g.store.Put(ctx, rec, store.IfNotExists)
	if err != nil && !errors.Is(err, store.ErrConditionFailed) {
		return fmt.Errorf("write commentary %s: %w", play.PlayID, err)
	}
	if err == nil {
		metrics.CommentaryGenerated.Inc()
	}
	return nil
}

// playerPoints totals the scorer's points so far, including this play.
// Best effort: on error the prompt just says 0.
func (g *Generator) playerPoints(ctx context.Context, pk string, play *models.Play) int {
	if play.PlayerID == "" {
		return play.ScoreValue
	}
	plays, err := loadPlays(ctx, g.store, pk)
	if err != nil {
		return play.ScoreValue
	}
	total := 0
	for i := range plays {
		if plays[i].PlayerID == play.PlayerID && plays[i].ScoringPlay {
			total += plays[i].ScoreValue
		}
	}
	return total
}

// ValidateCommentary rejects text containing roster facts the model
// could only have invented.
func ValidateCommentary(text string) bool {
	lower := strings.ToLower(text)
	for _, word := range forbiddenFacts {
		if strings.Contains(lower, word) {
			return false
		}
	}
	return true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
