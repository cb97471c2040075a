// CourtVision - Live College Basketball Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courtvision

package reactors

import (
	"context"
	"fmt"

	"github.com/tomtom215/courtvision/internal/models"
	"github.com/tomtom215/courtvision/internal/store"
)

// loadGame reads the METADATA record for a partition.
func loadGame(ctx context.Context, st store.Store, pk string) (*models.Game, error) {
	rec, err := st.Get(ctx, pk, models.SortMetadata)
	if err != nil {
		return nil, fmt.Errorf("load game %s: %w", pk, err)
	}
	var game models.Game
	if err := rec.Unmarshal(&game); err != nil {
		return nil, fmt.Errorf("decode game %s: %w", pk, err)
	}
	return &game, nil
}

// loadPlays reads the full ordered play history for a partition. Query
// returns sort-key order, which is wallclock order.
func loadPlays(ctx context.Context, st store.Store, pk string) ([]models.Play, error) {
	recs, err := st.Query(ctx, pk, models.PlayPrefix())
	if err != nil {
		return nil, fmt.Errorf("load plays %s: %w", pk, err)
	}
	plays := make([]models.Play, 0, len(recs))
	for i := range recs {
		var play models.Play
		if err := recs[i].Unmarshal(&play); err != nil {
			return nil, fmt.Errorf("decode play %s/%s: %w", pk, recs[i].SK, err)
		}
		plays = append(plays, play)
	}
	return plays, nil
}

// shooting aggregates one team's field-goal numbers.
type shooting struct {
	attempts  int
	made      int
	attempts3 int
	made3     int
}

func (s shooting) fgPct() float64 {
	if s.attempts == 0 {
		return 0
	}
	return 100 * float64(s.made) / float64(s.attempts)
}

func (s shooting) threePct() float64 {
	if s.attempts3 == 0 {
		return 0
	}
	return 100 * float64(s.made3) / float64(s.attempts3)
}

// shootingByTeam folds the play history into per-team shooting splits.
func shootingByTeam(plays []models.Play, game *models.Game) (home, away shooting, total int) {
	for i := range plays {
		p := &plays[i]
		if !p.IsFieldGoalAttempt() {
			continue
		}
		var s *shooting
		switch p.TeamID {
		case game.HomeTeamID:
			s = &home
		case game.AwayTeamID:
			s = &away
		default:
			continue
		}
		total++
		s.attempts++
		if p.IsMadeFieldGoal() {
			s.made++
		}
		if p.IsThreeAttempt() {
			s.attempts3++
			if p.Action == models.ActionMadeThree {
				s.made3++
			}
		}
	}
	return home, away, total
}
