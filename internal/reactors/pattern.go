// CourtVision - Live College Basketball Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courtvision

package reactors

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/tomtom215/courtvision/internal/logging"
	"github.com/tomtom215/courtvision/internal/metrics"
	"github.com/tomtom215/courtvision/internal/models"
	"github.com/tomtom215/courtvision/internal/store"
)

const (
	// runMinPoints and runMaxAgainst qualify a scoring run: the team
	// scored at least runMinPoints while the opponent answered with at
	// most runMaxAgainst.
	runMinPoints  = 8
	runMaxAgainst = 2
	// runMaxSpan caps how many plays back a run may reach within a
	// period.
	runMaxSpan = 120
)

// minStreakMakes is the consecutive made field goals that qualify as a
// hot streak.
const minStreakMakes = 3

// Detector derives scoring-run and hot-streak patterns from the play
// history. Detection is a pure function of the ordered history, so
// replaying changes recomputes identical patterns; hot-streak keys are
// write-once and run records only change when the run itself does,
// which makes replays no-ops.
type Detector struct {
	store store.Store
}

// NewDetector builds the pattern detector.
func NewDetector(st store.Store) *Detector {
	return &Detector{store: st}
}

// Name implements Reactor.
func (d *Detector) Name() string { return "pattern-detector" }

// React implements Reactor. Only play inserts trigger detection.
func (d *Detector) React(ctx context.Context, change store.Change) error {
	if change.Kind != store.ChangeInsert || change.After == nil {
		return nil
	}
	if !models.IsPlaySort(change.After.SK) {
		return nil
	}
	pk := change.After.PK

	game, err := loadGame(ctx, d.store, pk)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Plays can land before metadata; the next play retries.
			return nil
		}
		return err
	}
	plays, err := loadPlays(ctx, d.store, pk)
	if err != nil {
		return err
	}

	patterns := DetectScoringRuns(plays, game)
	patterns = append(patterns, DetectHotStreaks(plays)...)

	for i := range patterns {
		if err := d.write(ctx, pk, &patterns[i]); err != nil {
			return err
		}
	}
	return nil
}

func (d *Detector) write(ctx context.Context, pk string, p *models.Pattern) error {
	p.GameKey = pk
	p.DetectedAt = time.Now().UTC()
	if p.Type == models.PatternScoringRun {
		return d.writeRun(ctx, pk, p)
	}

	rec, err := store.NewRecord(pk, models.PatternSort(p.Type, p.Index), 0, p)
	if err != nil {
		return err
	}
	err = d.store.Put(ctx, rec, store.IfNotExists)
	if errors.Is(err, store.ErrConditionFailed) {
		// Already detected on an earlier change.
		return nil
	}
	if err != nil {
		return fmt.Errorf("write pattern %s: %w", p.Index, err)
	}
	metrics.PatternsDetected.WithLabelValues(p.Type).Inc()
	logging.Info().
		Str("game", pk).
		Str("type", p.Type).
		Str("pattern", p.Description).
		Msg("pattern detected")
	return nil
}

// writeRun upserts the run record keyed by period and team. The record
// carries the run's current extent, so a run that keeps growing updates
// one record in place instead of leaving a trail of overlapping ones.
func (d *Detector) writeRun(ctx context.Context, pk string, p *models.Pattern) error {
	sk := models.PatternSort(p.Type, p.Index)
	isNew := false
	prev, err := d.store.Get(ctx, pk, sk)
	switch {
	case errors.Is(err, store.ErrNotFound):
		isNew = true
	case err != nil:
		return fmt.Errorf("load run %s: %w", p.Index, err)
	default:
		var existing models.Pattern
		if err := prev.Unmarshal(&existing); err == nil &&
			existing.WindowStart == p.WindowStart &&
			existing.WindowEnd == p.WindowEnd &&
			existing.PointsFor == p.PointsFor &&
			existing.PointsAgainst == p.PointsAgainst {
			return nil
		}
	}

	rec, err := store.NewRecord(pk, sk, 0, p)
	if err != nil {
		return err
	}
	if err := d.store.Put(ctx, rec, store.ConditionNone); err != nil {
		return fmt.Errorf("write run %s: %w", p.Index, err)
	}
	if isNew {
		metrics.PatternsDetected.WithLabelValues(p.Type).Inc()
		logging.Info().
			Str("game", pk).
			Str("type", p.Type).
			Str("pattern", p.Description).
			Msg("pattern detected")
	} else {
		logging.Debug().
			Str("game", pk).
			Str("pattern", p.Description).
			Msg("scoring run updated")
	}
	return nil
}

// DetectScoringRuns reports, per period and team, the current scoring
// run: the shortest trailing stretch of plays in which the team scored
// at least runMinPoints while the opponent scored at most runMaxAgainst.
// A run is live only at the tail of its period, so each (period, team)
// yields at most one pattern whose extent grows with the run.
func DetectScoringRuns(plays []models.Play, game *models.Game) []models.Pattern {
	byPeriod := make(map[int][]models.Play)
	for _, p := range plays {
		byPeriod[p.Period] = append(byPeriod[p.Period], p)
	}
	periods := make([]int, 0, len(byPeriod))
	for period := range byPeriod {
		periods = append(periods, period)
	}
	sort.Ints(periods)

	var out []models.Pattern
	for _, period := range periods {
		periodPlays := byPeriod[period]
		if run := trailingRun(periodPlays, period, game.HomeTeamID, game.HomeTeam, game.AwayTeamID); run != nil {
			out = append(out, *run)
		}
		if run := trailingRun(periodPlays, period, game.AwayTeamID, game.AwayTeam, game.HomeTeamID); run != nil {
			out = append(out, *run)
		}
	}
	return out
}

// trailingRun walks backwards from the period's last play accumulating
// points for one side. It stops as soon as the team's points qualify,
// which keeps the stretch minimal, or once the opponent has answered
// with too many points for any longer stretch to qualify.
func trailingRun(periodPlays []models.Play, period int, teamID, teamName, opponentID string) *models.Pattern {
	last := len(periodPlays) - 1
	var ptsFor, ptsAgainst int
	for i := last; i >= 0 && last-i < runMaxSpan; i-- {
		p := &periodPlays[i]
		if !p.ScoringPlay {
			continue
		}
		switch p.TeamID {
		case opponentID:
			ptsAgainst += p.ScoreValue
			if ptsAgainst > runMaxAgainst {
				return nil
			}
		case teamID:
			ptsFor += p.ScoreValue
			if ptsFor >= runMinPoints {
				return &models.Pattern{
					Type:          models.PatternScoringRun,
					Index:         fmt.Sprintf("%d#%s", period, teamID),
					Team:          teamName,
					PointsFor:     ptsFor,
					PointsAgainst: ptsAgainst,
					Period:        period,
					WindowStart:   p.PlayID,
					WindowEnd:     periodPlays[last].PlayID,
					Description:   fmt.Sprintf("%s on a %d-%d run", teamName, ptsFor, ptsAgainst),
				}
			}
		}
	}
	return nil
}

// DetectHotStreaks finds players with minStreakMakes consecutive made
// field goals within a period. Free throws neither extend nor break a
// streak; a missed field goal or a period change resets it.
func DetectHotStreaks(plays []models.Play) []models.Pattern {
	type streak struct {
		count       int
		period      int
		firstPlayID string
		playerName  string
		team        string
	}
	streaks := make(map[string]*streak)
	var out []models.Pattern

	for i := range plays {
		p := &plays[i]
		if p.PlayerID == "" {
			continue
		}
		s := streaks[p.PlayerID]
		if s != nil && s.period != p.Period {
			delete(streaks, p.PlayerID)
			s = nil
		}

		switch {
		case p.IsMadeFieldGoal():
			if s == nil {
				s = &streak{period: p.Period, firstPlayID: p.PlayID}
				streaks[p.PlayerID] = s
			}
			s.count++
			s.playerName = p.PlayerName
			s.team = p.Team
			// Emit exactly once, when the streak reaches the bar.
			if s.count == minStreakMakes {
				out = append(out, models.Pattern{
					Type:             models.PatternHotStreak,
					Index:            fmt.Sprintf("%d#%s#%s", p.Period, p.PlayerID, s.firstPlayID),
					Team:             s.team,
					PlayerID:         p.PlayerID,
					PlayerName:       s.playerName,
					ConsecutiveMakes: s.count,
					Period:           p.Period,
					WindowStart:      s.firstPlayID,
					WindowEnd:        p.PlayID,
					Description:      fmt.Sprintf("%s is heating up: %d straight makes", s.playerName, s.count),
				})
			}
		case p.IsMissedFieldGoal():
			delete(streaks, p.PlayerID)
		}
	}
	return out
}
