// CourtVision - Live College Basketball Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courtvision

package feed

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/courtvision/internal/logging"
	"github.com/tomtom215/courtvision/internal/models"
)

// ParseScoreboard normalizes a raw scoreboard document. Malformed
// events are logged and skipped; one broken game never aborts the
// batch.
func ParseScoreboard(data []byte) ([]ScoreboardGame, error) {
	var resp scoreboardResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode scoreboard: %w", err)
	}

	games := make([]ScoreboardGame, 0, len(resp.Events))
	for i := range resp.Events {
		game, err := parseEvent(&resp.Events[i])
		if err != nil {
			logging.Warn().
				Err(err).
				Str("event_id", resp.Events[i].ID).
				Msg("skipping malformed scoreboard event")
			continue
		}
		games = append(games, *game)
	}
	return games, nil
}

func parseEvent(ev *scoreboardEvent) (*ScoreboardGame, error) {
	if ev.ID == "" {
		return nil, fmt.Errorf("event has no id")
	}
	if len(ev.Competitions) == 0 {
		return nil, fmt.Errorf("event %s has no competitions", ev.ID)
	}
	comp := &ev.Competitions[0]

	var home, away *wireCompetitor
	for i := range comp.Competitors {
		switch comp.Competitors[i].HomeAway {
		case "home":
			home = &comp.Competitors[i]
		case "away":
			away = &comp.Competitors[i]
		}
	}
	if home == nil || away == nil {
		return nil, fmt.Errorf("event %s missing home or away competitor", ev.ID)
	}
	if home.Team.DisplayName == "" || away.Team.DisplayName == "" {
		return nil, fmt.Errorf("event %s missing team names", ev.ID)
	}

	date := gameDate(ev.Date)
	game := models.Game{
		Key:         models.GameKey(date, away.Team.DisplayName, home.Team.DisplayName),
		ESPNID:      ev.ID,
		Name:        ev.Name,
		ShortName:   ev.ShortName,
		Date:        date,
		HomeTeam:    home.Team.DisplayName,
		HomeTeamID:  home.Team.ID,
		AwayTeam:    away.Team.DisplayName,
		AwayTeamID:  away.Team.ID,
		Status:      comp.Status.Type.Name,
		StatusState: comp.Status.Type.State,
	}
	if comp.Venue != nil {
		game.Venue = models.Venue{
			Name:  comp.Venue.FullName,
			City:  comp.Venue.Address.City,
			State: comp.Venue.Address.State,
		}
	}

	return &ScoreboardGame{
		Game:      game,
		HomeScore: atoiSafe(home.Score),
		AwayScore: atoiSafe(away.Score),
		Period:    comp.Status.Period,
		Clock:     comp.Status.DisplayClock,
	}, nil
}

// gameDate extracts the calendar date from the upstream event
// timestamp (2025-11-23T19:00Z).
func gameDate(ts string) string {
	if len(ts) >= 10 {
		return ts[:10]
	}
	return ts
}

func atoiSafe(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// ParseSummary normalizes the play-by-play document for a known game.
// Plays that fail validation are logged and dropped.
func ParseSummary(data []byte, game *models.Game) ([]models.Play, error) {
	var resp summaryResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}

	plays := make([]models.Play, 0, len(resp.Plays))
	for i := range resp.Plays {
		play := normalizePlay(&resp.Plays[i], game)
		if err := play.Validate(); err != nil {
			logging.Warn().
				Err(err).
				Str("play_id", play.PlayID).
				Str("game", game.Key).
				Msg("dropping invalid play")
			continue
		}
		plays = append(plays, *play)
	}
	return plays, nil
}

func normalizePlay(wp *wirePlay, game *models.Game) *models.Play {
	seq, _ := strconv.ParseInt(wp.SequenceNumber, 10, 64)

	play := &models.Play{
		GameKey:     game.Key,
		PlayID:      wp.ID,
		Sequence:    seq,
		Period:      wp.Period.Number,
		Clock:       wp.Clock.DisplayValue,
		WallClock:   wp.WallClock,
		Type:        strings.ToLower(wp.Type.Text),
		Text:        wp.Text,
		ScoringPlay: wp.ScoringPlay || wp.ScoreValue > 0,
		ScoreValue:  wp.ScoreValue,
		HomeScore:   wp.HomeScore,
		AwayScore:   wp.AwayScore,
		TeamID:      wp.Team.ID,
		PlayerName:  extractPlayerName(wp.Text),
	}

	switch play.TeamID {
	case game.HomeTeamID:
		play.Team = game.HomeTeam
	case game.AwayTeamID:
		play.Team = game.AwayTeam
	}

	if len(wp.Participants) > 0 {
		play.PlayerID = wp.Participants[0].Athlete.ID
	}

	play.Action = classifyAction(play.Type, wp.Text, wp.ScoreValue > 0)
	return play
}

// classifyAction maps upstream play type and outcome to the canonical
// action vocabulary the pattern detector consumes.
func classifyAction(playType, text string, scored bool) string {
	textLower := strings.ToLower(text)
	switch {
	case strings.Contains(textLower, "three point") || strings.Contains(playType, "3pt"):
		if scored {
			return models.ActionMadeThree
		}
		return models.ActionMissedThree
	case strings.Contains(playType, "layup") || strings.Contains(playType, "dunk"):
		if scored {
			return models.ActionMadeLayup
		}
		return models.ActionMissedLayup
	case strings.Contains(playType, "free throw"):
		if scored {
			return models.ActionMadeFT
		}
		return models.ActionMissedFT
	case strings.Contains(playType, "shot"):
		if scored {
			return models.ActionMadeTwo
		}
		return models.ActionMissedTwo
	}
	return playType
}

// excludeKeywords marks plays with no attributable player.
var excludeKeywords = []string{
	"jump ball", "timeout", "start game", "end of", "official", "subbing",
}

// actionVerbs delimit the player name at the start of play text.
var actionVerbs = []string{
	" made ", " missed ", " misses ", " makes ",
	" Offensive Rebound", " Defensive Rebound", " Turnover",
	" Steal", " Block", " enters the game", " goes to the bench",
}

// extractPlayerName pulls the player name from the front of the play
// text. Returns "Unknown" when the play has no attributable player.
func extractPlayerName(text string) string {
	if text == "" {
		return "Unknown"
	}
	lower := strings.ToLower(text)
	for _, kw := range excludeKeywords {
		if strings.Contains(lower, kw) {
			return "Unknown"
		}
	}
	for _, verb := range actionVerbs {
		if idx := strings.Index(text, verb); idx > 0 {
			return strings.TrimSpace(text[:idx])
		}
	}
	// Fall back to a leading "Player Name." form.
	if idx := strings.Index(text, "."); idx > 0 {
		candidate := strings.TrimSpace(text[:idx])
		if len(strings.Fields(candidate)) >= 2 && len(candidate) < 40 {
			return candidate
		}
	}
	return "Unknown"
}
