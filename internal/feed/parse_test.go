// CourtVision - Live College Basketball Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courtvision

package feed

import (
	"testing"

	"github.com/tomtom215/courtvision/internal/models"
)

const scoreboardFixture = `{
  "events": [
    {
      "id": "401746037",
      "name": "Iowa Hawkeyes at Miami Hurricanes",
      "shortName": "IOWA @ MIA",
      "date": "2025-11-23T19:00Z",
      "competitions": [
        {
          "competitors": [
            {"homeAway": "home", "score": "35", "team": {"id": "2390", "displayName": "Miami Hurricanes"}},
            {"homeAway": "away", "score": "31", "team": {"id": "2294", "displayName": "Iowa Hawkeyes"}}
          ],
          "status": {"period": 2, "displayClock": "4:31", "type": {"name": "STATUS_IN_PROGRESS", "state": "in"}},
          "venue": {"fullName": "Watsco Center", "address": {"city": "Coral Gables", "state": "FL"}}
        }
      ]
    },
    {
      "id": "401746099",
      "name": "broken event with no competitions",
      "date": "2025-11-23T21:00Z",
      "competitions": []
    }
  ]
}`

func TestParseScoreboard(t *testing.T) {
	games, err := ParseScoreboard([]byte(scoreboardFixture))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(games) != 1 {
		t.Fatalf("got %d games, want 1 (malformed event skipped)", len(games))
	}

	g := games[0]
	if g.Game.Key != "GAME#2025-11-23#IOWA-HAWKEYES-MIAMI-HURRICANES" {
		t.Errorf("game key = %q", g.Game.Key)
	}
	if g.Game.ESPNID != "401746037" {
		t.Errorf("espn id = %q", g.Game.ESPNID)
	}
	if g.Game.HomeTeam != "Miami Hurricanes" || g.Game.AwayTeam != "Iowa Hawkeyes" {
		t.Errorf("teams = %q / %q", g.Game.HomeTeam, g.Game.AwayTeam)
	}
	if g.HomeScore != 35 || g.AwayScore != 31 || g.Period != 2 {
		t.Errorf("score = %d-%d period %d", g.HomeScore, g.AwayScore, g.Period)
	}
	if !g.Live() {
		t.Error("in-progress game must report Live")
	}
	if g.Game.Venue.Name != "Watsco Center" || g.Game.Venue.City != "Coral Gables" {
		t.Errorf("venue = %+v", g.Game.Venue)
	}
}

func TestParseScoreboardRejectsGarbage(t *testing.T) {
	if _, err := ParseScoreboard([]byte("not json")); err == nil {
		t.Error("expected decode error")
	}
}

const summaryFixture = `{
  "plays": [
    {
      "id": "40174603701",
      "sequenceNumber": "101904701",
      "text": "Hannah Stuelke made Layup. Assisted by Lucy Olsen.",
      "wallclock": "2025-11-23T19:05:12Z",
      "scoringPlay": true,
      "scoreValue": 2,
      "homeScore": 0,
      "awayScore": 2,
      "period": {"number": 1},
      "clock": {"displayValue": "9:45"},
      "type": {"text": "Layup Shot"},
      "team": {"id": "2294"},
      "participants": [{"athlete": {"id": "4433635"}}]
    },
    {
      "id": "40174603702",
      "sequenceNumber": "101904702",
      "text": "Jasmine Brown missed Three Point Jumper.",
      "wallclock": "2025-11-23T19:05:40Z",
      "scoringPlay": false,
      "scoreValue": 0,
      "period": {"number": 1},
      "clock": {"displayValue": "9:20"},
      "type": {"text": "Jump Shot"},
      "team": {"id": "2390"},
      "participants": []
    },
    {
      "id": "",
      "sequenceNumber": "101904703",
      "text": "invalid play with no id",
      "period": {"number": 1}
    }
  ]
}`

func summaryGame() *models.Game {
	return &models.Game{
		Key:        "GAME#2025-11-23#IOWA-HAWKEYES-MIAMI-HURRICANES",
		ESPNID:     "401746037",
		HomeTeam:   "Miami Hurricanes",
		HomeTeamID: "2390",
		AwayTeam:   "Iowa Hawkeyes",
		AwayTeamID: "2294",
	}
}

func TestParseSummary(t *testing.T) {
	plays, err := ParseSummary([]byte(summaryFixture), summaryGame())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(plays) != 2 {
		t.Fatalf("got %d plays, want 2 (invalid play dropped)", len(plays))
	}

	made := plays[0]
	if made.PlayID != "40174603701" || made.Sequence != 101904701 {
		t.Errorf("play identity = %q/%d", made.PlayID, made.Sequence)
	}
	if made.Action != models.ActionMadeLayup {
		t.Errorf("action = %q, want made layup", made.Action)
	}
	if !made.ScoringPlay || made.ScoreValue != 2 {
		t.Errorf("scoring = %v value %d", made.ScoringPlay, made.ScoreValue)
	}
	if made.Team != "Iowa Hawkeyes" {
		t.Errorf("team resolved to %q", made.Team)
	}
	if made.PlayerName != "Hannah Stuelke" {
		t.Errorf("player name = %q", made.PlayerName)
	}
	if made.PlayerID != "4433635" {
		t.Errorf("player id = %q", made.PlayerID)
	}

	missed := plays[1]
	// "Three Point" appears in the text, which wins over the generic type.
	if missed.Action != models.ActionMissedThree {
		t.Errorf("action = %q, want missed three", missed.Action)
	}
	if missed.Team != "Miami Hurricanes" {
		t.Errorf("team resolved to %q", missed.Team)
	}
	if missed.PlayerName != "Jasmine Brown" {
		t.Errorf("player name = %q", missed.PlayerName)
	}
}

func TestClassifyAction(t *testing.T) {
	tests := []struct {
		playType string
		text     string
		scored   bool
		want     string
	}{
		{"jump shot", "X made Three Point Jumper.", true, models.ActionMadeThree},
		{"3pt jump shot", "X missed a jumper", false, models.ActionMissedThree},
		{"layup shot", "X made Layup.", true, models.ActionMadeLayup},
		{"dunk shot", "X missed Dunk.", false, models.ActionMissedLayup},
		{"free throw - 1 of 2", "X made Free Throw.", true, models.ActionMadeFT},
		{"free throw - 2 of 2", "X missed Free Throw.", false, models.ActionMissedFT},
		{"jump shot", "X made Jumper.", true, models.ActionMadeTwo},
		{"jump shot", "X missed Jumper.", false, models.ActionMissedTwo},
		{"rebound", "X Defensive Rebound.", false, "rebound"},
	}
	for _, tt := range tests {
		if got := classifyAction(tt.playType, tt.text, tt.scored); got != tt.want {
			t.Errorf("classifyAction(%q, %q, %v) = %q, want %q", tt.playType, tt.text, tt.scored, got, tt.want)
		}
	}
}

func TestExtractPlayerName(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Hannah Stuelke made Layup.", "Hannah Stuelke"},
		{"Lucy Olsen Turnover.", "Lucy Olsen"},
		{"Jump Ball won by Iowa", "Unknown"},
		{"Official TV Timeout", "Unknown"},
		{"End of the 1st Quarter", "Unknown"},
		{"", "Unknown"},
		{"Kylie Feuerbach enters the game for Sydney Affolter", "Kylie Feuerbach"},
	}
	for _, tt := range tests {
		if got := extractPlayerName(tt.text); got != tt.want {
			t.Errorf("extractPlayerName(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}
