// CourtVision - Live College Basketball Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courtvision

package feed

import "github.com/tomtom215/courtvision/internal/models"

// Wire types mirroring the upstream scoreboard and summary JSON. Only
// the fields the pipeline reads are declared.

type scoreboardResponse struct {
	Events []scoreboardEvent `json:"events"`
}

type scoreboardEvent struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	ShortName    string            `json:"shortName"`
	Date         string            `json:"date"`
	Competitions []wireCompetition `json:"competitions"`
}

type wireCompetition struct {
	Competitors []wireCompetitor `json:"competitors"`
	Status      wireStatus       `json:"status"`
	Venue       *wireVenue       `json:"venue,omitempty"`
}

type wireCompetitor struct {
	HomeAway string   `json:"homeAway"`
	Score    string   `json:"score"`
	Team     wireTeam `json:"team"`
}

type wireTeam struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

type wireStatus struct {
	Period       int            `json:"period"`
	DisplayClock string         `json:"displayClock"`
	Type         wireStatusType `json:"type"`
}

type wireStatusType struct {
	Name  string `json:"name"`
	State string `json:"state"`
}

type wireVenue struct {
	FullName string `json:"fullName"`
	Address  struct {
		City  string `json:"city"`
		State string `json:"state"`
	} `json:"address"`
}

type summaryResponse struct {
	Plays []wirePlay `json:"plays"`
}

type wirePlay struct {
	ID             string `json:"id"`
	SequenceNumber string `json:"sequenceNumber"`
	Text           string `json:"text"`
	WallClock      string `json:"wallclock"`
	ScoringPlay    bool   `json:"scoringPlay"`
	ScoreValue     int    `json:"scoreValue"`
	HomeScore      int    `json:"homeScore"`
	AwayScore      int    `json:"awayScore"`
	Period         struct {
		Number int `json:"number"`
	} `json:"period"`
	Clock struct {
		DisplayValue string `json:"displayValue"`
	} `json:"clock"`
	Type struct {
		Text string `json:"text"`
	} `json:"type"`
	Team struct {
		ID string `json:"id"`
	} `json:"team"`
	Participants []struct {
		Athlete struct {
			ID string `json:"id"`
		} `json:"athlete"`
	} `json:"participants"`
}

// ScoreboardGame is one game as seen on the scoreboard: canonical
// metadata plus the live score the scoreboard carries.
type ScoreboardGame struct {
	Game      models.Game
	HomeScore int
	AwayScore int
	Period    int
	Clock     string
}

// Live reports whether the game is in progress.
func (g *ScoreboardGame) Live() bool {
	return g.Game.StatusState == models.StatusInGame
}
