// CourtVision - Live College Basketball Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courtvision

// Package models defines the canonical record types stored in the state
// store and the composite-key scheme that addresses them.
//
// Source records (Game, Play, ScoreSnapshot) are written by the stream
// processor; derived records (Pattern, WinProbability, Commentary) are
// written by change reactors and are pure functions of the source
// history — safe to discard and regenerate at any time.
package models

import "time"

// Game status states as reported upstream.
const (
	StatusScheduled = "pre"
	StatusInGame    = "in"
	StatusFinal     = "post"
)

// Pattern types.
const (
	PatternScoringRun = "scoring_run"
	PatternHotStreak  = "hot_streak"
)

// Play actions derived from upstream play type and outcome.
const (
	ActionMadeThree    = "made_three_pointer"
	ActionMissedThree  = "missed_three_pointer"
	ActionMadeTwo      = "made_two_pointer"
	ActionMissedTwo    = "missed_two_pointer"
	ActionMadeLayup    = "made_layup"
	ActionMissedLayup  = "missed_layup"
	ActionMadeFT       = "made_free_throw"
	ActionMissedFT     = "missed_free_throw"
)

// Game is the per-game metadata record (sort key METADATA).
// Created on first ingest, updated only for metadata corrections,
// never deleted.
type Game struct {
	Key          string `json:"key"`
	ESPNID       string `json:"espnId"`
	Name         string `json:"name"`
	ShortName    string `json:"shortName"`
	Date         string `json:"date"`
	HomeTeam     string `json:"homeTeam"`
	HomeTeamID   string `json:"homeTeamId"`
	AwayTeam     string `json:"awayTeam"`
	AwayTeamID   string `json:"awayTeamId"`
	Venue        Venue  `json:"venue,omitempty"`
	Status       string `json:"status"`
	StatusState  string `json:"statusState"`
}

// Venue describes where a game is played.
type Venue struct {
	Name  string `json:"name,omitempty"`
	City  string `json:"city,omitempty"`
	State string `json:"state,omitempty"`
}

// ScoreSnapshot is the single mutable "current score" record per game
// (sort key SCORE#CURRENT). Sequence is the upstream source sequence of
// the play that produced this score; the store's conditional write
// rejects any snapshot whose Sequence is not newer, so the score never
// regresses under out-of-order delivery.
type ScoreSnapshot struct {
	GameKey   string    `json:"gameKey"`
	HomeScore int       `json:"homeScore"`
	AwayScore int       `json:"awayScore"`
	Period    int       `json:"period"`
	Clock     string    `json:"gameClock"`
	Sequence  int64     `json:"sequence"`
	UpdatedAt time.Time `json:"lastUpdated"`
}

// Play is an immutable play-by-play record, uniquely identified by the
// upstream play id and ordered by (Period, Sequence). All derived
// analytics are recomputable from the ordered Play history alone.
type Play struct {
	GameKey     string `json:"gameKey"`
	PlayID      string `json:"playId"`
	Sequence    int64  `json:"sequence"`
	Period      int    `json:"period"`
	Clock       string `json:"gameClock"`
	WallClock   string `json:"wallclock"`
	Type        string `json:"playType"`
	Text        string `json:"text"`
	Action      string `json:"action"`
	ScoringPlay bool   `json:"scoringPlay"`
	ScoreValue  int    `json:"pointsScored"`
	HomeScore   int    `json:"homeScore"`
	AwayScore   int    `json:"awayScore"`
	TeamID      string `json:"teamId"`
	Team        string `json:"team"`
	PlayerID    string `json:"playerId,omitempty"`
	PlayerName  string `json:"playerName,omitempty"`
}

// Validate checks the fields required for a play to enter the pipeline.
// Plays failing validation are rejected at the ingestion boundary.
func (p *Play) Validate() error {
	if p.GameKey == "" {
		return &ValidationError{Field: "gameKey", Message: "required"}
	}
	if p.PlayID == "" {
		return &ValidationError{Field: "playId", Message: "required"}
	}
	if p.Sequence <= 0 {
		return &ValidationError{Field: "sequence", Message: "must be positive"}
	}
	if p.Period <= 0 {
		return &ValidationError{Field: "period", Message: "must be positive"}
	}
	return nil
}

// IsMadeFieldGoal reports whether the play is a made shot from the
// field (free throws excluded). Used by hot-streak detection.
func (p *Play) IsMadeFieldGoal() bool {
	switch p.Action {
	case ActionMadeThree, ActionMadeTwo, ActionMadeLayup:
		return true
	}
	return false
}

// IsMissedFieldGoal reports whether the play is a missed shot from the
// field (free throws excluded).
func (p *Play) IsMissedFieldGoal() bool {
	switch p.Action {
	case ActionMissedThree, ActionMissedTwo, ActionMissedLayup:
		return true
	}
	return false
}

// IsFieldGoalAttempt reports whether the play is any field-goal attempt.
func (p *Play) IsFieldGoalAttempt() bool {
	return p.IsMadeFieldGoal() || p.IsMissedFieldGoal()
}

// IsThreeAttempt reports whether the play is a three-point attempt.
func (p *Play) IsThreeAttempt() bool {
	return p.Action == ActionMadeThree || p.Action == ActionMissedThree
}

// Pattern is a derived record describing a detected scoring pattern.
// Immutable once written; the Index field pins the record to a specific
// play range so re-detection is idempotent.
type Pattern struct {
	GameKey          string    `json:"gameKey"`
	Type             string    `json:"patternType"`
	Index            string    `json:"index"`
	Team             string    `json:"team,omitempty"`
	PointsFor        int       `json:"pointsFor,omitempty"`
	PointsAgainst    int       `json:"pointsAgainst,omitempty"`
	PlayerID         string    `json:"playerId,omitempty"`
	PlayerName       string    `json:"playerName,omitempty"`
	ConsecutiveMakes int       `json:"consecutiveMakes,omitempty"`
	Period           int       `json:"period"`
	WindowStart      string    `json:"windowStart,omitempty"`
	WindowEnd        string    `json:"windowEnd,omitempty"`
	Description      string    `json:"description"`
	DetectedAt       time.Time `json:"detectedAt"`
}

// WinProbability is a derived, append-only estimate. Multiple estimates
// accumulate over a game to form a timeline; the CURRENT record is a
// convenience copy of the latest one.
type WinProbability struct {
	GameKey    string    `json:"gameKey"`
	Home       float64   `json:"homeWinProbability"`
	Away       float64   `json:"awayWinProbability"`
	Rationale  string    `json:"reasoning"`
	HomeScore  int       `json:"homeScore"`
	AwayScore  int       `json:"awayScore"`
	Period     int       `json:"period"`
	ComputedAt time.Time `json:"calculatedAt"`
}

// Commentary is derived short-form text, one-to-one with a scoring play.
// Keyed by play id so change-feed replay never duplicates it.
type Commentary struct {
	GameKey     string    `json:"gameKey"`
	PlayID      string    `json:"playId"`
	Text        string    `json:"commentary"`
	Excitement  float64   `json:"excitement"`
	GeneratedAt time.Time `json:"generatedAt"`
}
