// CourtVision - Live College Basketball Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courtvision

// Package ai provides the model-inference collaborators used by the
// derived-analytics reactors. The reactors treat Inference as opaque:
// any failure is a degraded feature, never a pipeline error.
package ai

import "context"

// WinProbRequest is the game context for a win-probability estimate.
type WinProbRequest struct {
	HomeTeam   string
	AwayTeam   string
	HomeScore  int
	AwayScore  int
	Period     int
	Clock      string
	Trend      string
	HomeFGPct  float64
	Home3PTPct float64
	AwayFGPct  float64
	Away3PTPct float64
}

// WinProbResult is the model's estimate. Home and Away sum to 1.
type WinProbResult struct {
	Home      float64 `json:"home_probability"`
	Away      float64 `json:"away_probability"`
	Rationale string  `json:"reasoning"`
}

// CommentaryRequest is the play and game context for commentary.
type CommentaryRequest struct {
	PlayerName   string
	Team         string
	Action       string
	Points       int
	PlayerPoints int
	HomeTeam     string
	HomeScore    int
	AwayTeam     string
	AwayScore    int
	Period       int
	Clock        string
}

// CommentaryResult is the generated text with an excitement rating in
// [0, 1].
type CommentaryResult struct {
	Text       string  `json:"commentary"`
	Excitement float64 `json:"excitement"`
}

// Inference is the model behind the win-probability and commentary
// reactors.
type Inference interface {
	EstimateWinProbability(ctx context.Context, req *WinProbRequest) (*WinProbResult, error)
	GenerateCommentary(ctx context.Context, req *CommentaryRequest) (*CommentaryResult, error)
}
