// CourtVision - Live College Basketball Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courtvision

package ai

import "fmt"

func winProbPrompt(req *WinProbRequest) string {
	return fmt.Sprintf(`You are a sports analytics expert calculating win probability for a women's college basketball game.

Current Game State:
- Home Team: %s (Score: %d)
- Away Team: %s (Score: %d)
- Time Remaining: Quarter %d, %s remaining
- Recent Trend: %s
- Home Team Shooting: %.1f%% FG, %.1f%% 3PT
- Away Team Shooting: %.1f%% FG, %.1f%% 3PT

Based on this game state, calculate the win probability for each team.

Respond in this exact JSON format:
{
  "home_probability": <float between 0 and 1>,
  "away_probability": <float between 0 and 1>,
  "reasoning": "<2-3 sentence explanation of the key factors>"
}

Consider: score differential, time remaining, momentum, shooting percentages, and historical comeback data. The probabilities must sum to 1.0.`,
		req.HomeTeam, req.HomeScore,
		req.AwayTeam, req.AwayScore,
		req.Period, req.Clock,
		req.Trend,
		req.HomeFGPct, req.Home3PTPct,
		req.AwayFGPct, req.Away3PTPct)
}

func commentaryPrompt(req *CommentaryRequest) string {
	return fmt.Sprintf(`Generate play-by-play commentary:

Player: %s (%s)
Action: %s (%d pts)
Score: %s %d - %s %d
Player stats: %d PTS this game
Quarter %d, %s

Write 1-2 exciting sentences. No cliches. Be specific.

JSON format:
{
  "commentary": "<your text>",
  "excitement": 0.XX
}`,
		req.PlayerName, req.Team,
		req.Action, req.Points,
		req.HomeTeam, req.HomeScore, req.AwayTeam, req.AwayScore,
		req.PlayerPoints,
		req.Period, req.Clock)
}
