// CourtVision - Live College Basketball Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courtvision

package models

// Push message types delivered to subscribed clients.
const (
	MessageTypeGameState      = "game_state"
	MessageTypeScoreUpdate    = "score_update"
	MessageTypePattern        = "pattern"
	MessageTypeWinProbability = "win_probability"
	MessageTypeCommentary     = "commentary"
)

// Client actions.
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

// Envelope is the push message sent to subscribed clients.
type Envelope struct {
	Type    string      `json:"type"`
	GameID  string      `json:"gameId"`
	Payload interface{} `json:"payload"`
}

// ClientMessage is what clients send to register or drop interest in a
// game.
type ClientMessage struct {
	Action string `json:"action" validate:"required,oneof=subscribe unsubscribe"`
	GameID string `json:"gameId" validate:"required,max=128"`
}

// GameState is the payload of the game_state envelope sent immediately
// after a subscribe, combining metadata and the current score.
type GameState struct {
	Game  *Game          `json:"game,omitempty"`
	Score *ScoreSnapshot `json:"score,omitempty"`
}
