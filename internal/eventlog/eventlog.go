// CourtVision - Live College Basketball Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courtvision

// Package eventlog implements the partitioned, ordered play log on NATS
// JetStream via Watermill.
//
// Each game is a partition: plays for one game are published to the
// subject plays.{gameID}, so JetStream preserves per-game order while
// games remain independent. The upstream play id doubles as the
// Nats-Msg-Id, letting the broker's deduplication window absorb
// re-published plays.
package eventlog

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/courtvision/internal/metrics"
	"github.com/tomtom215/courtvision/internal/models"
)

// Subject layout.
const (
	// TopicPrefix is the subject root for play events.
	TopicPrefix = "plays"
	// WildcardTopic subscribes to every game's plays.
	WildcardTopic = "plays.>"
	// StreamName is the JetStream stream holding play events.
	StreamName = "PLAYS"
)

// Metadata keys carried on each message.
const (
	MetaType     = "type"
	MetaGameKey  = "game_key"
	MetaGameID   = "game_id"
	MetaSequence = "sequence"
)

// Message types on the play subjects. Game metadata updates ride the
// same per-game partition as plays so a consumer sees them in order.
const (
	TypePlay = "play"
	TypeGame = "game"
)

// Topic returns the subject for one game's plays.
func Topic(espnGameID string) string {
	return TopicPrefix + "." + espnGameID
}

// Log appends validated plays to the event log.
type Log struct {
	pub message.Publisher
}

// NewLog wraps a Watermill publisher as a play log.
func NewLog(pub message.Publisher) *Log {
	return &Log{pub: pub}
}

// Append publishes one play to its game's partition. The play must have
// passed validation; Append only transports it.
func (l *Log) Append(ctx context.Context, espnGameID string, play *models.Play) error {
	msg, err := Encode(play)
	if err != nil {
		return err
	}
	msg.SetContext(ctx)
	if err := l.pub.Publish(Topic(espnGameID), msg); err != nil {
		return fmt.Errorf("append play %s: %w", play.PlayID, err)
	}
	metrics.PlaysAppended.Inc()
	return nil
}

// AppendGame publishes a game metadata update to the game's partition.
// Unlike plays these are not deduplicated: each update carries a fresh
// message id so status transitions flow through.
func (l *Log) AppendGame(ctx context.Context, espnGameID string, game *models.Game) error {
	msg, err := EncodeGame(game)
	if err != nil {
		return err
	}
	msg.SetContext(ctx)
	if err := l.pub.Publish(Topic(espnGameID), msg); err != nil {
		return fmt.Errorf("append game update %s: %w", game.Key, err)
	}
	return nil
}

// Close closes the underlying publisher.
func (l *Log) Close() error {
	return l.pub.Close()
}

// Encode turns a play into a Watermill message. The message UUID and
// Nats-Msg-Id are both the upstream play id, which is unique per game
// feed and stable across re-polls.
func Encode(play *models.Play) (*message.Message, error) {
	payload, err := json.Marshal(play)
	if err != nil {
		return nil, fmt.Errorf("marshal play %s: %w", play.PlayID, err)
	}
	msg := message.NewMessage(play.PlayID, payload)
	msg.Metadata.Set(natsgo.MsgIdHdr, play.PlayID)
	msg.Metadata.Set(MetaType, TypePlay)
	msg.Metadata.Set(MetaGameKey, play.GameKey)
	msg.Metadata.Set(MetaSequence, fmt.Sprintf("%d", play.Sequence))
	return msg, nil
}

// EncodeGame turns a game metadata update into a Watermill message.
func EncodeGame(game *models.Game) (*message.Message, error) {
	payload, err := json.Marshal(game)
	if err != nil {
		return nil, fmt.Errorf("marshal game %s: %w", game.Key, err)
	}
	msg := message.NewMessage(uuid.New().String(), payload)
	msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	msg.Metadata.Set(MetaType, TypeGame)
	msg.Metadata.Set(MetaGameKey, game.Key)
	return msg, nil
}

// DecodeGame recovers the game update from a log message.
func DecodeGame(msg *message.Message) (*models.Game, error) {
	var game models.Game
	if err := json.Unmarshal(msg.Payload, &game); err != nil {
		return nil, fmt.Errorf("unmarshal game message %s: %w", msg.UUID, err)
	}
	return &game, nil
}

// Kind returns the message type, defaulting to play for messages
// published before the type metadata existed.
func Kind(msg *message.Message) string {
	if t := msg.Metadata.Get(MetaType); t != "" {
		return t
	}
	return TypePlay
}

// Decode recovers the play from a log message.
func Decode(msg *message.Message) (*models.Play, error) {
	var play models.Play
	if err := json.Unmarshal(msg.Payload, &play); err != nil {
		return nil, fmt.Errorf("unmarshal play message %s: %w", msg.UUID, err)
	}
	return &play, nil
}
