// CourtVision - Live College Basketball Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courtvision

package eventlog

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/courtvision/internal/models"
)

func testPlay(id string, seq int64) *models.Play {
	return &models.Play{
		GameKey:   "GAME#2025-11-23#A-B",
		PlayID:    id,
		Sequence:  seq,
		Period:    1,
		Clock:     "9:45",
		WallClock: "2025-11-23T19:05:00Z",
		Text:      "jump shot",
	}
}

func TestEncodeDecodeRoundtrip(t *testing.T) {
	play := testPlay("4017460370012", 12)
	msg, err := Encode(play)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	if msg.UUID != play.PlayID {
		t.Errorf("message UUID = %q, want play id", msg.UUID)
	}
	if got := msg.Metadata.Get(natsgo.MsgIdHdr); got != play.PlayID {
		t.Errorf("Nats-Msg-Id = %q, want play id", got)
	}
	if got := msg.Metadata.Get(MetaGameKey); got != play.GameKey {
		t.Errorf("game_key metadata = %q", got)
	}

	back, err := Decode(msg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.PlayID != play.PlayID || back.Sequence != play.Sequence || back.Text != play.Text {
		t.Errorf("roundtrip mismatch: %+v", back)
	}
}

func TestTopicPerGame(t *testing.T) {
	if got := Topic("401746037"); got != "plays.401746037" {
		t.Errorf("Topic = %q", got)
	}
}

func TestAppendPreservesPerGameOrder(t *testing.T) {
	pubsub := NewInProcess(watermill.NopLogger{})
	defer pubsub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	const gameID = "401746037"
	msgs, err := pubsub.Subscribe(ctx, Topic(gameID))
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	log := NewLog(pubsub)
	const n = 20
	for i := 1; i <= n; i++ {
		play := testPlay(fmt.Sprintf("p%03d", i), int64(i))
		if err := log.Append(ctx, gameID, play); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	for i := 1; i <= n; i++ {
		select {
		case msg := <-msgs:
			play, err := Decode(msg)
			if err != nil {
				t.Fatal(err)
			}
			if play.Sequence != int64(i) {
				t.Fatalf("out of order: got sequence %d at position %d", play.Sequence, i)
			}
			msg.Ack()
		case <-ctx.Done():
			t.Fatalf("timed out waiting for message %d", i)
		}
	}
}

func TestGamesAreIndependentPartitions(t *testing.T) {
	pubsub := NewInProcess(watermill.NopLogger{})
	defer pubsub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msgsA, err := pubsub.Subscribe(ctx, Topic("gameA"))
	if err != nil {
		t.Fatal(err)
	}
	msgsB, err := pubsub.Subscribe(ctx, Topic("gameB"))
	if err != nil {
		t.Fatal(err)
	}

	log := NewLog(pubsub)
	if err := log.Append(ctx, "gameA", testPlay("a1", 1)); err != nil {
		t.Fatal(err)
	}
	if err := log.Append(ctx, "gameB", testPlay("b1", 1)); err != nil {
		t.Fatal(err)
	}

	select {
	case msg := <-msgsA:
		if play, _ := Decode(msg); play.PlayID != "a1" {
			t.Errorf("game A partition received %q", play.PlayID)
		}
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("no message on game A partition")
	}
	select {
	case msg := <-msgsB:
		if play, _ := Decode(msg); play.PlayID != "b1" {
			t.Errorf("game B partition received %q", play.PlayID)
		}
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("no message on game B partition")
	}
}
