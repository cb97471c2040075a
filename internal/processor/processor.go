// CourtVision - Live College Basketball Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courtvision

// Package processor materializes the canonical game state from the
// event log.
//
// The processor is the only writer of source records. Delivery is
// at-least-once, so correctness comes from the store's conditional
// writes: plays are written IfNotExists (redelivery is a no-op) and
// the current score IfSequenceNewer (an out-of-order play can never
// regress it). Malformed messages are poison: they are counted,
// logged, optionally forwarded to the poison topic, and acked so they
// never block the partition.
package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/courtvision/internal/eventlog"
	"github.com/tomtom215/courtvision/internal/logging"
	"github.com/tomtom215/courtvision/internal/metrics"
	"github.com/tomtom215/courtvision/internal/models"
	"github.com/tomtom215/courtvision/internal/retry"
	"github.com/tomtom215/courtvision/internal/store"
)

// Processor consumes one subscription and writes the state store.
type Processor struct {
	sub    message.Subscriber
	topic  string
	store  store.Store
	policy retry.Policy

	// poison receives undecodable messages for offline inspection.
	// Optional; nil drops them after logging.
	poison      message.Publisher
	poisonTopic string
}

// Option configures a Processor.
type Option func(*Processor)

// WithPoisonQueue forwards undecodable messages to topic on pub.
func WithPoisonQueue(pub message.Publisher, topic string) Option {
	return func(p *Processor) {
		p.poison = pub
		p.poisonTopic = topic
	}
}

// WithRetryPolicy overrides the store write retry policy.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(p *Processor) { p.policy = policy }
}

// New builds a processor reading topic from sub and writing to st.
func New(sub message.Subscriber, topic string, st store.Store, opts ...Option) *Processor {
	p := &Processor{
		sub:   sub,
		topic: topic,
		store: st,
		policy: retry.Policy{
			MaxAttempts:  3,
			BaseDelay:    100 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Multiplier:   2,
			JitterFactor: 0.2,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Serve consumes until the context ends. Messages are acked once their
// records are durably applied (or recognized as duplicates/stale) and
// nacked on persistent store failure, leaving redelivery to the broker.
func (p *Processor) Serve(ctx context.Context) error {
	msgs, err := p.sub.Subscribe(ctx, p.topic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", p.topic, err)
	}

	logging.Info().Str("topic", p.topic).Msg("stream processor started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			p.handle(ctx, msg)
		}
	}
}

func (p *Processor) String() string { return "stream-processor" }

func (p *Processor) handle(ctx context.Context, msg *message.Message) {
	start := time.Now()
	defer func() {
		metrics.ProcessorBatchDuration.Observe(time.Since(start).Seconds())
	}()

	var err error
	switch eventlog.Kind(msg) {
	case eventlog.TypeGame:
		err = p.applyGame(ctx, msg)
	default:
		err = p.applyPlay(ctx, msg)
	}

	if err == nil {
		msg.Ack()
		return
	}
	if isPoison(err) {
		p.quarantine(msg, err)
		msg.Ack()
		return
	}
	logging.Error().
		Err(err).
		Str("message_id", msg.UUID).
		Msg("store write failed, nacking for redelivery")
	msg.Nack()
}

// poisonError marks a message as unprocessable regardless of retries.
type poisonError struct{ err error }

func (e *poisonError) Error() string { return e.err.Error() }
func (e *poisonError) Unwrap() error { return e.err }

func isPoison(err error) bool {
	var pe *poisonError
	return errors.As(err, &pe)
}

func (p *Processor) quarantine(msg *message.Message, cause error) {
	metrics.PlaysRejected.WithLabelValues("poison").Inc()
	logging.Warn().
		Err(cause).
		Str("message_id", msg.UUID).
		Msg("quarantining poison message")
	if p.poison == nil {
		return
	}
	copied := msg.Copy()
	copied.Metadata.Set("poison_cause", cause.Error())
	if err := p.poison.Publish(p.poisonTopic, copied); err != nil {
		logging.Error().Err(err).Msg("poison queue publish failed")
	}
}

// putRetry writes under the backoff policy. Condition violations are
// idempotency conflicts, not transient faults, so they short-circuit
// the retry loop and surface to the caller.
func (p *Processor) putRetry(ctx context.Context, rec store.Record, cond store.Condition) error {
	return p.policy.Do(ctx, func(ctx context.Context) error {
		err := p.store.Put(ctx, rec, cond)
		if errors.Is(err, store.ErrConditionFailed) || errors.Is(err, store.ErrStaleSequence) {
			return retry.Permanent(err)
		}
		return err
	})
}

// applyPlay writes the play record and rolls the current score forward.
func (p *Processor) applyPlay(ctx context.Context, msg *message.Message) error {
	play, err := eventlog.Decode(msg)
	if err != nil {
		return &poisonError{err: err}
	}
	if err := play.Validate(); err != nil {
		metrics.PlaysRejected.WithLabelValues("validation").Inc()
		return &poisonError{err: err}
	}

	rec, err := store.NewRecord(play.GameKey, models.PlaySort(play.WallClock, play.PlayID), play.Sequence, play)
	if err != nil {
		return &poisonError{err: err}
	}

	err = p.putRetry(ctx, rec, store.IfNotExists)
	switch {
	case err == nil:
		metrics.PlaysWritten.Inc()
	case errors.Is(err, store.ErrConditionFailed):
		// Redelivered or re-polled play. Already materialized.
		metrics.PlaysRejected.WithLabelValues("duplicate").Inc()
	default:
		return fmt.Errorf("write play %s: %w", play.PlayID, err)
	}

	return p.applyScore(ctx, play)
}

// applyScore materializes SCORE#CURRENT from the play's running score.
// The sequence guard makes this safe under out-of-order delivery.
func (p *Processor) applyScore(ctx context.Context, play *models.Play) error {
	snap := models.ScoreSnapshot{
		GameKey:   play.GameKey,
		HomeScore: play.HomeScore,
		AwayScore: play.AwayScore,
		Period:    play.Period,
		Clock:     play.Clock,
		Sequence:  play.Sequence,
		UpdatedAt: time.Now().UTC(),
	}
	rec, err := store.NewRecord(play.GameKey, models.SortScoreCurrent, snap.Sequence, &snap)
	if err != nil {
		return &poisonError{err: err}
	}

	err = p.putRetry(ctx, rec, store.IfSequenceNewer)
	if errors.Is(err, store.ErrStaleSequence) {
		metrics.StaleSequenceSkips.Inc()
		return nil
	}
	if err != nil {
		return fmt.Errorf("write score for %s: %w", play.GameKey, err)
	}
	return nil
}

// applyGame upserts the METADATA record and maintains the external-id
// index on first sight.
func (p *Processor) applyGame(ctx context.Context, msg *message.Message) error {
	game, err := eventlog.DecodeGame(msg)
	if err != nil {
		return &poisonError{err: err}
	}
	if game.Key == "" || game.ESPNID == "" {
		return &poisonError{err: fmt.Errorf("game update missing key or espn id")}
	}

	rec, err := store.NewRecord(game.Key, models.SortMetadata, 0, game)
	if err != nil {
		return &poisonError{err: err}
	}
	if err := p.putRetry(ctx, rec, store.ConditionNone); err != nil {
		return fmt.Errorf("write metadata for %s: %w", game.Key, err)
	}

	// ESPN#{id} -> partition key, written once.
	idx, err := store.NewRecord(models.ExternalIndexKey(game.ESPNID), models.SortMetadata, 0,
		map[string]string{"gameKey": game.Key})
	if err != nil {
		return &poisonError{err: err}
	}
	if err := p.putRetry(ctx, idx, store.IfNotExists); err != nil && !errors.Is(err, store.ErrConditionFailed) {
		return fmt.Errorf("write external index for %s: %w", game.ESPNID, err)
	}
	return nil
}
