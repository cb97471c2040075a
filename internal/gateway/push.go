// CourtVision - Live College Basketball Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courtvision

package gateway

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/courtvision/internal/metrics"
	"github.com/tomtom215/courtvision/internal/models"
	"github.com/tomtom215/courtvision/internal/store"
)

// PushWorker maps committed changes to push envelopes and delivers them
// to the subscribed clients. It is registered with the reactor
// dispatcher like any other reactor, which gives it the same isolation
// guarantees: a slow push run never stalls pattern detection.
type PushWorker struct {
	hub     *Hub
	sem     chan struct{}
	timeout time.Duration
}

// NewPushWorker builds the push worker with delivery concurrency and
// per-connection timeout from the gateway config.
func NewPushWorker(hub *Hub) *PushWorker {
	return &PushWorker{
		hub:     hub,
		sem:     make(chan struct{}, hub.cfg.PushConcurrency),
		timeout: hub.cfg.WriteTimeout,
	}
}

// Name implements reactors.Reactor.
func (w *PushWorker) Name() string { return "push-worker" }

// React implements reactors.Reactor. Changes that do not map to a push
// type (plays, timeline entries, index records) are ignored.
func (w *PushWorker) React(ctx context.Context, change store.Change) error {
	env, ok := envelopeFor(change)
	if !ok {
		return nil
	}

	subscribers := w.hub.Subscribers(env.GameID)
	if len(subscribers) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	for _, client := range subscribers {
		select {
		case w.sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		}
		wg.Add(1)
		go func(c *Client) {
			defer func() {
				<-w.sem
				wg.Done()
			}()
			w.deliver(c, env)
		}(client)
	}
	wg.Wait()
	return nil
}

// deliver pushes one envelope to one client. A client whose buffer
// stays full past the timeout is evicted; it reconnects and
// resubscribes to resynchronize. A client that disconnected mid-fanout
// is skipped; the hub has already removed it.
func (w *PushWorker) deliver(c *Client, env models.Envelope) {
	delivered, alive := c.trySend(env, w.timeout)
	switch {
	case delivered:
		metrics.PushDeliveries.WithLabelValues(env.Type).Inc()
	case alive:
		w.hub.Evict(c)
	}
}

// envelopeFor classifies a change by its record kind. Only record kinds
// clients consume become envelopes.
func envelopeFor(change store.Change) (models.Envelope, bool) {
	if change.Kind == store.ChangeDelete || change.After == nil {
		return models.Envelope{}, false
	}
	rec := change.After
	if !strings.HasPrefix(rec.PK, "GAME#") {
		return models.Envelope{}, false
	}

	env := models.Envelope{GameID: rec.PK}
	switch {
	case rec.SK == models.SortMetadata:
		game := &models.Game{}
		if rec.Unmarshal(game) != nil {
			return models.Envelope{}, false
		}
		env.Type = models.MessageTypeGameState
		env.Payload = &models.GameState{Game: game}

	case rec.SK == models.SortScoreCurrent:
		score := &models.ScoreSnapshot{}
		if rec.Unmarshal(score) != nil {
			return models.Envelope{}, false
		}
		env.Type = models.MessageTypeScoreUpdate
		env.Payload = score

	case models.IsPatternSort(rec.SK):
		pattern := &models.Pattern{}
		if rec.Unmarshal(pattern) != nil {
			return models.Envelope{}, false
		}
		env.Type = models.MessageTypePattern
		env.Payload = pattern

	case rec.SK == models.SortWinProbCurrent:
		estimate := &models.WinProbability{}
		if rec.Unmarshal(estimate) != nil {
			return models.Envelope{}, false
		}
		env.Type = models.MessageTypeWinProbability
		env.Payload = estimate

	case models.IsCommentarySort(rec.SK):
		commentary := &models.Commentary{}
		if rec.Unmarshal(commentary) != nil {
			return models.Envelope{}, false
		}
		env.Type = models.MessageTypeCommentary
		env.Payload = commentary

	default:
		// Plays and timeline entries stay internal.
		return models.Envelope{}, false
	}
	return env, true
}
