// CourtVision - Live College Basketball Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courtvision

// Package gateway holds WebSocket connections and pushes change-driven
// updates to clients subscribed to individual games.
//
// The hub owns the connection and subscription sets. Clients register
// interest per game; the push worker consumes the state store's change
// feed (via the reactor dispatcher) and fans each update out to that
// game's subscribers only. Delivery is best effort: a client that
// cannot keep up is evicted, never retried, and reconnects with a fresh
// subscribe to resynchronize.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tomtom215/courtvision/internal/config"
	"github.com/tomtom215/courtvision/internal/logging"
	"github.com/tomtom215/courtvision/internal/metrics"
	"github.com/tomtom215/courtvision/internal/models"
	"github.com/tomtom215/courtvision/internal/store"
)

// ErrUnknownGame is returned for a subscribe naming a game the store
// has never seen.
var ErrUnknownGame = errors.New("gateway: unknown game")

// Hub maintains the set of active clients and their game subscriptions.
type Hub struct {
	store store.Store
	cfg   config.GatewayConfig

	Register   chan *Client
	Unregister chan *Client

	mu      sync.RWMutex
	clients map[*Client]bool
	subs    map[string]map[*Client]bool // game key -> subscribers
}

// NewHub builds a hub over the state store.
func NewHub(st store.Store, cfg config.GatewayConfig) *Hub {
	return &Hub{
		store:      st,
		cfg:        cfg,
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		subs:       make(map[string]map[*Client]bool),
	}
}

// Serve pumps client lifecycle events until the context ends. Designed
// for suture supervision.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return ctx.Err()
		case client := <-h.Register:
			h.add(client)
		case client := <-h.Unregister:
			h.remove(client)
		}
	}
}

func (h *Hub) String() string { return "websocket-hub" }

func (h *Hub) add(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	metrics.ConnectionsActive.Set(float64(total))
	logging.Info().Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	for key, set := range h.subs {
		if set[client] {
			delete(set, client)
			metrics.Subscriptions.Dec()
		}
		if len(set) == 0 {
			delete(h.subs, key)
		}
	}
	total := len(h.clients)
	h.mu.Unlock()
	client.shutdown()

	metrics.ConnectionsActive.Set(float64(total))
	logging.Info().Int("total_clients", total).Msg("websocket client disconnected")
}

// Subscribe registers a client's interest in a game and immediately
// queues the current game state so the client starts from live truth
// without historical replay.
func (h *Hub) Subscribe(ctx context.Context, client *Client, gameID string) error {
	key, err := h.resolveGameKey(ctx, gameID)
	if err != nil {
		return err
	}

	state, err := h.gameState(ctx, key)
	if err != nil {
		return err
	}

	h.mu.Lock()
	if !h.clients[client] {
		h.mu.Unlock()
		return nil
	}
	set := h.subs[key]
	if set == nil {
		set = make(map[*Client]bool)
		h.subs[key] = set
	}
	if !set[client] {
		set[client] = true
		metrics.Subscriptions.Inc()
	}
	h.mu.Unlock()

	client.enqueue(models.Envelope{
		Type:    models.MessageTypeGameState,
		GameID:  key,
		Payload: state,
	})
	logging.Debug().Str("game", key).Uint64("client", client.id).Msg("client subscribed")
	return nil
}

// Unsubscribe drops a client's interest in a game.
func (h *Hub) Unsubscribe(ctx context.Context, client *Client, gameID string) {
	key, err := h.resolveGameKey(ctx, gameID)
	if err != nil {
		return
	}
	h.mu.Lock()
	if set := h.subs[key]; set[client] {
		delete(set, client)
		metrics.Subscriptions.Dec()
		if len(set) == 0 {
			delete(h.subs, key)
		}
	}
	h.mu.Unlock()
}

// Subscribers returns the clients subscribed to a game, ordered by
// client id so delivery order is stable.
func (h *Hub) Subscribers(gameKey string) []*Client {
	h.mu.RLock()
	set := h.subs[gameKey]
	out := make([]*Client, 0, len(set))
	for client := range set {
		out = append(out, client)
	}
	h.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Evict force-disconnects a client that failed or stalled delivery.
func (h *Hub) Evict(client *Client) {
	metrics.PushEvictions.Inc()
	logging.Warn().Uint64("client", client.id).Msg("evicting slow websocket client")
	h.remove(client)
	if client.conn != nil {
		_ = client.conn.Close()
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	departing := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		departing = append(departing, client)
		delete(h.clients, client)
	}
	h.subs = make(map[string]map[*Client]bool)
	h.mu.Unlock()

	for _, client := range departing {
		client.shutdown()
	}
	metrics.ConnectionsActive.Set(0)
	logging.Info().Int("clients_closed", len(departing)).Msg("websocket hub stopped")
}

// resolveGameKey accepts either a canonical partition key or an
// upstream game id resolved through the external index.
func (h *Hub) resolveGameKey(ctx context.Context, gameID string) (string, error) {
	if strings.HasPrefix(gameID, "GAME#") {
		return gameID, nil
	}
	rec, err := h.store.Get(ctx, models.ExternalIndexKey(gameID), models.SortMetadata)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrUnknownGame
		}
		return "", fmt.Errorf("resolve game %s: %w", gameID, err)
	}
	var idx map[string]string
	if err := rec.Unmarshal(&idx); err != nil {
		return "", fmt.Errorf("decode index for %s: %w", gameID, err)
	}
	key := idx["gameKey"]
	if key == "" {
		return "", ErrUnknownGame
	}
	return key, nil
}

// gameState assembles the subscribe-time snapshot: metadata plus the
// current score when one exists yet.
func (h *Hub) gameState(ctx context.Context, key string) (*models.GameState, error) {
	rec, err := h.store.Get(ctx, key, models.SortMetadata)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnknownGame
		}
		return nil, fmt.Errorf("load game %s: %w", key, err)
	}
	state := &models.GameState{}
	game := &models.Game{}
	if err := rec.Unmarshal(game); err != nil {
		return nil, fmt.Errorf("decode game %s: %w", key, err)
	}
	state.Game = game

	if rec, err := h.store.Get(ctx, key, models.SortScoreCurrent); err == nil {
		score := &models.ScoreSnapshot{}
		if err := rec.Unmarshal(score); err == nil {
			state.Score = score
		}
	}
	return state, nil
}
