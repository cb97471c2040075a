// CourtVision - Live College Basketball Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courtvision

package gateway

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/courtvision/internal/logging"
	"github.com/tomtom215/courtvision/internal/models"
)

// validate checks inbound client messages against their struct tags.
var validate = validator.New(validator.WithRequiredStructEnabled())

// clientIDCounter hands out monotonically increasing client ids so the
// hub can order clients deterministically.
var clientIDCounter atomic.Uint64

// Client sits between one websocket connection and the hub.
type Client struct {
	id   uint64
	hub  *Hub
	conn *websocket.Conn

	// mu guards send against shutdown: push deliveries run on their own
	// goroutines and may still be in flight when the hub drops the
	// client, so the channel close must wait for them.
	mu     sync.RWMutex
	closed bool
	send   chan models.Envelope
}

// NewClient wraps an upgraded connection.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:   clientIDCounter.Add(1),
		hub:  hub,
		conn: conn,
		send: make(chan models.Envelope, hub.cfg.SendBufferSize),
	}
}

// ID returns the client's unique identifier.
func (c *Client) ID() uint64 { return c.id }

// Start registers the client and launches its pumps.
func (c *Client) Start() {
	c.hub.Register <- c
	go c.writePump()
	go c.readPump()
}

// enqueue buffers an envelope without blocking. A full buffer drops the
// message; the push worker's timeout path handles eviction. Envelopes
// for a client already shut down are discarded.
func (c *Client) enqueue(env models.Envelope) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.send <- env:
	default:
		logging.Warn().Uint64("client", c.id).Str("type", env.Type).Msg("send buffer full, dropping envelope")
	}
}

// trySend buffers an envelope, waiting up to timeout for room.
// delivered reports whether the envelope was buffered; alive is false
// when the client had already shut down.
func (c *Client) trySend(env models.Envelope, timeout time.Duration) (delivered, alive bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false, false
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case c.send <- env:
		return true, true
	case <-timer.C:
		return false, true
	}
}

// shutdown marks the client closed and closes the send channel once any
// in-flight sends have drained. Safe to call more than once.
func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// readPump consumes subscribe/unsubscribe messages until the
// connection drops.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.cfg.MaxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongTimeout)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongTimeout))
	})

	for {
		var msg models.ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Warn().Err(err).Uint64("client", c.id).Msg("unexpected websocket close")
			}
			return
		}
		c.handle(&msg)
	}
}

func (c *Client) handle(msg *models.ClientMessage) {
	if err := validate.Struct(msg); err != nil {
		logging.Debug().
			Err(err).
			Uint64("client", c.id).
			Str("action", msg.Action).
			Msg("ignoring malformed client message")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.hub.cfg.WriteTimeout)
	defer cancel()

	switch msg.Action {
	case models.ActionSubscribe:
		if err := c.hub.Subscribe(ctx, c, msg.GameID); err != nil {
			logging.Warn().
				Err(err).
				Uint64("client", c.id).
				Str("game", msg.GameID).
				Msg("subscribe rejected")
		}
	case models.ActionUnsubscribe:
		c.hub.Unsubscribe(ctx, c, msg.GameID)
	}
}

// writePump drains the send buffer to the connection and keeps the
// connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout)); err != nil {
				return
			}
			if !ok {
				// Hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(env); err != nil {
				logging.Warn().Err(err).Uint64("client", c.id).Msg("websocket write failed")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
