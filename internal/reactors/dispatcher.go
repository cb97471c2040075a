// CourtVision - Live College Basketball Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courtvision

// Package reactors implements change-driven derivation: the dispatcher
// is the single consumer of the state store's change feed and fans
// each change out to registered reactors.
//
// Reactors are isolated from each other: each runs on its own
// goroutine with its own queue, and a reactor error (or panic) is
// logged and counted without affecting the others. Derived records are
// pure functions of the source history, so a crashed reactor loses
// nothing that a later change cannot regenerate.
package reactors

import (
	"context"
	"sync"

	"github.com/tomtom215/courtvision/internal/logging"
	"github.com/tomtom215/courtvision/internal/metrics"
	"github.com/tomtom215/courtvision/internal/store"
)

// Reactor consumes committed changes and derives records or side
// effects. React errors are the reactor's own problem: the dispatcher
// logs them and moves on.
type Reactor interface {
	Name() string
	React(ctx context.Context, change store.Change) error
}

// queueSize buffers per-reactor delivery so one slow reactor does not
// stall the feed for the rest.
const queueSize = 256

// Dispatcher fans the change feed out to reactors.
type Dispatcher struct {
	changes <-chan store.Change
	list    []Reactor
}

// NewDispatcher builds a dispatcher over a change feed.
func NewDispatcher(changes <-chan store.Change, list ...Reactor) *Dispatcher {
	return &Dispatcher{changes: changes, list: list}
}

// Serve pumps the feed until it closes or the context ends.
func (d *Dispatcher) Serve(ctx context.Context) error {
	queues := make([]chan store.Change, len(d.list))
	var wg sync.WaitGroup
	for i, r := range d.list {
		queues[i] = make(chan store.Change, queueSize)
		wg.Add(1)
		go func(r Reactor, q <-chan store.Change) {
			defer wg.Done()
			d.run(ctx, r, q)
		}(r, queues[i])
	}

	defer func() {
		for _, q := range queues {
			close(q)
		}
		wg.Wait()
	}()

	logging.Info().Int("reactors", len(d.list)).Msg("change dispatcher started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case change, ok := <-d.changes:
			if !ok {
				return nil
			}
			for i := range queues {
				select {
				case queues[i] <- change:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}

func (d *Dispatcher) String() string { return "change-dispatcher" }

func (d *Dispatcher) run(ctx context.Context, r Reactor, q <-chan store.Change) {
	for change := range q {
		d.react(ctx, r, change)
	}
}

// react shields the dispatcher from a reactor's failure modes.
func (d *Dispatcher) react(ctx context.Context, r Reactor, change store.Change) {
	defer func() {
		if rec := recover(); rec != nil {
			metrics.ReactorErrors.WithLabelValues(r.Name()).Inc()
			logging.Error().
				Interface("panic", rec).
				Str("reactor", r.Name()).
				Msg("reactor panicked")
		}
	}()

	if err := r.React(ctx, change); err != nil {
		metrics.ReactorErrors.WithLabelValues(r.Name()).Inc()
		pk, sk := change.Key()
		logging.Warn().
			Err(err).
			Str("reactor", r.Name()).
			Str("pk", pk).
			Str("sk", sk).
			Msg("reactor failed on change")
	}
}
