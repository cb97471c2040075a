// CourtVision - Live College Basketball Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courtvision

package reactors

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/courtvision/internal/store"
)

// probe records every change it sees and can fail or panic on demand.
type probe struct {
	name   string
	fail   bool
	panics bool

	mu   sync.Mutex
	seen []store.Change
}

func (p *probe) Name() string { return p.name }

func (p *probe) React(ctx context.Context, change store.Change) error {
	p.mu.Lock()
	p.seen = append(p.seen, change)
	p.mu.Unlock()
	if p.panics {
		panic("probe exploded")
	}
	if p.fail {
		return errors.New("probe failed")
	}
	return nil
}

func (p *probe) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.seen)
}

func insertChange(t *testing.T, n int) store.Change {
	t.Helper()
	rec, err := store.NewRecord(testGame, wallclock(n), int64(n), map[string]int{"n": n})
	if err != nil {
		t.Fatal(err)
	}
	return store.Change{Kind: store.ChangeInsert, After: &rec}
}

// runDispatcher serves d over feed and returns once Serve exits.
func runDispatcher(t *testing.T, d *Dispatcher, feed chan store.Change, changes []store.Change) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- d.Serve(context.Background()) }()
	for _, c := range changes {
		feed <- c
	}
	close(feed)
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher did not exit after feed close")
		return nil
	}
}

func TestDispatcherFansOutToAllReactors(t *testing.T) {
	feed := make(chan store.Change)
	a := &probe{name: "a"}
	b := &probe{name: "b"}
	d := NewDispatcher(feed, a, b)

	changes := []store.Change{insertChange(t, 1), insertChange(t, 2), insertChange(t, 3)}
	if err := runDispatcher(t, d, feed, changes); err != nil {
		t.Fatalf("serve: %v", err)
	}

	if a.count() != 3 || b.count() != 3 {
		t.Errorf("fan-out counts a=%d b=%d, want 3 each", a.count(), b.count())
	}
}

func TestDispatcherIsolatesFailingReactor(t *testing.T) {
	feed := make(chan store.Change)
	bad := &probe{name: "bad", fail: true}
	good := &probe{name: "good"}
	d := NewDispatcher(feed, bad, good)

	changes := []store.Change{insertChange(t, 1), insertChange(t, 2)}
	if err := runDispatcher(t, d, feed, changes); err != nil {
		t.Fatalf("serve: %v", err)
	}

	if good.count() != 2 {
		t.Errorf("healthy reactor got %d changes, want 2", good.count())
	}
	if bad.count() != 2 {
		t.Errorf("failing reactor stopped receiving: %d", bad.count())
	}
}

func TestDispatcherIsolatesPanickingReactor(t *testing.T) {
	feed := make(chan store.Change)
	bad := &probe{name: "bad", panics: true}
	good := &probe{name: "good"}
	d := NewDispatcher(feed, bad, good)

	changes := []store.Change{insertChange(t, 1), insertChange(t, 2), insertChange(t, 3)}
	if err := runDispatcher(t, d, feed, changes); err != nil {
		t.Fatalf("serve: %v", err)
	}

	if good.count() != 3 {
		t.Errorf("healthy reactor got %d changes, want 3", good.count())
	}
	// The panicking reactor is recovered per change, not unsubscribed.
	if bad.count() != 3 {
		t.Errorf("panicking reactor got %d changes, want 3", bad.count())
	}
}

func TestDispatcherStopsOnContextCancel(t *testing.T) {
	feed := make(chan store.Change)
	d := NewDispatcher(feed, &probe{name: "a"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Serve(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("serve returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher did not exit on cancel")
	}
}
