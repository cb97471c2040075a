// CourtVision - Live College Basketball Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courtvision

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestSeenRecordsFirstSight(t *testing.T) {
	c := NewSeenCache(10, time.Minute)

	if c.Seen("p1") {
		t.Error("first sight reported as seen")
	}
	if !c.Seen("p1") {
		t.Error("second sight reported as new")
	}
	if !c.Contains("p1") {
		t.Error("Contains missed a recorded key")
	}
	if c.Contains("p2") {
		t.Error("Contains found an unrecorded key")
	}
}

func TestSeenEvictsLeastRecent(t *testing.T) {
	c := NewSeenCache(3, time.Minute)
	for i := 1; i <= 3; i++ {
		c.Seen(fmt.Sprintf("p%d", i))
	}

	// Touch p1 so p2 is the least recently used.
	c.Seen("p1")
	c.Seen("p4")

	if c.Len() != 3 {
		t.Fatalf("len = %d, want 3", c.Len())
	}
	if c.Contains("p2") {
		t.Error("least recent key survived eviction")
	}
	if !c.Contains("p1") || !c.Contains("p4") {
		t.Error("recent keys were evicted")
	}
}

func TestSeenExpiry(t *testing.T) {
	c := NewSeenCache(10, 10*time.Millisecond)
	c.Seen("p1")
	time.Sleep(20 * time.Millisecond)

	if c.Contains("p1") {
		t.Error("expired key still contained")
	}
	if c.Seen("p1") {
		t.Error("expired key reported as duplicate")
	}
}

func TestSweepRemovesExpired(t *testing.T) {
	c := NewSeenCache(10, 10*time.Millisecond)
	c.Seen("p1")
	c.Seen("p2")
	time.Sleep(20 * time.Millisecond)
	c.Seen("p3")

	if removed := c.Sweep(); removed != 2 {
		t.Errorf("sweep removed %d, want 2", removed)
	}
	if c.Len() != 1 {
		t.Errorf("len after sweep = %d, want 1", c.Len())
	}
}

func TestSeenConcurrentAccess(t *testing.T) {
	c := NewSeenCache(100, time.Minute)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				c.Seen(fmt.Sprintf("g%d-p%d", g, i%50))
				c.Contains(fmt.Sprintf("g%d-p%d", g, i%50))
			}
		}(g)
	}
	wg.Wait()

	if c.Len() > 100 {
		t.Errorf("capacity exceeded: %d", c.Len())
	}
}
