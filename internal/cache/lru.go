// CourtVision - Live College Basketball Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courtvision

// Package cache provides the deduplication structures used by the
// ingestion path.
package cache

import (
	"sync"
	"time"
)

// seenEntry is a node in the doubly-linked recency list.
type seenEntry struct {
	key       string
	prev      *seenEntry
	next      *seenEntry
	expiresAt time.Time
}

// SeenCache is a thread-safe LRU set with TTL, used to skip plays the
// poller has already appended. Capacity bounds memory across long
// game days; the TTL lets a key be re-admitted once its game is
// certainly over. All operations are O(1).
type SeenCache struct {
	mu       sync.RWMutex
	capacity int
	ttl      time.Duration
	items    map[string]*seenEntry

	// head.next is most recent, tail.prev is least recent.
	head *seenEntry
	tail *seenEntry
}

// NewSeenCache builds a cache holding at most capacity keys for at
// most ttl each. Non-positive arguments select workable defaults.
func NewSeenCache(capacity int, ttl time.Duration) *SeenCache {
	if capacity <= 0 {
		capacity = 10000
	}
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	c := &SeenCache{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*seenEntry, capacity),
		head:     &seenEntry{},
		tail:     &seenEntry{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Seen reports whether key was recorded before and, when it was not,
// records it. The check and the record are one atomic step so
// concurrent polls cannot both claim a new play.
func (c *SeenCache) Seen(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if entry, ok := c.items[key]; ok {
		if now.Before(entry.expiresAt) {
			c.moveToFront(entry)
			return true
		}
		c.unlink(entry)
	}

	entry := &seenEntry{key: key, expiresAt: now.Add(c.ttl)}
	c.pushFront(entry)
	c.items[key] = entry
	for len(c.items) > c.capacity {
		c.unlink(c.tail.prev)
	}
	return false
}

// Contains checks membership without recording or refreshing the key.
func (c *SeenCache) Contains(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.items[key]
	return ok && time.Now().Before(entry.expiresAt)
}

// Len returns the number of live entries, counting expired ones not
// yet swept.
func (c *SeenCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Sweep drops expired entries and returns how many were removed.
func (c *SeenCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for entry := c.tail.prev; entry != c.head; {
		prev := entry.prev
		if now.After(entry.expiresAt) {
			c.unlink(entry)
			removed++
		}
		entry = prev
	}
	return removed
}

func (c *SeenCache) pushFront(entry *seenEntry) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

func (c *SeenCache) moveToFront(entry *seenEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	c.pushFront(entry)
}

func (c *SeenCache) unlink(entry *seenEntry) {
	if entry == c.head || entry == c.tail {
		return
	}
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	delete(c.items, entry.key)
}
