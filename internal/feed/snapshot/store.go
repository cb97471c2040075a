// CourtVision - Live College Basketball Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courtvision

// Package snapshot archives raw upstream documents for audit and
// replay. Each fetch is one immutable object at
// {root}/{date}-{matchup}/{dataType}/{timestamp}.json; nothing in the
// pipeline reads snapshots on the hot path.
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tomtom215/courtvision/internal/models"
)

// Data types archived per game.
const (
	TypeScoreboard = "scoreboard"
	TypeSummary    = "summary"
)

// Store writes raw feed documents to the filesystem.
type Store struct {
	root string
	now  func() time.Time
}

// New creates a snapshot store rooted at dir.
func New(dir string) *Store {
	return &Store{root: dir, now: time.Now}
}

// gameDir derives the per-game directory from the partition key:
// GAME#2025-11-23#AWAY-HOME becomes 2025-11-23-AWAY-HOME.
func gameDir(gameKey string) string {
	trimmed := strings.TrimPrefix(gameKey, "GAME#")
	return strings.ReplaceAll(trimmed, "#", "-")
}

// Write persists one raw document. The timestamp filename makes every
// fetch a distinct object; snapshots are never overwritten.
func (s *Store) Write(game *models.Game, dataType string, payload []byte) (string, error) {
	dir := filepath.Join(s.root, gameDir(game.Key), dataType)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	name := s.now().UTC().Format("2006-01-02T15-04-05.000000000Z") + ".json"
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, payload, 0o640); err != nil {
		return "", fmt.Errorf("write snapshot %s: %w", path, err)
	}
	return path, nil
}

// List returns the snapshot paths for one game and data type in
// timestamp order, oldest first. Used by replay tooling.
func (s *Store) List(game *models.Game, dataType string) ([]string, error) {
	dir := filepath.Join(s.root, gameDir(game.Key), dataType)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list snapshots %s: %w", dir, err)
	}

	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
