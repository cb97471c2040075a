// CourtVision - Live College Basketball Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courtvision

package models

import (
	"fmt"
	"strings"
)

// Canonical composite keys. Every record is addressed by a two-part key:
// a partition key scoping it to one game, and a sort key encoding the
// record type plus an ordering marker. Sort keys are chosen so a
// lexicographic range scan over a prefix returns records in their
// natural order.
const (
	SortMetadata     = "METADATA"
	SortScoreCurrent = "SCORE#CURRENT"

	prefixPlay       = "PLAY#"
	prefixPattern    = "PATTERN#"
	prefixWinProb    = "AI#WIN_PROB#"
	prefixCommentary = "AI#COMMENTARY#"

	// SortWinProbCurrent holds the latest estimate for point reads;
	// the timestamped records under prefixWinProb form the timeline.
	SortWinProbCurrent = "AI#WIN_PROB#CURRENT"
)

// GameKey builds the partition key for a game:
// GAME#{date}#{AWAY-TEAM-HOME-TEAM}. The date is the game date
// (2006-01-02) and the matchup is away team then home team, uppercased
// with spaces replaced by dashes.
func GameKey(date, awayTeam, homeTeam string) string {
	return "GAME#" + date + "#" + teamSlug(awayTeam) + "-" + teamSlug(homeTeam)
}

func teamSlug(team string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(team)), " ", "-")
}

// PlaySort builds the sort key for a play: PLAY#{wallclock}#{playID}.
// Wallclock timestamps are RFC3339, so lexicographic order is
// chronological order.
func PlaySort(wallClock, playID string) string {
	return prefixPlay + wallClock + "#" + playID
}

// PlayPrefix is the sort-key prefix for range scans over a game's plays.
func PlayPrefix() string { return prefixPlay }

// PatternSort builds the sort key for a derived pattern:
// PATTERN#{type}#{index}. The index identifies the play range (or
// player+period for streaks) so re-detection emits the same key.
func PatternSort(patternType, index string) string {
	return prefixPattern + patternType + "#" + index
}

// PatternPrefix is the sort-key prefix for range scans over patterns.
func PatternPrefix() string { return prefixPattern }

// WinProbSort builds the sort key for a win-probability timeline entry:
// AI#WIN_PROB#{timestamp}.
func WinProbSort(timestamp string) string {
	return prefixWinProb + timestamp
}

// WinProbPrefix is the sort-key prefix for the estimate timeline.
// Range scans over it include the CURRENT record; callers filter it
// out when reading the timeline.
func WinProbPrefix() string { return prefixWinProb }

// CommentarySort builds the sort key for play commentary:
// AI#COMMENTARY#{playID}. Keying by play ID makes commentary writes
// idempotent under change-feed replay.
func CommentarySort(playID string) string {
	return prefixCommentary + playID
}

// ExternalIndexKey builds the partition key of the secondary-index
// record mapping an upstream game id to the canonical partition key.
func ExternalIndexKey(espnGameID string) string {
	return "ESPN#" + espnGameID
}

// IsPlaySort reports whether sk addresses a Play record.
func IsPlaySort(sk string) bool { return strings.HasPrefix(sk, prefixPlay) }

// IsPatternSort reports whether sk addresses a Pattern record.
func IsPatternSort(sk string) bool { return strings.HasPrefix(sk, prefixPattern) }

// IsWinProbSort reports whether sk addresses a win-probability record.
func IsWinProbSort(sk string) bool { return strings.HasPrefix(sk, prefixWinProb) }

// IsCommentarySort reports whether sk addresses a Commentary record.
func IsCommentarySort(sk string) bool { return strings.HasPrefix(sk, prefixCommentary) }

// ValidationError represents a field validation error at the ingestion
// boundary.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
