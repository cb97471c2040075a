// CourtVision - Live College Basketball Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courtvision

package reactors

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/tomtom215/courtvision/internal/ai"
	"github.com/tomtom215/courtvision/internal/models"
	"github.com/tomtom215/courtvision/internal/store"
)

const (
	testGame   = "GAME#2025-11-23#IOWA-HAWKEYES-MIAMI-HURRICANES"
	homeTeamID = "2390"
	awayTeamID = "2294"
)

// fakeInference scripts model behavior for reactor tests.
type fakeInference struct {
	mu              sync.Mutex
	winProbCalls    int32
	commentaryCalls int32
	fail            bool
	commentaryText  string
}

func (f *fakeInference) EstimateWinProbability(ctx context.Context, req *ai.WinProbRequest) (*ai.WinProbResult, error) {
	atomic.AddInt32(&f.winProbCalls, 1)
	f.mu.Lock()
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return nil, fmt.Errorf("model unavailable")
	}
	return &ai.WinProbResult{Home: 0.6, Away: 0.4, Rationale: "home control"}, nil
}

func (f *fakeInference) GenerateCommentary(ctx context.Context, req *ai.CommentaryRequest) (*ai.CommentaryResult, error) {
	atomic.AddInt32(&f.commentaryCalls, 1)
	f.mu.Lock()
	fail, text := f.fail, f.commentaryText
	f.mu.Unlock()
	if fail {
		return nil, fmt.Errorf("model unavailable")
	}
	if text == "" {
		text = "What a finish at the rim!"
	}
	return &ai.CommentaryResult{Text: text, Excitement: 0.8}, nil
}

func (f *fakeInference) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func newReactorStore(t *testing.T) *store.BadgerStore {
	t.Helper()
	st, err := store.New(store.Options{InMemory: true, ChangeFeedSize: 1024})
	if err != nil {
		t.Fatal(err)
	}
	go func() {
		for range st.Changes() {
		}
	}()
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func seedGame(t *testing.T, st store.Store) *models.Game {
	t.Helper()
	game := &models.Game{
		Key:        testGame,
		ESPNID:     "401746037",
		HomeTeam:   "Miami Hurricanes",
		HomeTeamID: homeTeamID,
		AwayTeam:   "Iowa Hawkeyes",
		AwayTeamID: awayTeamID,
		Status:     "STATUS_IN_PROGRESS",
	}
	rec, err := store.NewRecord(testGame, models.SortMetadata, 0, game)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Put(context.Background(), rec, store.ConditionNone); err != nil {
		t.Fatal(err)
	}
	return game
}

// seedPlay writes one play and returns the insert change for it.
func seedPlay(t *testing.T, st store.Store, play *models.Play) store.Change {
	t.Helper()
	rec, err := store.NewRecord(play.GameKey, models.PlaySort(play.WallClock, play.PlayID), play.Sequence, play)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Put(context.Background(), rec, store.IfNotExists); err != nil {
		t.Fatal(err)
	}
	return store.Change{Kind: store.ChangeInsert, After: &rec}
}

// wallclock spreads plays one second apart so sort keys stay ordered.
func wallclock(n int) string {
	return fmt.Sprintf("2025-11-23T19:%02d:%02dZ", n/60, n%60)
}

func scoringPlay(n int, teamID string, playerID string, points int, action string) *models.Play {
	return &models.Play{
		GameKey:     testGame,
		PlayID:      fmt.Sprintf("p%03d", n),
		Sequence:    int64(n),
		Period:      1,
		Clock:       "8:00",
		WallClock:   wallclock(n),
		Action:      action,
		ScoringPlay: points > 0,
		ScoreValue:  points,
		TeamID:      teamID,
		Team:        teamName(teamID),
		PlayerID:    playerID,
		PlayerName:  "Player " + playerID,
	}
}

func teamName(teamID string) string {
	if teamID == homeTeamID {
		return "Miami Hurricanes"
	}
	return "Iowa Hawkeyes"
}
