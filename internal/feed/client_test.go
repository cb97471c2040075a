// CourtVision - Live College Basketball Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courtvision

package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/courtvision/internal/config"
	"github.com/tomtom215/courtvision/internal/retry"
)

func testClientConfig(baseURL string) config.FeedConfig {
	return config.FeedConfig{
		BaseURL:       baseURL,
		Timeout:       2 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
		UserAgent:     "courtvision-test",
	}
}

func TestScoreboardPassesDate(t *testing.T) {
	var gotQuery atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.RawQuery)
		w.Write([]byte(`{"events": []}`))
	}))
	defer srv.Close()

	c := NewClient(testClientConfig(srv.URL))
	if _, err := c.Scoreboard(context.Background(), "2025-11-23"); err != nil {
		t.Fatalf("scoreboard: %v", err)
	}
	if q := gotQuery.Load(); q != "dates=20251123" {
		t.Errorf("query = %q, want dates=20251123", q)
	}
}

func TestSummaryRetriesTransientFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"plays": []}`))
	}))
	defer srv.Close()

	c := NewClient(testClientConfig(srv.URL))
	body, err := c.Summary(context.Background(), "401746037")
	if err != nil {
		t.Fatalf("summary after transient failures: %v", err)
	}
	if len(body) == 0 {
		t.Error("empty body on success")
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("expected 3 attempts, got %d", n)
	}
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(testClientConfig(srv.URL))
	_, err := c.Summary(context.Background(), "nope")
	if err == nil {
		t.Fatal("expected error")
	}
	if !retry.IsPermanent(err) {
		t.Errorf("404 must be permanent, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("404 retried: %d attempts", n)
	}
}

func TestClientHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := NewClient(testClientConfig(srv.URL))
	if _, err := c.Scoreboard(ctx, ""); err == nil {
		t.Error("expected context deadline error")
	}
}
