// CourtVision - Live College Basketball Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courtvision

package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/courtvision/internal/config"
	"github.com/tomtom215/courtvision/internal/ingest"
	"github.com/tomtom215/courtvision/internal/logging"
	"github.com/tomtom215/courtvision/internal/models"
)

func init() {
	logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
}

type stubFeed struct {
	scoreboardErr error
}

func (f *stubFeed) Scoreboard(ctx context.Context, date string) ([]byte, error) {
	if f.scoreboardErr != nil {
		return nil, f.scoreboardErr
	}
	return []byte(`{"events": []}`), nil
}

func (f *stubFeed) Summary(ctx context.Context, espnGameID string) ([]byte, error) {
	return []byte(`{"plays": []}`), nil
}

type stubLog struct{}

func (stubLog) Append(ctx context.Context, espnGameID string, play *models.Play) error { return nil }
func (stubLog) AppendGame(ctx context.Context, espnGameID string, game *models.Game) error {
	return nil
}

type stubWS struct{ clients int }

func (s *stubWS) HandleWS(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusSwitchingProtocols)
}
func (s *stubWS) ClientCount() int { return s.clients }

func newTestServer(t *testing.T, f ingest.Feed) (*Server, *ingest.Poller) {
	t.Helper()
	poller := ingest.New(f, stubLog{}, nil, config.IngestConfig{DedupeSize: 16})
	cfg := config.ServerConfig{
		Host:            "127.0.0.1",
		Port:            8090,
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		ShutdownTimeout: time.Second,
		APIRateLimit:    1000,
	}
	return New(cfg, poller, &stubWS{clients: 3}), poller
}

func do(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t, &stubFeed{})
	rec := do(t, s, http.MethodGet, "/healthz")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v", body["status"])
	}
	if body["clients"] != float64(3) {
		t.Errorf("clients field = %v", body["clients"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, &stubFeed{})
	rec := do(t, s, http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Error("empty metrics exposition")
	}
}

func TestIngestOnDemand(t *testing.T) {
	s, _ := newTestServer(t, &stubFeed{})
	rec := do(t, s, http.MethodPost, "/api/v1/ingest?date=2025-11-23")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var stats ingest.CycleStats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Date != "2025-11-23" {
		t.Errorf("stats date = %q", stats.Date)
	}
}

func TestIngestRejectsBadDate(t *testing.T) {
	s, _ := newTestServer(t, &stubFeed{})
	rec := do(t, s, http.MethodPost, "/api/v1/ingest?date=11/23/2025")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestIngestUpstreamFailure(t *testing.T) {
	s, _ := newTestServer(t, &stubFeed{scoreboardErr: errors.New("upstream down")})
	rec := do(t, s, http.MethodPost, "/api/v1/ingest")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestIngestToggle(t *testing.T) {
	s, poller := newTestServer(t, &stubFeed{})

	if rec := do(t, s, http.MethodPost, "/api/v1/ingest/enable"); rec.Code != http.StatusOK {
		t.Fatalf("enable status = %d", rec.Code)
	}
	if !poller.Enabled() {
		t.Error("poller not enabled")
	}
	if rec := do(t, s, http.MethodPost, "/api/v1/ingest/disable"); rec.Code != http.StatusOK {
		t.Fatalf("disable status = %d", rec.Code)
	}
	if poller.Enabled() {
		t.Error("poller not disabled")
	}
}

func TestAPIRateLimit(t *testing.T) {
	poller := ingest.New(&stubFeed{}, stubLog{}, nil, config.IngestConfig{DedupeSize: 16})
	cfg := config.ServerConfig{
		Host:         "127.0.0.1",
		Port:         8090,
		APIRateLimit: 2,
	}
	s := New(cfg, poller, &stubWS{})

	for i := 0; i < 2; i++ {
		if rec := do(t, s, http.MethodPost, "/api/v1/ingest/enable"); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
	if rec := do(t, s, http.MethodPost, "/api/v1/ingest/enable"); rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
	// Unlimited routes are unaffected.
	if rec := do(t, s, http.MethodGet, "/healthz"); rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d", rec.Code)
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	s, _ := newTestServer(t, &stubFeed{})
	s.http.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
