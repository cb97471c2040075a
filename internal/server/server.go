// CourtVision - Live College Basketball Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courtvision

// Package server exposes the HTTP surface: health, metrics, the
// WebSocket upgrade, and the operational ingest endpoints.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/courtvision/internal/config"
	"github.com/tomtom215/courtvision/internal/ingest"
	"github.com/tomtom215/courtvision/internal/logging"
	"github.com/tomtom215/courtvision/internal/metrics"
)

// WSHandler is the websocket upgrade surface provided by the gateway.
type WSHandler interface {
	HandleWS(w http.ResponseWriter, r *http.Request)
	ClientCount() int
}

// Server wraps the HTTP listener as a supervisable service.
type Server struct {
	cfg    config.ServerConfig
	http   *http.Server
	poller *ingest.Poller
	ws     WSHandler
}

// New builds the server and its routes.
func New(cfg config.ServerConfig, poller *ingest.Poller, ws WSHandler) *Server {
	s := &Server{cfg: cfg, poller: poller, ws: ws}
	s.http = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(instrument)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/ws", s.ws.HandleWS)

	r.Route("/api/v1", func(r chi.Router) {
		limit := s.cfg.APIRateLimit
		if limit <= 0 {
			limit = 60
		}
		r.Use(httprate.LimitByIP(limit, time.Minute))
		r.Post("/ingest", s.handleIngest)
		r.Post("/ingest/enable", s.handleIngestEnable)
		r.Post("/ingest/disable", s.handleIngestDisable)
	})
	return r
}

// Serve runs the listener until the context ends, then drains with the
// configured shutdown timeout. Designed for suture supervision.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", s.cfg.Addr()).Msg("http server listening")
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		logging.Info().Msg("http server stopped")
		return ctx.Err()
	}
}

func (s *Server) String() string { return "http-server" }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "ok",
		"clients":         s.ws.ClientCount(),
		"polling_enabled": s.poller.Enabled(),
	})
}

// handleIngest runs one on-demand ingestion cycle, optionally for a
// specific date (?date=2006-01-02).
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date != "" {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			writeError(w, http.StatusBadRequest, "date must be formatted 2006-01-02")
			return
		}
	}

	stats, err := s.poller.IngestOnce(r.Context(), date)
	if err != nil {
		logging.Error().Err(err).Str("date", date).Msg("on-demand ingestion failed")
		writeError(w, http.StatusBadGateway, "ingestion failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleIngestEnable(w http.ResponseWriter, r *http.Request) {
	s.poller.Enable()
	writeJSON(w, http.StatusOK, map[string]bool{"polling_enabled": true})
}

func (s *Server) handleIngestDisable(w http.ResponseWriter, r *http.Request) {
	s.poller.Disable()
	writeJSON(w, http.StatusOK, map[string]bool{"polling_enabled": false})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Warn().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// instrument records request counts and latency per route pattern.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		metrics.RecordHTTPRequest(r.Method, pattern, ww.Status(), time.Since(start))
	})
}
