// CourtVision - Live College Basketball Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courtvision

// Package feed fetches and normalizes the upstream scoreboard and
// play-by-play documents.
package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/courtvision/internal/config"
	"github.com/tomtom215/courtvision/internal/metrics"
	"github.com/tomtom215/courtvision/internal/retry"
)

// maxResponseSize caps upstream response bodies. Summary documents for
// a full game run a few hundred KB.
const maxResponseSize = 8 << 20

// Client talks to the upstream sports API. Requests are rate limited
// and retried under the backoff policy; HTTP 4xx responses are treated
// as permanent and not retried.
type Client struct {
	http    *http.Client
	baseURL string
	agent   string
	limiter *rate.Limiter
	policy  retry.Policy
}

// NewClient builds a feed client from configuration.
func NewClient(cfg config.FeedConfig) *Client {
	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		agent:   cfg.UserAgent,
		// Upstream tolerates modest polling; 4 req/s with small bursts
		// keeps a full scoreboard cycle under the rate while never
		// hammering the API.
		limiter: rate.NewLimiter(rate.Limit(4), 8),
		policy: retry.Policy{
			MaxAttempts:  cfg.RetryAttempts,
			BaseDelay:    cfg.RetryDelay,
			MaxDelay:     10 * time.Second,
			Multiplier:   2,
			JitterFactor: 0.2,
		},
	}
}

// Scoreboard fetches the scoreboard document. An empty date means
// today; otherwise date is 2006-01-02 and is forwarded upstream as
// YYYYMMDD.
func (c *Client) Scoreboard(ctx context.Context, date string) ([]byte, error) {
	u := c.baseURL + "/scoreboard"
	if date != "" {
		u += "?dates=" + url.QueryEscape(strings.ReplaceAll(date, "-", ""))
	}
	return c.get(ctx, "scoreboard", u)
}

// Summary fetches the play-by-play document for one game.
func (c *Client) Summary(ctx context.Context, espnGameID string) ([]byte, error) {
	u := c.baseURL + "/summary?event=" + url.QueryEscape(espnGameID)
	return c.get(ctx, "summary", u)
}

func (c *Client) get(ctx context.Context, endpoint, u string) ([]byte, error) {
	var body []byte
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return retry.Permanent(fmt.Errorf("build request: %w", err))
		}
		req.Header.Set("User-Agent", c.agent)
		req.Header.Set("Accept", "application/json")

		start := time.Now()
		resp, err := c.http.Do(req)
		if err != nil {
			metrics.RecordFeedRequest(endpoint, 0, time.Since(start))
			return fmt.Errorf("fetch %s: %w", endpoint, err)
		}
		defer resp.Body.Close()
		metrics.RecordFeedRequest(endpoint, resp.StatusCode, time.Since(start))

		switch {
		case resp.StatusCode == http.StatusOK:
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			// Client errors will not heal on retry.
			return retry.Permanent(fmt.Errorf("fetch %s: upstream returned %d", endpoint, resp.StatusCode))
		default:
			return fmt.Errorf("fetch %s: upstream returned %d", endpoint, resp.StatusCode)
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		if err != nil {
			return fmt.Errorf("read %s response: %w", endpoint, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}
